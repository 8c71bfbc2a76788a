package routes

import (
	"github.com/gin-gonic/gin"

	"teamtodo/internal/controller"
	"teamtodo/internal/middleware"
)

// Router builds the route table around an already-wired controller.
func Router(ct *controller.Controller, jwtSecret string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())

	// Health for load balancers and K8s probes
	router.GET("/health", ct.Health)
	router.GET("/ready", ct.Ready)

	// Everything else is team-scoped, so it needs the team claim.
	api := router.Group("")
	api.Use(middleware.Auth(jwtSecret))
	{
		api.GET("/todos", ct.ListTodos)
		api.GET("/todos/grouped", ct.GroupedTodos)
		api.POST("/todos", ct.CreateTodo)
		api.PATCH("/todos/:id", ct.UpdateTodo)
		api.DELETE("/todos/:id", ct.DeleteTodo)
		api.POST("/todos/bulk", ct.BulkMutate)

		api.GET("/projects", ct.ListProjects)
		api.POST("/projects", ct.CreateProject)
		api.DELETE("/projects/:id", ct.DeleteProject)
	}

	return router
}
