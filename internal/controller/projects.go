package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teamtodo/internal/middleware"
	"teamtodo/internal/models"
	"teamtodo/pkg/logger"
)

// ListProjects returns the team's projects.
func (ct *Controller) ListProjects(c *gin.Context) {
	ctx := c.Request.Context()
	teamID := middleware.Team(c)
	projects, err := ct.repo.ListProjects(ctx, teamID)
	if err != nil {
		ct.fail(c, err, "Failed to get projects")
		return
	}
	if projects == nil {
		projects = []models.Project{}
	}
	c.JSON(http.StatusOK, projects)
}

// CreateProject adds a project to the team.
func (ct *Controller) CreateProject(c *gin.Context) {
	ctx := c.Request.Context()
	teamID := middleware.Team(c)
	var body struct {
		Name  string `json:"name" binding:"required"`
		Color string `json:"color"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if body.Color == "" {
		body.Color = "#808080"
	}
	project := &models.Project{Name: body.Name, Color: body.Color, TeamID: teamID}
	if err := ct.repo.CreateProject(ctx, project); err != nil {
		ct.fail(c, err, "Failed to create project")
		return
	}
	c.JSON(http.StatusCreated, project)
}

// DeleteProject removes a project, first nulling every todo that references
// it so no dangling reference survives.
func (ct *Controller) DeleteProject(c *gin.Context) {
	ctx := c.Request.Context()
	teamID := middleware.Team(c)
	id := c.Param("id")
	if err := ct.repo.DeleteProject(ctx, teamID, id); err != nil {
		ct.fail(c, err, "Failed to delete project")
		return
	}
	// Referencing todos changed, so the cached list is stale.
	ct.cache.InvalidateTodos(ctx, teamID)
	logger.Info(ctx, "Project deleted", "project_id", id, "team_id", teamID)
	c.JSON(http.StatusOK, gin.H{"id": id, "message": "Project deleted"})
}
