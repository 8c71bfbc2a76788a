package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"teamtodo/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an id for log correlation: incoming ids
// are honored, otherwise one is generated. Downstream handlers log through
// the request context, so every line carries the id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// Claims is the token payload: subject is the user, Team the tenant every
// query is scoped by.
type Claims struct {
	Team string `json:"team"`
	jwt.RegisteredClaims
}

// Auth verifies the bearer token and puts "user" and "team" on the request
// context. Token issuance lives with the identity provider; only verification
// happens here.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		auth := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if auth == "" || !strings.HasPrefix(auth, prefix) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			logger.Debug(ctx, "Missing or invalid Authorization header")
			c.Abort()
			return
		}
		tokenStr := strings.TrimSpace(auth[len(prefix):])
		if secret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server misconfiguration"})
			c.Abort()
			return
		}
		token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			logger.Debug(ctx, "JWT parse failed", "error", err)
			c.Abort()
			return
		}
		claims := token.Claims.(*Claims)
		if claims.Team == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Token carries no team"})
			c.Abort()
			return
		}
		c.Set("user", claims.Subject)
		c.Set("team", claims.Team)
		c.Next()
	}
}

// Team returns the authenticated tenant id, or "" when unauthenticated.
func Team(c *gin.Context) string {
	v, _ := c.Get("team")
	team, _ := v.(string)
	return team
}
