package webserver

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func attachRoutes(r *gin.Engine, deps Deps) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	challengesH := NewChallenges(deps)
	usersH := NewUsers(deps)

	v1 := r.Group("/v1")
	v1.Use(TokenMiddleware(deps.APIToken))
	{
		v1.GET("/challenges", challengesH.List)
		v1.GET("/challenges/:id", challengesH.Get)
		v1.POST("/challenges/:id/status", challengesH.SetStatus)
		v1.POST("/challenges/:id/complete", challengesH.ForceComplete)
		v1.DELETE("/challenges/:id", challengesH.Delete)
		v1.POST("/users/:id/reset", usersH.Reset)
	}
}

// TokenMiddleware guards the admin API with a static bearer token.
func TokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"err": "admin API token not configured"})
			c.Abort()
			return
		}
		header := c.GetHeader("Authorization")
		presented := strings.TrimPrefix(header, "Bearer ")
		if presented == header || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"err": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
