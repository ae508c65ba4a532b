package webserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Users struct {
	deps Deps
}

func NewUsers(deps Deps) Users {
	return Users{deps: deps}
}

// Reset removes the user from open challenges and cancels challenges they
// created, mirroring the bot-side reset command.
func (h Users) Reset(c *gin.Context) {
	userID := c.Param("id")
	log.Printf("webserver: reset of user %s from IP %s", userID, c.ClientIP())

	res, err := h.deps.Challenges.ResetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": res.Success, "message": res.Message})
}
