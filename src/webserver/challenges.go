package webserver

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/commforge/challengebot/src/repo"
	"github.com/commforge/challengebot/src/types"
)

type Challenges struct {
	deps Deps
}

func NewChallenges(deps Deps) Challenges {
	return Challenges{deps: deps}
}

func (h Challenges) List(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", types.HubRecruiting, types.HubActive, types.HubEvaluating,
		types.HubCompleted, types.HubFailed, types.HubCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"err": "unknown status"})
		return
	}

	hubs, err := h.deps.Hubs.ListByStatus(status, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": hubs})
}

func (h Challenges) Get(c *gin.Context) {
	hub, err := h.deps.Hubs.Get(c.Param("id"))
	if errors.Is(err, types.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "challenge not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	participants, err := h.deps.Participants.ListByHub(hub.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	submissions, err := h.deps.Submissions.ListByHub(hub.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	resp := gin.H{
		"challenge":    hub,
		"participants": participants,
		"submissions":  submissions,
	}
	if eval, err := h.deps.Evaluations.GetByHub(hub.ID); err == nil {
		jurors, _ := h.deps.Evaluators.ListByEvaluation(eval.ID)
		resp["evaluation"] = eval
		resp["jurors"] = jurors
	}
	c.JSON(http.StatusOK, resp)
}

// SetStatus overrides a hub's status directly. Operator tooling for
// stuck records; normal lifecycle goes through the bot.
func (h Challenges) SetStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required,oneof=recruiting active evaluating completed failed cancelled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	id := c.Param("id")
	if _, err := h.deps.Hubs.Get(id); errors.Is(err, types.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "challenge not found"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	log.Printf("webserver: status override of challenge %s to %s from IP %s", id, req.Status, c.ClientIP())
	if err := h.deps.Hubs.Update(id, repo.HubUpdate{Status: &req.Status}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ForceComplete closes an open evaluation with an explicit result,
// bypassing votes and artifact checks.
func (h Challenges) ForceComplete(c *gin.Context) {
	var req struct {
		Result string `json:"result" binding:"required,oneof=success failed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	eval, err := h.deps.Evaluations.GetByHub(c.Param("id"))
	if errors.Is(err, types.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "no evaluation for this challenge"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	log.Printf("webserver: force-complete of evaluation %s as %s from IP %s", eval.ID, req.Result, c.ClientIP())
	res, err := h.deps.EvalService.ForceComplete(c.Request.Context(), eval.ID, h.deps.AdminUserID, req.Result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	if !res.Success {
		c.JSON(http.StatusConflict, gin.H{"err": res.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": req.Result})
}

// Delete purges a hub and every dependent record.
func (h Challenges) Delete(c *gin.Context) {
	id := c.Param("id")
	log.Printf("webserver: purge of challenge %s from IP %s", id, c.ClientIP())
	if err := h.deps.Hubs.Purge(id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"err": "challenge not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
