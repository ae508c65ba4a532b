// Package webserver exposes the admin HTTP API for inspecting and
// managing challenges out of band.
package webserver

import (
	"github.com/gin-gonic/gin"

	"github.com/commforge/challengebot/src/components/challenge"
	"github.com/commforge/challengebot/src/components/evaluation"
	"github.com/commforge/challengebot/src/repo"
)

type Deps struct {
	Hubs         *repo.Hubs
	Participants *repo.Participants
	Evaluations  *repo.Evaluations
	Evaluators   *repo.Evaluators
	Submissions  *repo.Submissions
	Challenges   *challenge.Service
	EvalService  *evaluation.Service
	AdminUserID  string
	APIToken     string
}

func New(deps Deps) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, deps)
	return g
}
