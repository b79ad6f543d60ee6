package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/chnghia/atomic-inference-boilerplate/internal/config"
	"github.com/chnghia/atomic-inference-boilerplate/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Units     *UnitHandler
	Documents *DocumentHandler
	Memories  *MemoryHandler
	Agents    *AgentHandler
	AuthCfg   config.AuthConfig
	// RateLimit guards the routes that call a model; nil disables it.
	RateLimit gin.HandlerFunc
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	if deps.Auth != nil {
		api.POST("/auth/token", deps.Auth.Token)
	}

	authGroup := api.Group("")
	authGroup.Use(middleware.Auth(deps.AuthCfg))
	authGroup.GET("/units", deps.Units.List)
	authGroup.POST("/units/:name/preview", deps.Units.Preview)

	limited := authGroup.Group("")
	if deps.RateLimit != nil {
		limited.Use(deps.RateLimit)
	}
	limited.POST("/units/:name/run", deps.Units.Run)
	limited.POST("/documents/load", deps.Documents.Load)
	limited.POST("/documents/extract", deps.Documents.Extract)

	authGroup.POST("/memories", deps.Memories.Add)
	authGroup.POST("/memories/search", deps.Memories.Search)
	authGroup.DELETE("/memories/:id", deps.Memories.Delete)

	if deps.Agents != nil {
		limited.POST("/agents/react", deps.Agents.React)
		limited.POST("/agents/route", deps.Agents.Route)
	}
}
