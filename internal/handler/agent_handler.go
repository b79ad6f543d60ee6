package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/response"
	"github.com/chnghia/atomic-inference-boilerplate/internal/service"
)

type AgentHandler struct {
	agents *service.AgentService
}

func NewAgentHandler(agents *service.AgentService) *AgentHandler {
	return &AgentHandler{agents: agents}
}

type agentRequest struct {
	Query string `json:"query"`
}

func (h *AgentHandler) React(c *gin.Context) {
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	state, err := h.agents.React(c.Request.Context(), req.Query)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, state)
}

func (h *AgentHandler) Route(c *gin.Context) {
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	state, err := h.agents.Route(c.Request.Context(), req.Query)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, state)
}
