package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/chnghia/atomic-inference-boilerplate/internal/middleware"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/response"
	"github.com/chnghia/atomic-inference-boilerplate/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type tokenRequest struct {
	APIKey  string `json:"api_key"`
	Subject string `json:"subject"`
}

func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if req.APIKey == "" {
		req.APIKey = c.GetHeader(middleware.APIKeyHeader)
	}
	tok, err := h.auth.Exchange(req.APIKey, req.Subject)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, tok)
}
