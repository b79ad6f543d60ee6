package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/response"
	"github.com/chnghia/atomic-inference-boilerplate/internal/service"
)

type UnitHandler struct {
	inference *service.InferenceService
}

func NewUnitHandler(inference *service.InferenceService) *UnitHandler {
	return &UnitHandler{inference: inference}
}

func (h *UnitHandler) List(c *gin.Context) {
	response.Success(c, gin.H{"units": h.inference.List()})
}

func (h *UnitHandler) Run(c *gin.Context) {
	var req service.RunInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	res, err := h.inference.Run(c.Request.Context(), c.Param("name"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *UnitHandler) Preview(c *gin.Context) {
	var req service.RunInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	res, err := h.inference.Preview(c.Request.Context(), c.Param("name"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}
