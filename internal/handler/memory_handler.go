package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/chnghia/atomic-inference-boilerplate/internal/memory"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/response"
	"github.com/chnghia/atomic-inference-boilerplate/internal/service"
)

type MemoryHandler struct {
	memories *service.MemoryService
}

func NewMemoryHandler(memories *service.MemoryService) *MemoryHandler {
	return &MemoryHandler{memories: memories}
}

type memoryDocument struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// addMemoryRequest takes a single document or a list of them.
type addMemoryRequest struct {
	memoryDocument
	Documents []memoryDocument `json:"documents"`
}

type searchMemoryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (h *MemoryHandler) Add(c *gin.Context) {
	var req addMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	items := req.Documents
	if req.Content != "" {
		items = append([]memoryDocument{req.memoryDocument}, items...)
	}
	if len(items) == 0 {
		badRequest(c, "content is required")
		return
	}
	docs := make([]memory.Document, 0, len(items))
	for _, it := range items {
		docs = append(docs, memory.Document{Content: it.Content, Metadata: it.Metadata})
	}
	ids, err := h.memories.Add(c.Request.Context(), docs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ids": ids})
}

func (h *MemoryHandler) Search(c *gin.Context) {
	var req searchMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	chunks, err := h.memories.Search(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"memories": chunks, "context": memory.FormatForPrompt(chunks)})
}

func (h *MemoryHandler) Delete(c *gin.Context) {
	if err := h.memories.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": c.Param("id")})
}
