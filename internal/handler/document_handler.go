package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errcode"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/response"
	"github.com/chnghia/atomic-inference-boilerplate/internal/service"
)

type DocumentHandler struct {
	documents   *service.DocumentService
	uploadLimit int64
	// allowPaths lets JSON requests name files on the server's disk.
	allowPaths bool
}

func NewDocumentHandler(documents *service.DocumentService, uploadLimit int64, allowPaths bool) *DocumentHandler {
	return &DocumentHandler{documents: documents, uploadLimit: uploadLimit, allowPaths: allowPaths}
}

type documentRequest struct {
	Path string `json:"path"`
	Save bool   `json:"save"`
}

// Load accepts either a multipart "file" upload or {"path": ...}.
func (h *DocumentHandler) Load(c *gin.Context) {
	h.withDocument(c, func(path string, _ bool) error {
		doc, err := h.documents.Load(c.Request.Context(), path)
		if err != nil {
			return err
		}
		response.Success(c, doc)
		return nil
	})
}

func (h *DocumentHandler) Extract(c *gin.Context) {
	h.withDocument(c, func(path string, save bool) error {
		res, err := h.documents.Extract(c.Request.Context(), path, save)
		if err != nil {
			return err
		}
		response.Success(c, res)
		return nil
	})
}

func (h *DocumentHandler) withDocument(c *gin.Context, fn func(path string, save bool) error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if !limitBody(c, h.uploadLimit) {
			return
		}
		file, err := c.FormFile("file")
		if err != nil {
			response.Error(c, errcode.ErrInvalidFile, "file is required")
			return
		}
		save, _ := strconv.ParseBool(c.PostForm("save"))
		opened, err := file.Open()
		if err != nil {
			response.Error(c, errcode.ErrInvalidFile, "failed to open file")
			return
		}
		defer opened.Close()
		err = h.documents.WithUpload(c.Request.Context(), file.Filename, opened, func(path string) error {
			return fn(path, save)
		})
		if err != nil {
			handleError(c, err)
		}
		return
	}
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Path) == "" {
		badRequest(c, "path or file is required")
		return
	}
	if !h.allowPaths {
		badRequest(c, "server paths are disabled, upload the file instead")
		return
	}
	if err := fn(req.Path, req.Save); err != nil {
		handleError(c, err)
	}
}
