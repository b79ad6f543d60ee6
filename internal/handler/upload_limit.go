package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errcode"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/response"
)

const defaultUploadLimit = 20 << 20

func formatUploadLimit(bytes int64) string {
	const mb = 1024 * 1024
	if bytes <= 0 {
		return "0MB"
	}
	value := bytes / mb
	if value <= 0 {
		value = 1
	}
	return strconv.FormatInt(value, 10) + "MB"
}

// limitBody caps the request body; it reports false after answering when
// the declared length is already too large.
func limitBody(c *gin.Context, limit int64) bool {
	if limit <= 0 {
		limit = defaultUploadLimit
	}
	if c.Request.ContentLength > limit {
		response.Error(c, errcode.ErrInvalidFile, "file exceeds "+formatUploadLimit(limit))
		return false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	return true
}
