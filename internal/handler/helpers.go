package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/ai"
	"github.com/chnghia/atomic-inference-boilerplate/internal/middleware"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errcode"
	appErr "github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errors"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/response"
	"github.com/chnghia/atomic-inference-boilerplate/internal/render"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, msg := classifyError(err)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("code", code),
		zap.Error(err),
	)
	if code == errcode.ErrInternal {
		logger.Error("request failed")
	} else {
		logger.Warn("request rejected")
	}
	response.Error(c, code, msg)
}

func classifyError(err error) (int, string) {
	var (
		tplMissing  *render.TemplateNotFoundError
		tplSyntax   *render.TemplateSyntaxError
		schemaErr   *ai.SchemaValidationError
		rateErr     *ai.RateLimitError
		statusErr   *ai.StatusError
		providerErr *ai.UnsupportedProviderError
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		return errcode.ErrUnauthorized, "unauthorized"
	case errors.Is(err, appErr.ErrMemoryDisabled):
		return errcode.ErrMemoryUnavailable, err.Error()
	case errors.Is(err, appErr.ErrUnsupportedFormat):
		return errcode.ErrUnsupportedFormat, err.Error()
	case errors.Is(err, appErr.ErrNotAFile):
		return errcode.ErrInvalidFile, err.Error()
	case appErr.IsNotFound(err):
		return errcode.ErrNotFound, err.Error()
	case appErr.IsInvalid(err):
		return errcode.ErrInvalid, err.Error()
	case errors.As(err, &tplMissing), errors.As(err, &tplSyntax):
		return errcode.ErrTemplate, err.Error()
	case errors.As(err, &schemaErr):
		return errcode.ErrSchemaValidation, err.Error()
	case errors.Is(err, appErr.ErrTooMany), errors.As(err, &rateErr):
		return errcode.ErrTooMany, "too many requests"
	case errors.As(err, &statusErr), errors.As(err, &providerErr), errors.Is(err, ai.ErrUnavailable):
		return errcode.ErrProvider, err.Error()
	default:
		return errcode.ErrInternal, "internal error"
	}
}

func badRequest(c *gin.Context, msg string) {
	response.Error(c, errcode.ErrInvalid, msg)
}
