package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/config"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errcode"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/jwt"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/password"
	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/response"
)

const (
	ContextClientKey = "client"
	APIKeyHeader     = "X-API-Key"

	apiKeyClient = "api-key"
)

// Auth accepts either a bearer JWT signed with cfg.JWTSecret or an API key
// matching cfg.APIKeyHash, sent as X-API-Key or as the bearer token.
func Auth(cfg config.AuthConfig) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	return func(c *gin.Context) {
		if !cfg.Enabled() {
			c.Next()
			return
		}
		token := bearerToken(c.GetHeader("Authorization"))
		if token != "" && len(secret) > 0 {
			if claims, err := jwt.ParseToken(token, secret); err == nil {
				c.Set(ContextClientKey, claims.Subject)
				c.Next()
				return
			}
		}
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			key = token
		}
		if key != "" && cfg.APIKeyHash != "" && password.Compare(cfg.APIKeyHash, key) == nil {
			c.Set(ContextClientKey, apiKeyClient)
			c.Next()
			return
		}
		msg := "invalid credentials"
		if token == "" && key == "" {
			msg = "missing authorization"
		}
		logutil.GetLogger(c.Request.Context()).Warn("auth rejected",
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.String("reason", msg),
		)
		response.Error(c, errcode.ErrUnauthorized, msg)
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
