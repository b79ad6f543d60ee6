package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/chnghia/atomic-inference-boilerplate/internal/pkg/errcode"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, handlers ...gin.HandlerFunc) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", handlers...)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestSuccessEnvelope(t *testing.T) {
	rec, env := serve(t, func(c *gin.Context) {
		Success(c, map[string]string{"unit": "summarize"})
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, env.Code)
	require.JSONEq(t, `{"unit":"summarize"}`, string(env.Data))
}

func TestErrorStopsChain(t *testing.T) {
	reached := false
	rec, env := serve(t, func(c *gin.Context) {
		Error(c, errcode.ErrTooMany, "too many requests")
	}, func(c *gin.Context) {
		reached = true
	})
	require.False(t, reached)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, errcode.ErrTooMany, env.Code)
	require.Equal(t, "too many requests", env.Message)
}

func TestAsCodeErr(t *testing.T) {
	err := AsCodeErr(errcode.ErrTemplate, "template missing")
	require.EqualError(t, err, "template missing")
	coded, ok := err.(interface{ Code() uint32 })
	require.True(t, ok)
	require.Equal(t, uint32(errcode.ErrTemplate), coded.Code())
}
