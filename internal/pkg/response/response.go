// Package response writes the {code, msg, data} envelope shared by every
// API route. Failures keep HTTP 200 and carry an errcode value in code.
package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

type apiError struct {
	code uint32
	msg  string
}

func (e apiError) Error() string {
	return e.msg
}

func (e apiError) Code() uint32 {
	return e.code
}

// AsCodeErr pairs an errcode value with the message shown to the caller.
func AsCodeErr(code int, msg string) error {
	return apiError{code: uint32(code), msg: msg}
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error writes the failure envelope and aborts the remaining handlers.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, AsCodeErr(code, message))
}
