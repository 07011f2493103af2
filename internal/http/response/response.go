package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps err through apierr.From. Internal errors do not leak their message.
func RespondAPIError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	ae := apierr.From(err)
	if ae == nil {
		ae = apierr.Internal("internal", nil)
	}
	status := ae.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	code := ae.Code
	if code == "" {
		code = "internal"
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		c.JSON(status, ErrorEnvelope{Error: APIError{Message: "internal error", Code: code}})
		return
	}
	RespondError(c, status, code, ae)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
