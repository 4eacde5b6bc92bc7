package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formbeat/go-survey-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope every endpoint returns: a stable
// machine-readable code (see errors.go), a message safe to show to users, and
// the correlation ID echoed from X-Request-ID so a failed submission can be
// found in the logs.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"not_found"`
	Message   string `json:"message" example:"resource not found"`
}

// fail aborts the request with an ErrorResponse at the given status. Server
// errors (5xx) are also logged through the request-scoped logger so they show
// up with the request's correlation fields.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail exposes fail to the router for NoRoute/NoMethod envelopes.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
