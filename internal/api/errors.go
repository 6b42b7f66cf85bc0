package api

import (
	"crypto/rand"
	"time"

	"github.com/labstack/echo/v4"
)

// Error codes from spec.md §6's "Error payload shape".
const (
	codeBadRequest        = "BAD_REQUEST"
	codeUnauthorized      = "UNAUTHORIZED"
	codeSessionNotFound   = "SESSION_NOT_FOUND"
	codePolicyViolation   = "POLICY_VIOLATION"
	codeDecodeFailed      = "DECODE_FAILED"
	codeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	codeNotFound          = "NOT_FOUND"
	codeInternalError     = "INTERNAL_SERVER_ERROR"
)

// errorResponse is the exact JSON shape spec.md §6 requires for every
// non-2xx response.
type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId"`
}

func writeError(ctx echo.Context, code, message string, status int) error {
	return ctx.JSON(status, errorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
		RequestID: newRequestID(),
	})
}

// newRequestID generates a short cryptographically-random identifier,
// grounded on the teacher's generateCorrelationID helper.
func newRequestID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 12

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "req-rand-unavailable"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}
