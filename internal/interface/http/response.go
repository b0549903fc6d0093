package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raporhub/rapor-hub/internal/domain/shared"
	"github.com/raporhub/rapor-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	respondWithMeta(c, status, data, nil)
}

func respondWithMeta(c *gin.Context, status int, data any, meta *ResponseMeta) {
	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = "v1"

	c.JSON(status, JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: requestID(c),
	})
}

func abortError(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, JSONResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: requestID(c),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// respondError maps domain error kinds to HTTP statuses:
// validation 400, not found 404, precondition 409, busy 429,
// unavailable 503, timeout 504, everything else 500.
func (s *Server) respondError(c *gin.Context, err error) {
	status, code := classifyError(err)

	message := err.Error()
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		message = de.Message
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			logger.Err(err),
			logger.String("path", routePath(c)),
		)
		if status == http.StatusInternalServerError {
			message = "An unexpected error occurred"
		}
	}
	if status == http.StatusTooManyRequests {
		c.Header("Retry-After", "5")
	}

	_ = c.Error(err)
	abortError(c, status, code, message, "")
}

func classifyError(err error) (int, string) {
	switch {
	case shared.IsValidation(err):
		return http.StatusBadRequest, "invalid_request"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsPrecondition(err):
		return http.StatusConflict, "precondition_failed"
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests, "busy"
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
