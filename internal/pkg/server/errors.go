package server

import (
	"net/http"
	"strconv"
	"time"

	"taskflow/internal/pkg/errorsx"
	"taskflow/internal/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorBody is the error payload carried in the response envelope.
type ErrorBody struct {
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`

	// Rate limit rejections carry the limit and when the window resets.
	Limit   int        `json:"limit,omitempty"`
	ResetAt *time.Time `json:"resetAt,omitempty"`
}

// ErrorHandler maps domain errors to HTTP status codes. Internal error
// detail never leaves the process; clients get a generic message.
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body := ErrorBody{
			Status:    http.StatusInternalServerError,
			Message:   "Internal server error",
			Path:      c.Request().URL.Path,
			Timestamp: time.Now().UTC(),
		}

		switch {
		case errorsx.IsNotFound(err):
			body.Status = http.StatusNotFound
			body.Message = err.Error()
		case errorsx.IsValidation(err):
			body.Status = http.StatusBadRequest
			body.Message = err.Error()
		default:
			if rle, ok := errorsx.IsRateLimited(err); ok {
				body.Status = http.StatusTooManyRequests
				body.Message = "Rate limit exceeded"
				body.Limit = rle.Limit
				resetAt := rle.ResetAt
				body.ResetAt = &resetAt
				c.Response().Header().Set("Retry-After", retryAfter(resetAt))
			} else if errorsx.IsDependencyUnavailable(err) {
				body.Status = http.StatusServiceUnavailable
				body.Message = "Service temporarily unavailable"
			} else if he, ok := err.(*echo.HTTPError); ok {
				body.Status = he.Code
				if msg, ok := he.Message.(string); ok {
					body.Message = msg
				}
			} else {
				log.Error("Unhandled request error",
					zap.String("path", body.Path),
					zap.Error(err),
				)
			}
		}

		if err := ErrorResponse(c, body.Status, body, http.StatusText(body.Status)); err != nil {
			log.Error("Failed to write error response", zap.Error(err))
		}
	}
}

func retryAfter(resetAt time.Time) string {
	secs := int(time.Until(resetAt).Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
