package rate

import (
	"github.com/labstack/echo/v4"
)

// Middleware guards an operation with the limiter. The counter key combines
// the client IP with the operation name so each endpoint gets its own window.
func Middleware(limiter *Limiter, operation string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := Key(c.RealIP(), operation)

			if _, err := limiter.Allow(c.Request().Context(), key); err != nil {
				return err
			}
			return next(c)
		}
	}
}
