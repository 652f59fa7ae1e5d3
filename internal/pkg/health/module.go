package health

import (
	"net/http"

	"taskflow/internal/pkg/server"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// Module exports the health module for FX
var Module = fx.Module("health",
	fx.Provide(
		NewPostgresChecker,
		NewRedisChecker,
		func(pg *PostgresChecker, rd *RedisChecker) *Service {
			return NewService(pg, rd)
		},
	),
	fx.Invoke(registerRoutes),
)

func registerRoutes(srv *server.Server, service *Service) {
	e := srv.GetEcho()

	e.GET("/health", func(c echo.Context) error {
		resp := service.Check(c.Request().Context())
		status := http.StatusOK
		if resp.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, resp)
	})

	// Liveness only reports that the process can respond
	e.GET("/health/live", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
}
