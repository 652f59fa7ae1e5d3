package task

import (
	"taskflow/internal/pkg/rate"

	"github.com/labstack/echo/v4"
)

// RegisterTaskRoutes registers task routes. Every route is guarded by the
// fixed-window limiter, keyed per client and operation.
func RegisterTaskRoutes(e *echo.Echo, handler *TaskHandler, limiter *rate.Limiter) {
	taskGroup := e.Group("/api/v1/tasks")

	taskGroup.POST("", handler.Create, rate.Middleware(limiter, "tasks.create"))
	taskGroup.GET("", handler.List, rate.Middleware(limiter, "tasks.list"))
	taskGroup.GET("/stats", handler.Statistics, rate.Middleware(limiter, "tasks.stats"))
	taskGroup.POST("/batch", handler.Batch, rate.Middleware(limiter, "tasks.batch"))
	taskGroup.GET("/:id", handler.Get, rate.Middleware(limiter, "tasks.get"))
	taskGroup.PATCH("/:id", handler.Update, rate.Middleware(limiter, "tasks.update"))
	taskGroup.DELETE("/:id", handler.Delete, rate.Middleware(limiter, "tasks.delete"))
}
