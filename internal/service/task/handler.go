package task

import (
	"net/http"
	"strconv"
	"time"

	"taskflow/internal/pkg/errorsx"
	"taskflow/internal/pkg/logger"
	"taskflow/internal/pkg/server"

	"github.com/labstack/echo/v4"
)

// TaskHandler handles task HTTP requests
type TaskHandler struct {
	service *TaskService
	logger  *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(service *TaskService, log *logger.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  log,
	}
}

// Create handles task creation
func (h *TaskHandler) Create(c echo.Context) error {
	var dto CreateTaskDTO
	if err := c.Bind(&dto); err != nil {
		return errorsx.Validation("invalid request body")
	}

	t, err := h.service.Create(c.Request().Context(), dto)
	if err != nil {
		return err
	}

	return server.SuccessResponse(c, http.StatusCreated, t, "Task created successfully")
}

// Get handles retrieving a task by ID
func (h *TaskHandler) Get(c echo.Context) error {
	t, err := h.service.FindOne(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return server.SuccessResponse(c, http.StatusOK, t, "Task retrieved successfully")
}

// List handles listing tasks with filters and pagination
func (h *TaskHandler) List(c echo.Context) error {
	filter, err := filterFromQuery(c)
	if err != nil {
		return err
	}

	resp, err := h.service.FindAll(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	return server.SuccessResponse(c, http.StatusOK, resp, "Tasks retrieved successfully")
}

// Update handles partial task updates
func (h *TaskHandler) Update(c echo.Context) error {
	var dto UpdateTaskDTO
	if err := c.Bind(&dto); err != nil {
		return errorsx.Validation("invalid request body")
	}

	t, err := h.service.Update(c.Request().Context(), c.Param("id"), dto)
	if err != nil {
		return err
	}

	return server.SuccessResponse(c, http.StatusOK, t, "Task updated successfully")
}

// Delete handles task deletion
func (h *TaskHandler) Delete(c echo.Context) error {
	if err := h.service.Remove(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}

	return server.SuccessResponse(c, http.StatusOK, nil, "Task deleted successfully")
}

// Statistics handles the aggregate breakdown endpoint
func (h *TaskHandler) Statistics(c echo.Context) error {
	stats, err := h.service.Statistics(c.Request().Context())
	if err != nil {
		return err
	}

	return server.SuccessResponse(c, http.StatusOK, stats, "Statistics retrieved successfully")
}

// Batch handles applying one action to many tasks
func (h *TaskHandler) Batch(c echo.Context) error {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return errorsx.Validation("invalid request body")
	}

	resp, err := h.service.Batch(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return server.SuccessResponse(c, http.StatusOK, resp, "Batch processed")
}

func filterFromQuery(c echo.Context) (Filter, error) {
	var filter Filter

	if v := c.QueryParam("status"); v != "" {
		status := Status(v)
		if !status.IsValid() {
			return filter, errorsx.Validation("unknown status filter")
		}
		filter.Status = status
	}
	if v := c.QueryParam("priority"); v != "" {
		priority := Priority(v)
		if !priority.IsValid() {
			return filter, errorsx.Validation("unknown priority filter")
		}
		filter.Priority = priority
	}

	filter.UserID = c.QueryParam("userId")
	filter.Search = c.QueryParam("search")

	var err error
	if filter.DueBefore, err = timeParam(c, "dueBefore"); err != nil {
		return filter, err
	}
	if filter.DueAfter, err = timeParam(c, "dueAfter"); err != nil {
		return filter, err
	}
	if filter.CreatedBefore, err = timeParam(c, "createdBefore"); err != nil {
		return filter, err
	}
	if filter.CreatedAfter, err = timeParam(c, "createdAfter"); err != nil {
		return filter, err
	}
	if filter.UpdatedBefore, err = timeParam(c, "updatedBefore"); err != nil {
		return filter, err
	}
	if filter.UpdatedAfter, err = timeParam(c, "updatedAfter"); err != nil {
		return filter, err
	}

	filter.Page, _ = strconv.Atoi(c.QueryParam("page"))
	filter.Limit, _ = strconv.Atoi(c.QueryParam("limit"))

	return filter, nil
}

func timeParam(c echo.Context, name string) (time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errorsx.Validation(name + " must be RFC3339")
	}
	return t, nil
}
