package task

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskflow/internal/pkg/logger"
	"taskflow/internal/pkg/rate"
	"taskflow/internal/pkg/server"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFixture struct {
	echo  *echo.Echo
	store *fakeStore
}

func newHandlerFixture(t *testing.T, limit int) *handlerFixture {
	t.Helper()

	store := newFakeStore()
	svc := newTestService(store, &fakeProducer{})
	handler := NewTaskHandler(svc, logger.NewNop())

	storage := rate.NewMemoryStorage()
	t.Cleanup(func() { storage.Close() })
	limiter, err := rate.New(rate.Config{Limit: limit, Window: time.Minute}, storage, logger.NewNop())
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = server.ErrorHandler(logger.NewNop())
	RegisterTaskRoutes(e, handler, limiter)
	return &handlerFixture{echo: e, store: store}
}

func (f *handlerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateAndGet(t *testing.T) {
	f := newHandlerFixture(t, 100)

	rec := f.do(http.MethodPost, "/api/v1/tasks", `{"title":"Write report"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), "Write report")
}

func TestHandlerGetMissingTask(t *testing.T) {
	f := newHandlerFixture(t, 100)

	rec := f.do(http.MethodGet, "/api/v1/tasks/"+uuid.New().String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestHandlerCreateValidationFailure(t *testing.T) {
	f := newHandlerFixture(t, 100)

	rec := f.do(http.MethodPost, "/api/v1/tasks", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerListFilterValidation(t *testing.T) {
	f := newHandlerFixture(t, 100)

	rec := f.do(http.MethodGet, "/api/v1/tasks?status=BOGUS", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRateLimit(t *testing.T) {
	f := newHandlerFixture(t, 2)

	for i := 0; i < 2; i++ {
		rec := f.do(http.MethodGet, "/api/v1/tasks", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := f.do(http.MethodGet, "/api/v1/tasks", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Other operations for the same client have their own counter.
	rec = f.do(http.MethodGet, "/api/v1/tasks/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerBatch(t *testing.T) {
	f := newHandlerFixture(t, 100)

	rec := f.do(http.MethodPost, "/api/v1/tasks", `{"title":"a"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	missing := uuid.New().String()
	rec = f.do(http.MethodPost, "/api/v1/tasks/batch",
		`{"tasks":["`+missing+`"],"action":"complete"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failed"`)
}
