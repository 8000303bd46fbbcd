package item

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/itemscope/events"
	"github.com/ceyewan/itemscope/metrics"
	"github.com/ceyewan/itemscope/testkit"
	"github.com/ceyewan/itemscope/xerrors"
)

type testServer struct {
	engine   *gin.Engine
	registry *metrics.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kit := testkit.NewKit(t)
	rec, err := events.NewRecorder(kit.Registry)
	require.NoError(t, err)
	httpMetrics, err := metrics.NewHTTPServerMetrics(kit.Registry, nil)
	require.NoError(t, err)

	svc, err := NewService(testkit.NewSQLiteDB(t), WithHooks(rec), WithLogger(kit.Logger))
	require.NoError(t, err)
	require.NoError(t, svc.Migrate(context.Background()))

	engine := gin.New()
	engine.Use(metrics.GinHTTPMiddleware(httpMetrics))
	NewHandler(svc).Register(engine)
	return &testServer{engine: engine, registry: kit.Registry}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) render(t *testing.T) string {
	t.Helper()
	text, err := s.registry.Render()
	require.NoError(t, err)
	return text
}

func TestHandlerCRUD(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/items/", `{"nom":"Clavier","prix":49.5}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Clavier", created.Name)
	assert.JSONEq(t, `{"id":1,"nom":"Clavier","prix":49.5}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/items/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPut, "/items/1", `{"prix":39.5}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"nom":"Clavier","prix":39.5}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/items/?skip=0&limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":1,"nom":"Clavier","prix":39.5}]`, w.Body.String())

	w = s.do(t, http.MethodDelete, "/items/1", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	text := s.render(t)
	assert.Contains(t, text, "items_created_total 1\n")
	assert.Contains(t, text, "target_item_read_total 1\n")
	assert.Contains(t, text, "items_updated_total 1\n")
	assert.Contains(t, text, "items_read_total 1\n")
	assert.Contains(t, text, "items_deleted_total 1\n")
	assert.Contains(t, text, `http_requests_total{method="GET",route="/items/:id",status_class="2xx"} 1`)
	assert.Contains(t, text, `http_requests_total{method="POST",route="/items/",status_class="2xx"} 1`)
	assert.Contains(t, text, `http_requests_total{method="DELETE",route="/items/:id",status_class="2xx"} 1`)
	assert.Contains(t, text, "http_requests_in_flight 0\n")
}

func TestHandlerNotFound(t *testing.T) {
	s := newTestServer(t)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w := s.do(t, method, "/items/7", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"detail":"Item with id 7 not found"}`, w.Body.String())
	}
	w := s.do(t, http.MethodPut, "/items/7", `{"nom":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Item with id 7 not found"}`, w.Body.String())

	text := s.render(t)
	assert.Contains(t, text, `http_requests_total{method="GET",route="/items/:id",status_class="4xx"} 1`)
	assert.Contains(t, text, "items_deleted_total 0\n")
	assert.Contains(t, text, "target_item_read_total 0\n")
}

func TestHandlerValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing name", http.MethodPost, "/items/", `{"prix":1}`, http.StatusUnprocessableEntity},
		{"missing price", http.MethodPost, "/items/", `{"nom":"x"}`, http.StatusUnprocessableEntity},
		{"malformed json", http.MethodPost, "/items/", `{`, http.StatusUnprocessableEntity},
		{"bad id", http.MethodGet, "/items/abc", "", http.StatusUnprocessableEntity},
		{"negative skip", http.MethodGet, "/items/?skip=-1", "", http.StatusUnprocessableEntity},
		{"limit too large", http.MethodGet, "/items/?limit=1001", "", http.StatusUnprocessableEntity},
		{"zero limit", http.MethodGet, "/items/?limit=0", "", http.StatusUnprocessableEntity},
		{"huge id", http.MethodGet, "/items/99999999999999999999999", "", http.StatusNotFound},
		{"zero price allowed", http.MethodPost, "/items/", `{"nom":"free","prix":0}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestHandlerUnmatchedRoute(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/nope/123", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, s.render(t), `http_requests_total{method="GET",route="unmatched",status_class="4xx"} 1`)
}

func TestHandlerStorageFailureIsCoded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/items/1", nil)

	cause := errors.New("database is locked")
	NewHandler(nil).fail(c, 1, cause)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Internal Server Error"}`, w.Body.String())
	require.Len(t, c.Errors, 1)
	assert.Equal(t, CodeStorage, xerrors.GetCode(c.Errors.Last().Err))
	assert.ErrorIs(t, c.Errors.Last().Err, cause)
}

func TestHandlerNotFoundIsNotAttached(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/items/7", nil)

	NewHandler(nil).fail(c, 7, xerrors.Wrap(ErrNotFound, "get item"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, c.Errors)
}
