package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureCounter struct {
	mu      sync.Mutex
	records [][]Label
}

func (c *captureCounter) Inc(_ context.Context, labels ...Label) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := make([]Label, len(labels))
	copy(copied, labels)
	c.records = append(c.records, copied)
}

func (c *captureCounter) Add(ctx context.Context, _ float64, labels ...Label) {
	c.Inc(ctx, labels...)
}

type captureHistogram struct {
	mu      sync.Mutex
	records [][]Label
	values  []float64
}

func (h *captureHistogram) Record(_ context.Context, v float64, labels ...Label) {
	h.mu.Lock()
	defer h.mu.Unlock()
	copied := make([]Label, len(labels))
	copy(copied, labels)
	h.records = append(h.records, copied)
	h.values = append(h.values, v)
}

type captureGauge struct {
	mu    sync.Mutex
	value float64
}

func (g *captureGauge) Set(_ context.Context, v float64, _ ...Label) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

func (g *captureGauge) Add(_ context.Context, v float64, _ ...Label) {
	g.mu.Lock()
	g.value += v
	g.mu.Unlock()
}

func (g *captureGauge) Inc(ctx context.Context, labels ...Label) { g.Add(ctx, 1, labels...) }
func (g *captureGauge) Dec(ctx context.Context, labels ...Label) { g.Add(ctx, -1, labels...) }

func (g *captureGauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

func labelValue(labels []Label, key string) (string, bool) {
	for _, label := range labels {
		if label.Key == key {
			return label.Value, true
		}
	}
	return "", false
}

type captured struct {
	counter   *captureCounter
	histogram *captureHistogram
	gauge     *captureGauge
	metrics   *HTTPServerMetrics
}

func newCaptured() *captured {
	c := &captured{
		counter:   &captureCounter{},
		histogram: &captureHistogram{},
		gauge:     &captureGauge{},
	}
	c.metrics = &HTTPServerMetrics{
		requestTotal: c.counter,
		duration:     c.histogram,
		inFlight:     c.gauge,
		now:          time.Now,
	}
	return c
}

func newRouter(httpMetrics *HTTPServerMetrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinHTTPMiddleware(httpMetrics))
	return router
}

func TestGinHTTPMiddlewareUnmatchedRoute(t *testing.T) {
	c := newCaptured()
	router := newRouter(c.metrics)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/random-scan-value", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Len(t, c.counter.records, 1)

	route, ok := labelValue(c.counter.records[0], LabelRoute)
	require.True(t, ok)
	assert.Equal(t, UnmatchedRoute, route)
	class, _ := labelValue(c.counter.records[0], LabelStatusClass)
	assert.Equal(t, "4xx", class)
	assert.Equal(t, 0.0, c.gauge.Value())
}

func TestGinHTTPMiddlewareUsesRouteTemplate(t *testing.T) {
	c := newCaptured()
	router := newRouter(c.metrics)
	router.GET("/items/:id", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/123", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, c.counter.records, 1)
	assert.Equal(t, []Label{
		L(LabelMethod, http.MethodGet),
		L(LabelRoute, "/items/:id"),
		L(LabelStatusClass, "2xx"),
	}, c.counter.records[0])

	require.Len(t, c.histogram.records, 1)
	assert.Equal(t, []Label{L(LabelMethod, http.MethodGet), L(LabelRoute, "/items/:id")}, c.histogram.records[0])
	assert.GreaterOrEqual(t, c.histogram.values[0], 0.0)
}

func TestGinHTTPMiddlewareRecordsHandlerError(t *testing.T) {
	c := newCaptured()
	router := newRouter(c.metrics)
	router.GET("/fail", func(ctx *gin.Context) {
		_ = ctx.Error(errors.New("db down"))
	})
	router.GET("/not-found", func(ctx *gin.Context) {
		_ = ctx.Error(errors.New("missing"))
		ctx.JSON(http.StatusNotFound, gin.H{"detail": "missing"})
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/not-found", nil))

	require.Len(t, c.counter.records, 2)
	class, _ := labelValue(c.counter.records[0], LabelStatusClass)
	assert.Equal(t, "5xx", class)
	class, _ = labelValue(c.counter.records[1], LabelStatusClass)
	assert.Equal(t, "4xx", class)
}

func TestGinHTTPMiddlewarePanicPropagates(t *testing.T) {
	c := newCaptured()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	var recovered any
	router.Use(gin.CustomRecoveryWithWriter(io.Discard, func(ctx *gin.Context, err any) {
		recovered = err
		ctx.AbortWithStatus(http.StatusInternalServerError)
	}))
	router.Use(GinHTTPMiddleware(c.metrics))
	router.GET("/panic", func(*gin.Context) {
		panic("handler exploded")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, "handler exploded", recovered)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, c.counter.records, 1)
	class, _ := labelValue(c.counter.records[0], LabelStatusClass)
	assert.Equal(t, "5xx", class)
	assert.Equal(t, 0.0, c.gauge.Value())
}

func TestGinHTTPMiddlewareCancelledRequest(t *testing.T) {
	c := newCaptured()
	router := newRouter(c.metrics)
	router.GET("/slow", func(ctx *gin.Context) {
		<-ctx.Request.Context().Done()
		ctx.Status(http.StatusOK)
	})

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/slow", nil).WithContext(reqCtx)
	router.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, c.counter.records, 1)
	class, _ := labelValue(c.counter.records[0], LabelStatusClass)
	assert.Equal(t, StatusClassCancelled, class)
	assert.Equal(t, 0.0, c.gauge.Value())
}

func TestGinHTTPMiddlewareInFlightDuringRequest(t *testing.T) {
	c := newCaptured()
	router := newRouter(c.metrics)
	var during float64
	router.GET("/peek", func(ctx *gin.Context) {
		during = c.gauge.Value()
		ctx.Status(http.StatusNoContent)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/peek", nil))

	assert.Equal(t, 1.0, during)
	assert.Equal(t, 0.0, c.gauge.Value())
	class, _ := labelValue(c.counter.records[0], LabelStatusClass)
	assert.Equal(t, "2xx", class)
}

func TestGinHTTPMiddlewareInFlightNoLeakUnderConcurrency(t *testing.T) {
	for _, n := range []int{50, 1000} {
		reg := NewRegistry()
		httpMetrics, err := NewHTTPServerMetrics(reg, nil)
		require.NoError(t, err)

		router := newRouter(httpMetrics)
		router.GET("/ok", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
		router.GET("/err", func(ctx *gin.Context) { ctx.AbortWithStatus(http.StatusInternalServerError) })

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				path := "/ok"
				if i%3 == 0 {
					path = "/err"
				}
				req := httptest.NewRequest(http.MethodGet, path, nil)
				if i%7 == 0 {
					ctx, cancel := context.WithCancel(req.Context())
					cancel()
					req = req.WithContext(ctx)
				}
				router.ServeHTTP(httptest.NewRecorder(), req)
			}(i)
		}
		wg.Wait()

		inFlight, err := reg.Gauge(MetricHTTPRequestsInFlight, "")
		require.NoError(t, err)
		g, err := inFlight.With()
		require.NoError(t, err)
		assert.Equal(t, 0.0, g.Value(), "in-flight after %d requests", n)

		duration, err := reg.Histogram(MetricHTTPRequestDurationSeconds, "",
			WithLabels(LabelMethod, LabelRoute), WithBuckets(DefBuckets))
		require.NoError(t, err)
		var total uint64
		for _, route := range []string{"/ok", "/err"} {
			h, err := duration.With(L(LabelMethod, http.MethodGet), L(LabelRoute, route))
			require.NoError(t, err)
			total += h.Snapshot().Count
		}
		assert.Equal(t, uint64(n), total)
	}
}

func TestGinHTTPMiddlewareNilMetricsPassesThrough(t *testing.T) {
	router := newRouter(nil)
	router.GET("/ok", func(ctx *gin.Context) { ctx.String(http.StatusOK, "fine") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fine", w.Body.String())
}
