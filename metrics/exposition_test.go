package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmptyRegistry(t *testing.T) {
	reg := NewRegistry()
	out, err := reg.Render()
	require.NoError(t, err)
	assert.Empty(t, out)

	// 已注册但还没有任何序列的指标不输出
	_, err = reg.Counter("unused_total", "never written")
	require.NoError(t, err)
	out, err = reg.Render()
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRenderCounterScenario(t *testing.T) {
	reg := NewRegistry()
	vec, err := reg.Counter("requests_total", "Total requests.", WithLabels("method", "route", "status"))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		vec.Inc(ctx, L("method", "GET"), L("route", "/items"), L("status", "200"))
	}

	out, err := reg.Render()
	require.NoError(t, err)
	assert.Equal(t, `# HELP requests_total Total requests.
# TYPE requests_total counter
requests_total{method="GET",route="/items",status="200"} 3
`, out)

	expected := `
# HELP requests_total Total requests.
# TYPE requests_total counter
requests_total{method="GET",route="/items",status="200"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "requests_total"))
}

func TestRenderHistogramScenario(t *testing.T) {
	reg := NewRegistry()
	vec, err := reg.Histogram("latency_seconds", "Request latency.", WithBuckets([]float64{0.1, 0.5, 1.0}))
	require.NoError(t, err)

	ctx := context.Background()
	for _, v := range []float64{0.05, 0.3, 0.7, 2.0} {
		vec.Record(ctx, v)
	}

	out, err := reg.Render()
	require.NoError(t, err)
	assert.Contains(t, out, "# TYPE latency_seconds histogram\n")
	assert.Contains(t, out, `latency_seconds_bucket{le="0.1"} 1`+"\n")
	assert.Contains(t, out, `latency_seconds_bucket{le="0.5"} 2`+"\n")
	assert.Contains(t, out, `latency_seconds_bucket{le="1"} 3`+"\n")
	assert.Contains(t, out, `latency_seconds_bucket{le="+Inf"} 4`+"\n")
	assert.Contains(t, out, "latency_seconds_sum 3.05")
	assert.Contains(t, out, "latency_seconds_count 4\n")
	assert.Equal(t, 1, strings.Count(out, `le="+Inf"`))
}

func TestRenderOrderAndValidity(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	gauge, err := reg.Gauge("b_gauge", "")
	require.NoError(t, err)
	counter, err := reg.Counter("a_total", "A counter.", WithLabels("k"))
	require.NoError(t, err)

	counter.Inc(ctx, L("k", "z"))
	counter.Inc(ctx, L("k", "a"))
	gauge.Set(ctx, -1.5)

	out, err := reg.Render()
	require.NoError(t, err)

	// 指标按注册顺序，序列按插入顺序
	assert.Less(t, strings.Index(out, "b_gauge"), strings.Index(out, "a_total"))
	assert.Less(t, strings.Index(out, `a_total{k="z"}`), strings.Index(out, `a_total{k="a"}`))
	assert.NotContains(t, out, "# HELP b_gauge")
	assert.Contains(t, out, "b_gauge -1.5\n")

	// 输出必须能被标准解析器解析
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(out))
	require.NoError(t, err)
	assert.Len(t, families, 2)
}

func TestRenderEscapesLabelValues(t *testing.T) {
	reg := NewRegistry()
	vec, err := reg.Counter("escaped_total", "", WithLabels("v"))
	require.NoError(t, err)
	vec.Inc(context.Background(), L("v", "a\"b\\c\nd"))

	out, err := reg.Render()
	require.NoError(t, err)
	assert.Contains(t, out, `escaped_total{v="a\"b\\c\nd"} 1`)
}

func TestRenderWhileWriting(t *testing.T) {
	reg := NewRegistry()
	counter, err := reg.Counter("busy_total", "", WithLabels("w"))
	require.NoError(t, err)
	hist, err := reg.Histogram("busy_seconds", "")
	require.NoError(t, err)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				counter.Inc(ctx, L("w", string(rune('a'+i))))
				hist.Record(ctx, float64(j)/100)
			}
		}(i)
	}

	for i := 0; i < 20; i++ {
		_, err := reg.Render()
		require.NoError(t, err)
	}
	wg.Wait()

	out, err := reg.Render()
	require.NoError(t, err)
	assert.Contains(t, out, "busy_seconds_count 4000\n")
}

func TestHandlerServesTextFormat(t *testing.T) {
	reg := NewRegistry()
	vec, err := reg.Counter("scraped_total", "Scrapes.")
	require.NoError(t, err)
	vec.Inc(context.Background())

	srv := httptest.NewServer(reg.Handler())
	defer srv.Close()

	// 重复采集不会重置计数
	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"), resp.Header.Get("Content-Type"))
		assert.Contains(t, string(body), "scraped_total 1\n")
	}
}

func TestHandlerReturns500WhenGatherFails(t *testing.T) {
	failing := prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		return nil, errors.New("snapshot failed")
	})

	w := httptest.NewRecorder()
	NewHandler(failing, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	_, err := Render(failing)
	assert.Error(t, err)
}
