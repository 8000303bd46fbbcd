package metrics

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ceyewan/itemscope/xerrors"
)

const (
	MetricHTTPRequestsTotal          = "http_requests_total"
	MetricHTTPRequestDurationSeconds = "http_request_duration_seconds"
	MetricHTTPRequestsInFlight       = "http_requests_in_flight"
)

// HTTPServerMetricsConfig 配置 HTTP 服务器指标
type HTTPServerMetricsConfig struct {
	RequestTotalName    string
	RequestDurationName string
	InFlightName        string
	DurationBuckets     []float64
}

// DefaultHTTPServerMetricsConfig 返回默认的 HTTP 服务器指标配置
func DefaultHTTPServerMetricsConfig() *HTTPServerMetricsConfig {
	return &HTTPServerMetricsConfig{
		RequestTotalName:    MetricHTTPRequestsTotal,
		RequestDurationName: MetricHTTPRequestDurationSeconds,
		InFlightName:        MetricHTTPRequestsInFlight,
		DurationBuckets:     DefBuckets,
	}
}

// HTTPServerMetrics 封装 HTTP 服务器的请求数、耗时与进行中请求数
//
//   - http_requests_total{method,route,status_class}
//   - http_request_duration_seconds{method,route}
//   - http_requests_in_flight
type HTTPServerMetrics struct {
	requestTotal Counter
	duration     Histogram
	inFlight     Gauge
	now          func() time.Time
}

// NewHTTPServerMetrics 在注册表中注册 HTTP 服务器指标
func NewHTTPServerMetrics(reg *Registry, cfg *HTTPServerMetricsConfig) (*HTTPServerMetrics, error) {
	if reg == nil {
		return nil, xerrors.New("registry is nil")
	}
	if cfg == nil {
		cfg = DefaultHTTPServerMetricsConfig()
	}

	requestTotal, err := reg.Counter(orDefault(cfg.RequestTotalName, MetricHTTPRequestsTotal),
		"Total number of HTTP requests.",
		WithLabels(LabelMethod, LabelRoute, LabelStatusClass))
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request counter")
	}

	duration, err := reg.Histogram(orDefault(cfg.RequestDurationName, MetricHTTPRequestDurationSeconds),
		"HTTP request duration in seconds.",
		WithLabels(LabelMethod, LabelRoute),
		WithBuckets(cfg.DurationBuckets))
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request duration histogram")
	}

	inFlight, err := reg.Gauge(orDefault(cfg.InFlightName, MetricHTTPRequestsInFlight),
		"Number of HTTP requests currently being served.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create http in-flight gauge")
	}

	return &HTTPServerMetrics{
		requestTotal: requestTotal,
		duration:     duration,
		inFlight:     inFlight,
		now:          time.Now,
	}, nil
}

// RequestObservation 单个请求的观测记录，请求开始时创建，Finish 后丢弃
type RequestObservation struct {
	metrics  *HTTPServerMetrics
	start    time.Time
	method   string
	route    string
	finished atomic.Bool
}

// Start 记录请求开始，进行中请求数加一
// route 应为匹配到的路由模板（如 /items/:id），未命中时传 UnmatchedRoute
func (m *HTTPServerMetrics) Start(ctx context.Context, method, route string) *RequestObservation {
	if m == nil {
		return nil
	}
	route = strings.TrimSpace(route)
	if route == "" {
		route = UnmatchedRoute
	}
	m.inFlight.Inc(ctx)
	return &RequestObservation{
		metrics: m,
		start:   m.now(),
		method:  HTTPMethod(method),
		route:   route,
	}
}

// Finish 记录请求结束：请求数、耗时，并将进行中请求数减一
//
// 多次调用只有第一次生效。err 非空且状态码低于 400 时按 5xx 记录；
// ctx 已被取消时记录为 cancelled。
func (o *RequestObservation) Finish(ctx context.Context, status int, err error) {
	if o == nil || !o.finished.CompareAndSwap(false, true) {
		return
	}
	m := o.metrics
	elapsed := m.now().Sub(o.start)

	m.requestTotal.Inc(ctx,
		L(LabelMethod, o.method),
		L(LabelRoute, o.route),
		L(LabelStatusClass, statusClass(ctx, status, err)))
	m.duration.Record(ctx, elapsed.Seconds(),
		L(LabelMethod, o.method),
		L(LabelRoute, o.route))
	m.inFlight.Dec(ctx)
}

func statusClass(ctx context.Context, status int, err error) string {
	if ctx != nil && errors.Is(ctx.Err(), context.Canceled) {
		return StatusClassCancelled
	}
	if err != nil && status < 400 {
		return "5xx"
	}
	return HTTPStatusClass(status)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
