package db

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/itemscope/clog"
	"github.com/ceyewan/itemscope/metrics"
)

// Option 配置 DB 实例的选项
type Option func(*options)

// options 内部选项结构
type options struct {
	logger     clog.Logger
	tracer     trace.TracerProvider
	registry   *metrics.Registry
	silentMode bool // 静默模式，禁用 SQL 日志输出
}

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("db")
		}
	}
}

// WithTracer 注入 TracerProvider，为每条 SQL 生成 Span
func WithTracer(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracer = tp
	}
}

// WithRegistry 注入指标注册表，启用查询耗时直方图
func WithRegistry(reg *metrics.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithSilentMode 启用静默模式，禁用 SQL 日志输出
// 适用于测试环境或不需要 SQL 日志的场景
func WithSilentMode() Option {
	return func(o *options) {
		o.silentMode = true
	}
}
