// Package metrics 为 itemscope 提供进程内的指标收集与暴露能力。
//
// 核心概念：
//   - Registry：进程级的指标注册表，启动时创建一次，通过显式引用注入到中间件与业务代码中
//   - Desc：指标描述（名称、类型、标签名、桶边界），注册后不可变
//   - Series：某个标签取值组合对应的一条时间序列
//
// Counter、Gauge、Histogram 三种类型均支持多 goroutine 并发写入；
// Registry 实现 prometheus.Gatherer，暴露端点基于 promhttp 与 expfmt 输出 Prometheus 文本格式。
//
// 快速开始：
//
//	reg := metrics.NewRegistry(metrics.WithLogger(logger))
//
//	requests, err := reg.Counter("http_requests_total", "HTTP 请求总数",
//	    metrics.WithLabels("method", "route", "status_class"))
//	if err != nil {
//	    return err // 注册冲突属于启动期错误
//	}
//
//	requests.Inc(ctx, metrics.L("method", "GET"), metrics.L("route", "/items/"), metrics.L("status_class", "2xx"))
//
//	router.GET("/metrics", gin.WrapH(reg.Handler()))
package metrics

import "context"

// Counter 计数器接口
// 用于记录只增不减的累计值，例如请求数、创建的条目数
//
// 实现不会向调用方返回错误：非法增量或标签不匹配时记录告警日志并丢弃本次观测
//
// 使用示例：
//
//	counter, _ := reg.Counter("items_created_total", "创建的条目总数")
//	counter.Inc(ctx)
//	counter.Add(ctx, 5)
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的正数
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘接口
// 用于记录可以任意增减的瞬时值，例如进行中的请求数、连接池状态
type Gauge interface {
	// Set 覆盖为给定的值
	Set(ctx context.Context, val float64, labels ...Label)

	// Add 增加给定的值，可为负数
	Add(ctx context.Context, val float64, labels ...Label)

	// Inc 增加 1
	Inc(ctx context.Context, labels ...Label)

	// Dec 减少 1
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 直方图接口
// 用于记录值的分布，例如请求耗时、查询耗时
//
// 使用示例：
//
//	h, _ := reg.Histogram("http_request_duration_seconds", "HTTP 请求耗时",
//	    metrics.WithLabels("method", "route"),
//	    metrics.WithBuckets([]float64{0.1, 0.5, 1}),
//	)
//	h.Record(ctx, 0.123, metrics.L("method", "GET"), metrics.L("route", "/items/"))
type Histogram interface {
	// Record 记录一次观测值，值必须是有限数
	Record(ctx context.Context, val float64, labels ...Label)
}

// MetricOption 指标配置选项函数类型
type MetricOption func(*MetricOptions)

// MetricOptions 创建指标时的可选配置
type MetricOptions struct {
	// LabelNames 指标声明的标签名，顺序即输出顺序
	LabelNames []string

	// Buckets 直方图桶边界，严格递增；为空时使用 DefBuckets
	// 对 Counter 与 Gauge 无效
	Buckets []float64
}

// WithLabels 声明指标的标签名
// 之后的每次写入都必须恰好提供这些标签（顺序不限）
func WithLabels(names ...string) MetricOption {
	return func(o *MetricOptions) {
		o.LabelNames = append(o.LabelNames, names...)
	}
}

// WithBuckets 设置直方图的桶边界
func WithBuckets(buckets []float64) MetricOption {
	return func(o *MetricOptions) {
		o.Buckets = append([]float64(nil), buckets...)
	}
}

func applyMetricOptions(opts []MetricOption) *MetricOptions {
	o := &MetricOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
