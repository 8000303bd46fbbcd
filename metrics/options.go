package metrics

import "github.com/ceyewan/itemscope/clog"

// Option 配置 Registry 的选项函数类型
type Option func(*options)

type options struct {
	// logger 记录被丢弃的观测与暴露失败，默认 clog.Discard()
	logger clog.Logger
}

// WithLogger 注入日志记录器
// 组件会自动为 logger 添加 "metrics" 命名空间
//
// 使用示例：
//
//	logger := clog.MustNew(&clog.Config{Level: "info", Format: "json", Output: "stdout"})
//	reg := metrics.NewRegistry(metrics.WithLogger(logger))
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("metrics")
		}
	}
}
