// Package testkit 提供测试共用的依赖构造：日志、指标注册表、数据库连接。
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/itemscope/clog"
	"github.com/ceyewan/itemscope/metrics"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx      context.Context
	Logger   clog.Logger
	Registry *metrics.Registry
}

// NewKit 返回一个包含默认依赖的测试工具包
// 每个 Kit 持有独立的注册表，测试之间不共享指标状态
func NewKit(t *testing.T) *Kit {
	t.Helper()
	logger := NewLogger()
	return &Kit{
		Ctx:      context.Background(),
		Logger:   logger,
		Registry: metrics.NewRegistry(metrics.WithLogger(logger)),
	}
}

// NewLogger 返回一个用于测试的 logger
// 只输出 warn 及以上级别，避免淹没测试输出
func NewLogger() clog.Logger {
	cfg := clog.NewDevDefaultConfig()
	cfg.Level = "warn"
	logger, err := clog.New(cfg)
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewContext 返回一个带有超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)
// 用于生成唯一的内存数据库名或表名后缀，避免测试间数据冲突
func NewID() string {
	return uuid.New().String()[0:8]
}
