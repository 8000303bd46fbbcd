package server

import (
	"time"

	"github.com/ceyewan/itemscope/metrics"
	"github.com/ceyewan/itemscope/xerrors"
)

// Config HTTP 服务配置
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// ServiceName 非空时安装链路追踪中间件
	ServiceName string

	Metrics metrics.Config
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

func (c *Config) validate() error {
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "server timeouts must not be negative")
	}
	return c.Metrics.Validate()
}
