package db

import (
	"time"

	"github.com/ceyewan/itemscope/xerrors"
)

// Config DB 组件配置
type Config struct {
	// SlowThreshold 超过该耗时的 SQL 以 warn 级别记录 (默认: 200ms)
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`

	// LogSQL 以 debug 级别记录每条 SQL，对应 DEBUG_MODE
	LogSQL bool `mapstructure:"log_sql"`

	// PoolInterval 连接池指标的推送间隔 (默认: 15s)
	PoolInterval time.Duration `mapstructure:"pool_interval"`
}

// setDefaults 设置配置的默认值（内部使用）
func (c *Config) setDefaults() {
	if c.SlowThreshold == 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}
	if c.PoolInterval == 0 {
		c.PoolInterval = 15 * time.Second
	}
}

// validate 验证配置的有效性（内部使用）
func (c *Config) validate() error {
	if c.SlowThreshold < 0 {
		return xerrors.Wrapf(ErrInvalidConfig, "slow_threshold %s is negative", c.SlowThreshold)
	}
	if c.PoolInterval < 0 {
		return xerrors.Wrapf(ErrInvalidConfig, "pool_interval %s is negative", c.PoolInterval)
	}
	return nil
}
