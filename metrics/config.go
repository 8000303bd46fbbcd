package metrics

import "github.com/ceyewan/itemscope/xerrors"

// Config 指标系统配置
//
// 典型配置示例（YAML）：
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//	  port: 0            # 大于 0 时在独立端口暴露
//	  request_buckets: [0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10]
type Config struct {
	// Enabled 为 false 时不安装请求中间件，也不挂载暴露端点
	Enabled bool `mapstructure:"enabled"`

	// Path 暴露端点的路径，必须以 "/" 开头
	Path string `mapstructure:"path"`

	// Port 大于 0 时在独立端口上暴露，否则挂载在业务 HTTP 服务上
	Port int `mapstructure:"port"`

	// RequestBuckets HTTP 请求耗时直方图的桶边界，为空时使用 DefBuckets
	RequestBuckets []float64 `mapstructure:"request_buckets"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Path:    "/metrics",
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c == nil {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "metrics config is nil")
	}
	if !c.Enabled {
		return nil
	}
	if len(c.Path) == 0 || c.Path[0] != '/' {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "metrics path %q must start with /", c.Path)
	}
	if c.Port < 0 || c.Port > 65535 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "metrics port %d out of range", c.Port)
	}
	if _, err := normalizeBuckets(c.RequestBuckets); err != nil {
		return xerrors.Wrap(err, "request_buckets")
	}
	return nil
}
