package config

import (
	"context"
	"strings"
)

// Config 加载器配置
type Config struct {
	Name      string   // 配置文件名称（不含扩展名），默认 "config"
	Paths     []string // 配置文件搜索路径，默认 [".", "./config"]
	FileType  string   // 配置文件类型 (yaml, json, etc.)
	EnvPrefix string   // 环境变量前缀，默认 "ITEMSCOPE"

	// Defaults 扁平 key 的默认值，例如 "http.addr"
	// 只有 Viper 已知的 key 才能被环境变量覆盖后进入 Unmarshal，因此应为每个字段提供默认值
	Defaults map[string]any

	// EnvBindings 额外绑定的无前缀环境变量，key -> 环境变量名，例如 "database.dsn" -> "DATABASE_URL"
	EnvBindings map[string]string
}

// validate 设置默认值并验证配置
func (c *Config) validate() error {
	if c.Name == "" {
		c.Name = "config"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = "ITEMSCOPE"
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
	return nil
}

// New 创建配置加载器
//
// 如果 cfg 为 nil，使用默认配置。
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newLoader(cfg, applyOptions(opts)), nil
}

// MustLoad 创建并加载配置，失败时 panic
// 仅用于 main 函数等无法继续运行的场景
func MustLoad(ctx context.Context, cfg *Config, opts ...Option) Loader {
	l, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	if err := l.Load(ctx); err != nil {
		panic(err)
	}
	return l
}
