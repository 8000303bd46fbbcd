package clog

import (
	"fmt"
	"strings"
)

// timeFormat 日志时间字段格式
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config 日志配置结构，定义日志的基本行为
//
// 示例（YAML）：
//
//	log:
//	  level: info
//	  format: json
//	  output: logs/app.log
//	  add_source: true
type Config struct {
	Level      string `mapstructure:"level" json:"level" yaml:"level"`                  // debug|info|warn|error|fatal
	Format     string `mapstructure:"format" json:"format" yaml:"format"`               // json|console
	Output     string `mapstructure:"output" json:"output" yaml:"output"`               // stdout|stderr|<file path>
	AddSource  bool   `mapstructure:"add_source" json:"addSource" yaml:"add_source"`    // 是否输出调用位置
	SourceRoot string `mapstructure:"source_root" json:"sourceRoot" yaml:"source_root"` // 用于裁剪文件路径
}

// NewDevDefaultConfig 返回开发环境默认配置：console 格式，debug 级别，输出到 stdout
func NewDevDefaultConfig() *Config {
	return &Config{
		Level:     "debug",
		Format:    "console",
		Output:    "stdout",
		AddSource: true,
	}
}

// NewProdDefaultConfig 返回生产环境默认配置：json 格式，info 级别，输出到 stdout
func NewProdDefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// validate 为空值设置默认值并检查 Level 和 Format（内部使用）
func (c *Config) validate() error {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}

	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	format := strings.ToLower(c.Format)
	if format != "json" && format != "console" {
		return fmt.Errorf("invalid format: %s, must be json or console", c.Format)
	}
	return nil
}
