package connector

import (
	"gorm.io/gorm/logger"

	"github.com/ceyewan/itemscope/clog"
)

type options struct {
	logger     clog.Logger
	gormLogger logger.Interface
}

// Option 配置连接器的选项
type Option func(*options)

// WithLogger 设置日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("connector")
		}
	}
}

// WithGormLogger 设置 GORM 的 SQL 日志器，默认静默
func WithGormLogger(l logger.Interface) Option {
	return func(o *options) {
		o.gormLogger = l
	}
}

func (o *options) applyDefaults() {
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.gormLogger == nil {
		o.gormLogger = logger.Discard
	}
}
