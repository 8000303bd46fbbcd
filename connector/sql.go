package connector

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ceyewan/itemscope/clog"
	"github.com/ceyewan/itemscope/xerrors"
)

type sqlConnector struct {
	cfg     *SQLConfig
	opts    *options
	db      *gorm.DB
	logger  clog.Logger
	healthy atomic.Bool
	mu      sync.RWMutex
}

// NewSQL 创建关系型数据库连接器
// 注意：实际连接在调用 Connect() 时建立
func NewSQL(cfg *SQLConfig, opts ...Option) (SQLConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrapf(err, "invalid sql config")
	}

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	opt.applyDefaults()

	return &sqlConnector{
		cfg:  cfg,
		opts: opt,
		logger: opt.logger.With(
			clog.String("connector", cfg.Driver),
			clog.String("name", cfg.Name)),
	}, nil
}

// dialector 根据驱动构造 GORM Dialector
func (c *sqlConnector) dialector() gorm.Dialector {
	switch c.cfg.Driver {
	case DriverPostgres:
		return postgres.Open(c.cfg.DSN)
	case DriverMySQL:
		return mysql.Open(strings.TrimPrefix(c.cfg.DSN, "mysql://"))
	default:
		return sqlite.Open(c.cfg.DSN)
	}
}

// Connect 建立连接，失败时按 RetryInterval 重试 MaxRetries 次
func (c *sqlConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	c.logger.Info("attempting to connect to database", clog.String("dsn", MaskDSN(c.cfg.DSN)))

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return xerrors.Wrapf(ErrConnection, "%s connector[%s]: %v", c.cfg.Driver, c.cfg.Name, ctx.Err())
			case <-time.After(c.cfg.RetryInterval):
			}
		}

		db, err := c.open(ctx)
		if err == nil {
			c.db = db
			c.healthy.Store(true)
			c.logger.Info("successfully connected to database", clog.Int("attempt", attempt+1))
			return nil
		}
		lastErr = err
		c.logger.Warn("database connection attempt failed",
			clog.Int("attempt", attempt+1),
			clog.Error(err))
	}

	c.logger.Error("failed to connect to database", clog.Error(lastErr))
	return xerrors.Wrapf(ErrConnection, "%s connector[%s]: %v", c.cfg.Driver, c.cfg.Name, lastErr)
}

func (c *sqlConnector) open(ctx context.Context) (*gorm.DB, error) {
	db, err := gorm.Open(c.dialector(), &gorm.Config{Logger: c.opts.gormLogger})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, xerrors.Wrap(err, "get db instance")
	}

	sqlDB.SetMaxOpenConns(c.cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(c.cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(c.cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(c.cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, xerrors.Wrap(err, "ping")
	}
	return db, nil
}

// Close 关闭连接
func (c *sqlConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.db == nil {
		return nil
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return xerrors.Wrap(err, "get db instance for closing")
	}
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("failed to close database connection", clog.Error(err))
		return err
	}

	c.db = nil
	c.logger.Info("database connection closed")
	return nil
}

// HealthCheck 检查连接健康状态
func (c *sqlConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()

	if db == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "%s connector[%s]", c.cfg.Driver, c.cfg.Name)
	}

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.healthy.Store(false)
		c.logger.Warn("database health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "%s connector[%s]: %v", c.cfg.Driver, c.cfg.Name, err)
	}

	c.healthy.Store(true)
	return nil
}

func (c *sqlConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *sqlConnector) Name() string {
	return c.cfg.Name
}

func (c *sqlConnector) Driver() string {
	return c.cfg.Driver
}

// GetClient 返回 GORM 客户端
func (c *sqlConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
