// Package db 提供基于 GORM 的数据库组件。
//
// db 组件在 SQL 连接器之上提供：
//   - GORM 会话与事务封装
//   - SQL 日志适配到 clog（错误、慢查询、DEBUG 模式下的全部 SQL）
//   - 查询耗时直方图 db_query_duration_seconds{operation}
//   - 连接池状态推送（PoolReporter）
//   - 可选的 OpenTelemetry SQL Span（otelgorm）
//
// ## 基本使用
//
//	conn, _ := connector.NewSQL(&cfg.Database, connector.WithLogger(logger))
//	defer conn.Close()
//	_ = conn.Connect(ctx)
//
//	database, _ := db.New(conn, &db.Config{}, db.WithLogger(logger), db.WithRegistry(reg))
//
//	var items []Item
//	database.DB(ctx).Offset(0).Limit(100).Find(&items)
//
//	err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
//		return tx.Create(&Item{Name: "test"}).Error
//	})
//
// ## 设计原则
//
//   - 借用模型：db 组件借用连接器的连接，不负责连接的生命周期
//   - 显式依赖：通过构造函数显式注入连接器和选项
package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"

	"github.com/ceyewan/itemscope/clog"
	"github.com/ceyewan/itemscope/connector"
	"github.com/ceyewan/itemscope/xerrors"
)

// DB 定义了数据库组件的核心能力
type DB interface {
	// DB 获取绑定 ctx 的 *gorm.DB 实例
	DB(ctx context.Context) *gorm.DB

	// Transaction 执行事务操作
	// fn 返回错误时回滚，否则提交；tx 仅在 fn 内有效
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error

	// Stats 返回连接池的当前状态
	Stats() sql.DBStats

	// Ping 探测数据库可用性
	Ping(ctx context.Context) error

	// Close 关闭组件（不关闭底层连接）
	Close() error
}

type database struct {
	client *gorm.DB
	sqlDB  *sql.DB
	logger clog.Logger
}

// New 创建数据库组件实例
//
// conn 必须已经 Connect；组件会在其 *gorm.DB 上安装日志适配、查询指标与链路追踪插件。
func New(conn connector.SQLConnector, cfg *Config, opts ...Option) (DB, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if conn == nil || conn.GetClient() == nil {
		return nil, ErrConnectorRequired
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	if opt.logger == nil {
		opt.logger = clog.Discard()
	}

	gormDB := conn.GetClient().Session(&gorm.Session{
		Logger: newGormLogger(opt.logger, cfg, opt.silentMode),
	})

	if opt.tracer != nil {
		plugin := otelgorm.NewPlugin(
			otelgorm.WithTracerProvider(opt.tracer),
			otelgorm.WithDBName(conn.Name()),
			otelgorm.WithoutQueryVariables(),
		)
		if err := gormDB.Use(plugin); err != nil {
			return nil, xerrors.Wrap(err, "register otelgorm plugin")
		}
	}

	if opt.registry != nil {
		plugin, err := NewQueryMetrics(opt.registry)
		if err != nil {
			return nil, err
		}
		if err := gormDB.Use(plugin); err != nil {
			return nil, xerrors.Wrap(err, "register query metrics plugin")
		}
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, xerrors.Wrap(err, "get db instance")
	}

	return &database{
		client: gormDB,
		sqlDB:  sqlDB,
		logger: opt.logger,
	}, nil
}

func (d *database) DB(ctx context.Context) *gorm.DB {
	return d.client.WithContext(ctx)
}

func (d *database) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return d.client.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

func (d *database) Stats() sql.DBStats {
	return d.sqlDB.Stats()
}

func (d *database) Ping(ctx context.Context) error {
	return d.sqlDB.PingContext(ctx)
}

// Close GORM 的连接由连接器管理，这里不需要额外关闭
func (d *database) Close() error {
	return nil
}
