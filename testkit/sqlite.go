package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/itemscope/connector"
	"github.com/ceyewan/itemscope/db"
)

// NewSQLiteConfig 返回 SQLite 内存数据库配置
// 每次调用使用独立的共享缓存库，同一连接池内的连接看到同一份数据
func NewSQLiteConfig() *connector.SQLConfig {
	return &connector.SQLConfig{
		Name:         "test-sqlite",
		Driver:       connector.DriverSQLite,
		DSN:          "file:" + NewID() + "?mode=memory&cache=shared",
		MaxOpenConns: 4,
		MaxIdleConns: 4,
	}
}

// NewSQLiteConnector 获取已连接的 SQLite 连接器（内存数据库）
// 生命周期由 t.Cleanup 管理
func NewSQLiteConnector(t *testing.T) connector.SQLConnector {
	t.Helper()
	return connect(t, NewSQLiteConfig())
}

// NewSQLiteDB 获取基于内存 SQLite 的 db 组件
func NewSQLiteDB(t *testing.T, opts ...db.Option) db.DB {
	t.Helper()
	conn := NewSQLiteConnector(t)
	database, err := db.New(conn, &db.Config{}, append([]db.Option{db.WithSilentMode()}, opts...)...)
	require.NoError(t, err, "failed to create db component")
	return database
}

func connect(t *testing.T, cfg *connector.SQLConfig) connector.SQLConnector {
	t.Helper()
	conn, err := connector.NewSQL(cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sql connector")

	require.NoError(t, conn.Connect(context.Background()), "failed to connect")

	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
