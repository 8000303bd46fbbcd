package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/ceyewan/itemscope/connector"
)

// NewMySQLContainerConfig 使用 testcontainers 创建 MySQL 容器并返回配置
// 没有可用的 Docker 时跳过测试；生命周期由 t.Cleanup 管理
func NewMySQLContainerConfig(t *testing.T) *connector.SQLConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := mysql.Run(ctx,
		"mysql:8.0",
		mysql.WithDatabase("items_db"),
		mysql.WithUsername("items_user"),
		mysql.WithPassword("items_password"),
	)
	require.NoError(t, err, "failed to start MySQL container")
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	// items_user:items_password@tcp(host:port)/items_db?parseTime=true
	dsn, err := container.ConnectionString(ctx, "parseTime=true", "charset=utf8mb4")
	require.NoError(t, err)

	return &connector.SQLConfig{
		Name:         "testcontainer-mysql",
		Driver:       connector.DriverMySQL,
		DSN:          dsn,
		MaxIdleConns: 2,
		MaxOpenConns: 10,
	}
}

// NewMySQLConnector 获取已连接的 MySQL 连接器（基于 testcontainers）
func NewMySQLConnector(t *testing.T) connector.SQLConnector {
	t.Helper()
	return connect(t, NewMySQLContainerConfig(t))
}
