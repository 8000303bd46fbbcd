package item

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/itemscope/connector"
	"github.com/ceyewan/itemscope/db"
	"github.com/ceyewan/itemscope/testkit"
)

// TestServiceAgainstDatabases 在真实的 PostgreSQL 与 MySQL 上跑一遍 CRUD，
// 同时确认查询耗时直方图在不同驱动下都有记录
func TestServiceAgainstDatabases(t *testing.T) {
	drivers := []struct {
		name string
		conn func(*testing.T) connector.SQLConnector
	}{
		{"postgres", testkit.NewPostgreSQLConnector},
		{"mysql", testkit.NewMySQLConnector},
	}

	for _, d := range drivers {
		t.Run(d.name, func(t *testing.T) {
			kit := testkit.NewKit(t)
			conn := d.conn(t)

			database, err := db.New(conn, &db.Config{}, db.WithSilentMode(), db.WithRegistry(kit.Registry))
			require.NoError(t, err)

			hooks := &captureHooks{}
			svc, err := NewService(database, WithHooks(hooks), WithLogger(kit.Logger))
			require.NoError(t, err)

			ctx := context.Background()
			require.NoError(t, svc.Migrate(ctx))

			created, err := svc.Create(ctx, CreateInput{Name: "Souris", Price: price(19.9)})
			require.NoError(t, err)

			updated, err := svc.Update(ctx, created.ID, UpdateInput{Name: ptr("Souris sans fil")})
			require.NoError(t, err)
			assert.Equal(t, 19.9, updated.Price)

			items, err := svc.List(ctx, 0, 10)
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, "Souris sans fil", items[0].Name)

			require.NoError(t, svc.Delete(ctx, created.ID))
			assert.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)

			assert.Equal(t, 1, hooks.created)
			assert.Equal(t, 1, hooks.updated)
			assert.Equal(t, 1, hooks.deleted)

			text, err := kit.Registry.Render()
			require.NoError(t, err)
			assert.Contains(t, text, `db_query_duration_seconds_count{operation="create"}`)
			assert.Equal(t, d.name, conn.Driver())
		})
	}
}

func ptr[T any](v T) *T { return &v }
