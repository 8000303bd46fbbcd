package db

import (
	"bytes"
	"context"
	"database/sql"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/itemscope/clog"
	"github.com/ceyewan/itemscope/metrics"
)

func TestPoolReporterReport(t *testing.T) {
	reg := metrics.NewRegistry()
	var buf bytes.Buffer
	logger, err := clog.New(&clog.Config{Level: "warn", Format: "json"}, clog.WithWriter(&buf))
	require.NoError(t, err)

	stats := sql.DBStats{MaxOpenConnections: 10, OpenConnections: 3, InUse: 1, Idle: 2, WaitCount: 0}
	r, err := NewPoolReporter(reg, func() sql.DBStats { return stats }, time.Second, logger)
	require.NoError(t, err)

	r.Report(context.Background())
	text, err := reg.Render()
	require.NoError(t, err)
	assert.Contains(t, text, "db_connection_pool_size 3\n")
	assert.Contains(t, text, `db_connection_pool_connections{state="idle"} 2`)
	assert.Contains(t, text, `db_connection_pool_connections{state="in_use"} 1`)
	assert.Contains(t, text, "db_connection_pool_max_open 10\n")
	assert.Empty(t, buf.String())

	// 连接池耗尽时继续推送并告警
	stats = sql.DBStats{MaxOpenConnections: 10, OpenConnections: 10, InUse: 10, WaitCount: 7}
	r.Report(context.Background())
	text, err = reg.Render()
	require.NoError(t, err)
	assert.Contains(t, text, `db_connection_pool_connections{state="in_use"} 10`)
	assert.Contains(t, text, "db_connection_pool_wait_count 7\n")
	assert.Contains(t, buf.String(), "connection pool exhausted")
}

func TestPoolReporterRun(t *testing.T) {
	reg := metrics.NewRegistry()
	var calls atomic.Int64
	r, err := NewPoolReporter(reg, func() sql.DBStats {
		calls.Add(1)
		return sql.DBStats{}
	}, 10*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewPoolReporterValidation(t *testing.T) {
	_, err := NewPoolReporter(nil, func() sql.DBStats { return sql.DBStats{} }, 0, nil)
	assert.Error(t, err)

	_, err = NewPoolReporter(metrics.NewRegistry(), nil, 0, nil)
	assert.Error(t, err)
}
