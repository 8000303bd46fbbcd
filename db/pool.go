package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/ceyewan/itemscope/clog"
	"github.com/ceyewan/itemscope/metrics"
	"github.com/ceyewan/itemscope/xerrors"
)

const (
	MetricPoolSize        = "db_connection_pool_size"
	MetricPoolConnections = "db_connection_pool_connections"
	MetricPoolMaxOpen     = "db_connection_pool_max_open"
	MetricPoolWaitCount   = "db_connection_pool_wait_count"
)

// 连接状态标签取值
const (
	StateIdle  = "idle"
	StateInUse = "in_use"
)

// StatsFunc 返回连接池当前状态，通常为 (*sql.DB).Stats 或 DB.Stats
type StatsFunc func() sql.DBStats

// PoolReporter 按固定间隔把连接池状态推送到 Gauge
//
// 采用推送模式：注册表不主动轮询数据库，由 PoolReporter 在自己的 ticker 上调用 Gauge.Set。
// sql.DB.Stats 不获取连接，连接池耗尽时推送仍然进行：
// in_use 等于 max_open，wait_count 持续增长。
type PoolReporter struct {
	stats    StatsFunc
	interval time.Duration
	logger   clog.Logger

	size        metrics.Gauge
	connections metrics.Gauge
	maxOpen     metrics.Gauge
	waitCount   metrics.Gauge
}

// NewPoolReporter 注册连接池指标
func NewPoolReporter(reg *metrics.Registry, stats StatsFunc, interval time.Duration, logger clog.Logger) (*PoolReporter, error) {
	if reg == nil || stats == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "registry and stats func are required")
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = clog.Discard()
	}

	size, err := reg.Gauge(MetricPoolSize, "Current size of the DB connection pool.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create pool size gauge")
	}
	connections, err := reg.Gauge(MetricPoolConnections, "DB connections by state.",
		metrics.WithLabels(metrics.LabelState))
	if err != nil {
		return nil, xerrors.Wrap(err, "create pool connections gauge")
	}
	maxOpen, err := reg.Gauge(MetricPoolMaxOpen, "Maximum number of open DB connections.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create pool max open gauge")
	}
	waitCount, err := reg.Gauge(MetricPoolWaitCount, "Total number of connections waited for.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create pool wait count gauge")
	}

	return &PoolReporter{
		stats:       stats,
		interval:    interval,
		logger:      logger.WithNamespace("pool"),
		size:        size,
		connections: connections,
		maxOpen:     maxOpen,
		waitCount:   waitCount,
	}, nil
}

// Report 读取一次连接池状态并推送
func (r *PoolReporter) Report(ctx context.Context) {
	s := r.stats()
	r.size.Set(ctx, float64(s.OpenConnections))
	r.connections.Set(ctx, float64(s.Idle), metrics.L(metrics.LabelState, StateIdle))
	r.connections.Set(ctx, float64(s.InUse), metrics.L(metrics.LabelState, StateInUse))
	r.maxOpen.Set(ctx, float64(s.MaxOpenConnections))
	r.waitCount.Set(ctx, float64(s.WaitCount))

	if s.MaxOpenConnections > 0 && s.InUse >= s.MaxOpenConnections {
		r.logger.WarnContext(ctx, "connection pool exhausted",
			clog.Int("in_use", s.InUse),
			clog.Int("max_open", s.MaxOpenConnections),
			clog.Int64("wait_count", s.WaitCount))
	}
}

// Run 立即推送一次，然后每个间隔推送一次，直到 ctx 结束
func (r *PoolReporter) Run(ctx context.Context) {
	r.Report(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Report(ctx)
		}
	}
}
