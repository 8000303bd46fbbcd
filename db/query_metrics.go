package db

import (
	"time"

	"gorm.io/gorm"

	"github.com/ceyewan/itemscope/metrics"
	"github.com/ceyewan/itemscope/xerrors"
)

const (
	// MetricQueryDurationSeconds 数据库查询耗时
	MetricQueryDurationSeconds = "db_query_duration_seconds"

	queryStartKey = "itemscope:query_start"
)

// QueryBuckets 查询耗时的桶边界（秒）
var QueryBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// QueryMetrics GORM 插件，记录每条语句的耗时到 db_query_duration_seconds{operation}
type QueryMetrics struct {
	duration metrics.Histogram
	now      func() time.Time
}

var _ gorm.Plugin = (*QueryMetrics)(nil)

// NewQueryMetrics 在注册表中注册查询耗时直方图
func NewQueryMetrics(reg *metrics.Registry) (*QueryMetrics, error) {
	h, err := reg.Histogram(MetricQueryDurationSeconds, "Duration of database queries (seconds).",
		metrics.WithLabels(metrics.LabelOperation),
		metrics.WithBuckets(QueryBuckets))
	if err != nil {
		return nil, xerrors.Wrap(err, "create query duration histogram")
	}
	return &QueryMetrics{duration: h, now: time.Now}, nil
}

func (p *QueryMetrics) Name() string {
	return "itemscope:query_metrics"
}

// Initialize 在每类语句的 GORM 核心回调前后挂载计时回调
func (p *QueryMetrics) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		operation string
		before    func(name string, fn func(*gorm.DB)) error
		after     func(name string, fn func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		if err := h.before(p.Name()+":before_"+h.operation, p.start); err != nil {
			return xerrors.Wrapf(err, "register before %s callback", h.operation)
		}
		if err := h.after(p.Name()+":after_"+h.operation, p.finish(h.operation)); err != nil {
			return xerrors.Wrapf(err, "register after %s callback", h.operation)
		}
	}
	return nil
}

func (p *QueryMetrics) start(db *gorm.DB) {
	db.InstanceSet(queryStartKey, p.now())
}

func (p *QueryMetrics) finish(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		p.duration.Record(db.Statement.Context, p.now().Sub(start).Seconds(),
			metrics.L(metrics.LabelOperation, operation))
	}
}
