// Package events 提供业务事件钩子：CRUD 逻辑在提交成功后调用，对应注册表中预先注册的计数器。
//
// 钩子不返回错误。观测失败只会记录告警日志，业务请求不受影响。
//
//	rec, err := events.NewRecorder(reg)
//	if err != nil {
//		return err // 注册冲突属于启动期错误
//	}
//	rec.ItemCreated(ctx)
package events

import (
	"context"

	"github.com/ceyewan/itemscope/metrics"
	"github.com/ceyewan/itemscope/xerrors"
)

// 业务计数器名称
const (
	MetricItemsCreated   = "items_created_total"
	MetricItemsRead      = "items_read_total"
	MetricTargetItemRead = "target_item_read_total"
	MetricItemsUpdated   = "items_updated_total"
	MetricItemsDeleted   = "items_deleted_total"
	MetricAppInfo        = "app_info"
)

// Recorder 业务事件钩子，可被多个请求并发调用
// nil *Recorder 的所有方法均为空操作
type Recorder struct {
	created    metrics.Counter
	read       metrics.Counter
	targetRead metrics.Counter
	updated    metrics.Counter
	deleted    metrics.Counter
}

// NewRecorder 在注册表中注册全部业务计数器
func NewRecorder(reg *metrics.Registry) (*Recorder, error) {
	if reg == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "registry is required")
	}
	r := &Recorder{}

	counters := []struct {
		target *metrics.Counter
		name   string
		help   string
	}{
		{&r.created, MetricItemsCreated, "Number of items created since startup"},
		{&r.read, MetricItemsRead, "Number of items read since startup"},
		{&r.targetRead, MetricTargetItemRead, "Number of target items read since startup"},
		{&r.updated, MetricItemsUpdated, "Number of items updated since startup"},
		{&r.deleted, MetricItemsDeleted, "Number of items deleted since startup"},
	}
	for _, c := range counters {
		counter, err := reg.Counter(c.name, c.help)
		if err != nil {
			return nil, xerrors.Wrapf(err, "register %s", c.name)
		}
		// 预先创建无标签序列，启动后第一次抓取即可看到 0
		if _, err := counter.With(); err != nil {
			return nil, xerrors.Wrapf(err, "init %s", c.name)
		}
		*c.target = counter
	}
	return r, nil
}

// ItemCreated 记录一次创建
func (r *Recorder) ItemCreated(ctx context.Context) {
	if r == nil {
		return
	}
	r.created.Inc(ctx)
}

// ItemsRead 记录一次列表读取返回的条目数，n 为 0 时不记录
func (r *Recorder) ItemsRead(ctx context.Context, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.read.Add(ctx, float64(n))
}

// ItemRead 记录一次按 ID 读取
func (r *Recorder) ItemRead(ctx context.Context) {
	if r == nil {
		return
	}
	r.targetRead.Inc(ctx)
}

// ItemUpdated 记录一次更新
func (r *Recorder) ItemUpdated(ctx context.Context) {
	if r == nil {
		return
	}
	r.updated.Inc(ctx)
}

// ItemDeleted 记录一次删除
func (r *Recorder) ItemDeleted(ctx context.Context) {
	if r == nil {
		return
	}
	r.deleted.Inc(ctx)
}

// RegisterAppInfo 注册 app_info{service,version} 并置为 1
//
// Prometheus 的 Info 类型不在支持范围内，以常量 Gauge 表示。
func RegisterAppInfo(ctx context.Context, reg *metrics.Registry, service, version string) error {
	g, err := reg.Gauge(MetricAppInfo, "Information about the application",
		metrics.WithLabels(metrics.LabelService, metrics.LabelVersion))
	if err != nil {
		return xerrors.Wrap(err, "register app_info")
	}
	g.Set(ctx, 1, metrics.L(metrics.LabelService, service), metrics.L(metrics.LabelVersion, version))
	return nil
}
