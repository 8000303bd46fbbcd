package metrics

import (
	"context"

	dto "github.com/prometheus/client_model/go"
	"google.golang.org/protobuf/proto"

	"github.com/ceyewan/itemscope/xerrors"
)

// CounterSeries 计数器的一条时间序列，值单调不减
type CounterSeries struct {
	labels []Label
	value  atomicFloat
}

// Add 增加 v；v 必须为正的有限数，否则返回 ErrInvalidValue 且不修改当前值
func (c *CounterSeries) Add(v float64) error {
	if !isFinite(v) || v <= 0 {
		return xerrors.Wrapf(ErrInvalidValue, "counter increment %v", v)
	}
	c.value.Add(v)
	return nil
}

// Inc 增加 1
func (c *CounterSeries) Inc() {
	c.value.Add(1)
}

// Value 返回当前值
func (c *CounterSeries) Value() float64 {
	return c.value.Load()
}

// Labels 返回序列的标签，按描述中的标签名顺序排列
func (c *CounterSeries) Labels() []Label {
	return cloneLabels(c.labels)
}

func (c *CounterSeries) write(m *dto.Metric) {
	m.Counter = &dto.Counter{Value: proto.Float64(c.value.Load())}
}

// CounterVec 一个已注册的计数器指标及其全部序列，实现 Counter 接口
type CounterVec struct {
	family *Family
}

// With 返回标签组合对应的序列，不存在时创建
func (v *CounterVec) With(labels ...Label) (*CounterSeries, error) {
	s, err := v.family.Series(labels...)
	if err != nil {
		return nil, err
	}
	return s.(*CounterSeries), nil
}

// Inc 实现 Counter 接口
func (v *CounterVec) Inc(ctx context.Context, labels ...Label) {
	v.Add(ctx, 1, labels...)
}

// Add 实现 Counter 接口，失败时记录日志并丢弃本次观测
func (v *CounterVec) Add(ctx context.Context, val float64, labels ...Label) {
	s, err := v.With(labels...)
	if err == nil {
		err = s.Add(val)
	}
	if err != nil {
		v.family.dropped(ctx, err)
	}
}

// Desc 返回指标描述
func (v *CounterVec) Desc() Desc {
	return v.family.Desc()
}
