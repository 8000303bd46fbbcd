package metrics

import (
	"context"

	dto "github.com/prometheus/client_model/go"
	"google.golang.org/protobuf/proto"

	"github.com/ceyewan/itemscope/xerrors"
)

// GaugeSeries 仪表盘的一条时间序列，可任意增减
type GaugeSeries struct {
	labels []Label
	value  atomicFloat
}

// Set 覆盖当前值；非有限数返回 ErrInvalidValue
func (g *GaugeSeries) Set(v float64) error {
	if !isFinite(v) {
		return xerrors.Wrapf(ErrInvalidValue, "gauge value %v", v)
	}
	g.value.Store(v)
	return nil
}

// Add 增加 delta，delta 可为负；非有限数返回 ErrInvalidValue
func (g *GaugeSeries) Add(delta float64) error {
	if !isFinite(delta) {
		return xerrors.Wrapf(ErrInvalidValue, "gauge delta %v", delta)
	}
	g.value.Add(delta)
	return nil
}

func (g *GaugeSeries) Inc() { g.value.Add(1) }

func (g *GaugeSeries) Dec() { g.value.Add(-1) }

func (g *GaugeSeries) Value() float64 {
	return g.value.Load()
}

func (g *GaugeSeries) Labels() []Label {
	return cloneLabels(g.labels)
}

func (g *GaugeSeries) write(m *dto.Metric) {
	m.Gauge = &dto.Gauge{Value: proto.Float64(g.value.Load())}
}

// GaugeVec 一个已注册的仪表盘指标及其全部序列，实现 Gauge 接口
type GaugeVec struct {
	family *Family
}

// With 返回标签组合对应的序列，不存在时创建
func (v *GaugeVec) With(labels ...Label) (*GaugeSeries, error) {
	s, err := v.family.Series(labels...)
	if err != nil {
		return nil, err
	}
	return s.(*GaugeSeries), nil
}

func (v *GaugeVec) Set(ctx context.Context, val float64, labels ...Label) {
	v.apply(ctx, labels, func(s *GaugeSeries) error { return s.Set(val) })
}

func (v *GaugeVec) Add(ctx context.Context, val float64, labels ...Label) {
	v.apply(ctx, labels, func(s *GaugeSeries) error { return s.Add(val) })
}

func (v *GaugeVec) Inc(ctx context.Context, labels ...Label) {
	v.apply(ctx, labels, func(s *GaugeSeries) error { s.Inc(); return nil })
}

func (v *GaugeVec) Dec(ctx context.Context, labels ...Label) {
	v.apply(ctx, labels, func(s *GaugeSeries) error { s.Dec(); return nil })
}

func (v *GaugeVec) apply(ctx context.Context, labels []Label, fn func(*GaugeSeries) error) {
	s, err := v.With(labels...)
	if err == nil {
		err = fn(s)
	}
	if err != nil {
		v.family.dropped(ctx, err)
	}
}

// Desc 返回指标描述
func (v *GaugeVec) Desc() Desc {
	return v.family.Desc()
}
