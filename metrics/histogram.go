package metrics

import (
	"context"
	"math"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"google.golang.org/protobuf/proto"

	"github.com/ceyewan/itemscope/xerrors"
)

// Bucket 直方图的一个累积桶
type Bucket struct {
	UpperBound      float64
	CumulativeCount uint64
}

// HistogramSnapshot 直方图序列在某一时刻的一致快照
// Buckets 按上界递增排列，最后一个桶的上界为 +Inf 且计数等于 Count
type HistogramSnapshot struct {
	Buckets []Bucket
	Sum     float64
	Count   uint64
}

// HistogramSeries 直方图的一条时间序列
//
// 每个序列持有独立的互斥锁：一次观测对桶、总和、计数的修改对快照而言是原子的。
type HistogramSeries struct {
	labels      []Label
	upperBounds []float64 // 有限上界，严格递增，与 Desc 共享且只读

	mu         sync.Mutex
	cumulative []uint64 // len(upperBounds)+1，最后一项对应 +Inf
	sum        float64
	count      uint64
}

func newHistogramSeries(labels []Label, upperBounds []float64) *HistogramSeries {
	return &HistogramSeries{
		labels:      labels,
		upperBounds: upperBounds,
		cumulative:  make([]uint64, len(upperBounds)+1),
	}
}

// Observe 记录一次观测
// 找到第一个 >= v 的上界（找不到则落入 +Inf 桶），该桶及之后所有桶的累积计数加一
func (h *HistogramSeries) Observe(v float64) error {
	if !isFinite(v) {
		return xerrors.Wrapf(ErrInvalidValue, "histogram observation %v", v)
	}
	idx := sort.SearchFloat64s(h.upperBounds, v)

	h.mu.Lock()
	for i := idx; i < len(h.cumulative); i++ {
		h.cumulative[i]++
	}
	h.sum += v
	h.count++
	h.mu.Unlock()
	return nil
}

// Snapshot 返回当前状态的副本
func (h *HistogramSeries) Snapshot() HistogramSnapshot {
	buckets := make([]Bucket, len(h.cumulative))

	h.mu.Lock()
	for i, c := range h.cumulative {
		buckets[i].CumulativeCount = c
	}
	sum, count := h.sum, h.count
	h.mu.Unlock()

	for i := range buckets {
		if i < len(h.upperBounds) {
			buckets[i].UpperBound = h.upperBounds[i]
		} else {
			buckets[i].UpperBound = math.Inf(+1)
		}
	}
	return HistogramSnapshot{Buckets: buckets, Sum: sum, Count: count}
}

func (h *HistogramSeries) Labels() []Label {
	return cloneLabels(h.labels)
}

func (h *HistogramSeries) write(m *dto.Metric) {
	snap := h.Snapshot()
	buckets := make([]*dto.Bucket, 0, len(snap.Buckets))
	for _, b := range snap.Buckets {
		buckets = append(buckets, &dto.Bucket{
			UpperBound:      proto.Float64(b.UpperBound),
			CumulativeCount: proto.Uint64(b.CumulativeCount),
		})
	}
	m.Histogram = &dto.Histogram{
		SampleCount: proto.Uint64(snap.Count),
		SampleSum:   proto.Float64(snap.Sum),
		Bucket:      buckets,
	}
}

// HistogramVec 一个已注册的直方图指标及其全部序列，实现 Histogram 接口
type HistogramVec struct {
	family *Family
}

// With 返回标签组合对应的序列，不存在时创建
func (v *HistogramVec) With(labels ...Label) (*HistogramSeries, error) {
	s, err := v.family.Series(labels...)
	if err != nil {
		return nil, err
	}
	return s.(*HistogramSeries), nil
}

// Record 实现 Histogram 接口，失败时记录日志并丢弃本次观测
func (v *HistogramVec) Record(ctx context.Context, val float64, labels ...Label) {
	s, err := v.With(labels...)
	if err == nil {
		err = s.Observe(val)
	}
	if err != nil {
		v.family.dropped(ctx, err)
	}
}

// Desc 返回指标描述
func (v *HistogramVec) Desc() Desc {
	return v.family.Desc()
}
