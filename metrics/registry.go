package metrics

import (
	"context"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/protobuf/proto"

	"github.com/ceyewan/itemscope/clog"
	"github.com/ceyewan/itemscope/xerrors"
)

// Series 一条时间序列，由 *CounterSeries、*GaugeSeries 或 *HistogramSeries 实现
type Series interface {
	// Labels 返回序列的标签，按描述中的标签名顺序排列
	Labels() []Label

	write(m *dto.Metric)
}

// labelSeparator 拼接序列键；合法的 UTF-8 字符串不会包含 0xff
const labelSeparator = "\xff"

// Registry 进程级指标注册表
//
// 生命周期：进程启动时创建一次，随进程存在，不做显式销毁，序列也不会被淘汰。
// 注册表通过显式引用注入到中间件与业务代码，不提供全局默认实例。
//
// 锁的粒度：
//   - r.mu 只在注册与 Gather 复制指标列表时持有
//   - 每个 Family 持有自己的读写锁，保护序列表
//   - 序列的数值更新为原子操作（直方图为序列级互斥锁）
type Registry struct {
	mu       sync.RWMutex
	families []*Family
	byName   map[string]*Family
	exposed  map[string]string // 输出时占用的名称 -> 所属指标，例如 x_bucket -> x
	logger   clog.Logger
}

var _ prometheus.Gatherer = (*Registry)(nil)

// NewRegistry 创建一个空的注册表
func NewRegistry(opts ...Option) *Registry {
	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return &Registry{
		byName:  make(map[string]*Family),
		exposed: make(map[string]string),
		logger:  o.logger,
	}
}

// Register 注册一个指标
//
// 同名、同类型、同标签名序列（直方图还需同桶边界）的重复注册是幂等的，返回已有的 Family；
// 其余同名注册返回 ErrDuplicateMetric。Help 不参与比较，以第一次注册为准。
func (r *Registry) Register(desc *Desc) (*Family, error) {
	d, err := desc.normalize()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[d.Name]; ok {
		if existing.desc.compatible(d) {
			return existing, nil
		}
		return nil, xerrors.Wrapf(ErrDuplicateMetric,
			"%s already registered as %s with labels %v", d.Name, existing.desc.Kind, existing.desc.LabelNames)
	}
	for _, name := range exposedNames(d) {
		if owner, taken := r.exposed[name]; taken {
			return nil, xerrors.Wrapf(ErrDuplicateMetric, "%s collides with series %s of %s", d.Name, name, owner)
		}
	}

	f := newFamily(d, r.logger)
	r.families = append(r.families, f)
	r.byName[d.Name] = f
	for _, name := range exposedNames(d) {
		r.exposed[name] = d.Name
	}

	r.logger.Debug("metric registered",
		clog.String("metric", d.Name),
		clog.String("kind", d.Kind.String()),
		clog.Any("labels", d.LabelNames))
	return f, nil
}

// Counter 注册（或取回）一个计数器
func (r *Registry) Counter(name, help string, opts ...MetricOption) (*CounterVec, error) {
	o := applyMetricOptions(opts)
	f, err := r.Register(&Desc{Name: name, Help: help, Kind: KindCounter, LabelNames: o.LabelNames})
	if err != nil {
		return nil, err
	}
	return &CounterVec{family: f}, nil
}

// Gauge 注册（或取回）一个仪表盘
func (r *Registry) Gauge(name, help string, opts ...MetricOption) (*GaugeVec, error) {
	o := applyMetricOptions(opts)
	f, err := r.Register(&Desc{Name: name, Help: help, Kind: KindGauge, LabelNames: o.LabelNames})
	if err != nil {
		return nil, err
	}
	return &GaugeVec{family: f}, nil
}

// Histogram 注册（或取回）一个直方图
func (r *Registry) Histogram(name, help string, opts ...MetricOption) (*HistogramVec, error) {
	o := applyMetricOptions(opts)
	f, err := r.Register(&Desc{Name: name, Help: help, Kind: KindHistogram, LabelNames: o.LabelNames, Buckets: o.Buckets})
	if err != nil {
		return nil, err
	}
	return &HistogramVec{family: f}, nil
}

// Gather 实现 prometheus.Gatherer
// 按注册顺序返回各指标的快照，尚无序列的指标被跳过
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	r.mu.RLock()
	families := slices.Clone(r.families)
	r.mu.RUnlock()

	out := make([]*dto.MetricFamily, 0, len(families))
	for _, f := range families {
		if mf := f.snapshot(); mf != nil {
			out = append(out, mf)
		}
	}
	return out, nil
}

// exposedNames 指标在文本格式中占用的全部名称
func exposedNames(d *Desc) []string {
	if d.Kind == KindHistogram {
		return []string{d.Name, d.Name + "_bucket", d.Name + "_sum", d.Name + "_count"}
	}
	return []string{d.Name}
}

// Family 一个已注册的指标及其全部序列
type Family struct {
	desc   *Desc
	logger clog.Logger

	mu     sync.RWMutex
	byKey  map[string]Series
	series []Series // 插入顺序
}

func newFamily(desc *Desc, logger clog.Logger) *Family {
	return &Family{
		desc:   desc,
		logger: logger,
		byKey:  make(map[string]Series),
	}
}

// Desc 返回指标描述的副本
func (f *Family) Desc() Desc {
	d := *f.desc
	d.LabelNames = slices.Clone(f.desc.LabelNames)
	d.Buckets = slices.Clone(f.desc.Buckets)
	return d
}

// Series 返回标签组合对应的序列，不存在时创建
//
// 标签可以任意顺序提供，但必须恰好覆盖注册时声明的标签名；
// 缺失、多余或重复的标签返回 ErrLabelMismatch。相同的标签取值总是返回同一个序列实例。
func (f *Family) Series(labels ...Label) (Series, error) {
	ordered, err := f.resolve(labels)
	if err != nil {
		return nil, err
	}
	key := seriesKey(ordered)

	f.mu.RLock()
	s, ok := f.byKey[key]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byKey[key]; ok {
		return s, nil
	}
	s = f.newSeries(ordered)
	f.byKey[key] = s
	f.series = append(f.series, s)
	return s, nil
}

// Len 返回当前序列数量
func (f *Family) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.series)
}

// resolve 按描述中的标签名顺序整理标签
func (f *Family) resolve(labels []Label) ([]Label, error) {
	names := f.desc.LabelNames
	if len(labels) != len(names) {
		return nil, xerrors.Wrapf(ErrLabelMismatch, "%s: expected labels %v, got %d labels", f.desc.Name, names, len(labels))
	}
	ordered := make([]Label, len(names))
	filled := make([]bool, len(names))
	for _, l := range labels {
		idx := slices.Index(names, l.Key)
		if idx < 0 {
			return nil, xerrors.Wrapf(ErrLabelMismatch, "%s: unknown label %q", f.desc.Name, l.Key)
		}
		if filled[idx] {
			return nil, xerrors.Wrapf(ErrLabelMismatch, "%s: label %q given twice", f.desc.Name, l.Key)
		}
		if !utf8.ValidString(l.Value) {
			return nil, xerrors.Wrapf(ErrLabelMismatch, "%s: label %q value is not valid UTF-8", f.desc.Name, l.Key)
		}
		ordered[idx] = l
		filled[idx] = true
	}
	return ordered, nil
}

func (f *Family) newSeries(labels []Label) Series {
	switch f.desc.Kind {
	case KindCounter:
		return &CounterSeries{labels: labels}
	case KindGauge:
		return &GaugeSeries{labels: labels}
	default:
		return newHistogramSeries(labels, f.desc.Buckets)
	}
}

// snapshot 在不持有任何锁的情况下逐序列读取数值
func (f *Family) snapshot() *dto.MetricFamily {
	f.mu.RLock()
	series := slices.Clone(f.series)
	f.mu.RUnlock()

	if len(series) == 0 {
		return nil
	}

	mf := &dto.MetricFamily{
		Name:   proto.String(f.desc.Name),
		Type:   f.desc.Kind.metricType().Enum(),
		Metric: make([]*dto.Metric, 0, len(series)),
	}
	if f.desc.Help != "" {
		mf.Help = proto.String(f.desc.Help)
	}
	for _, s := range series {
		m := &dto.Metric{Label: labelPairs(s.Labels())}
		s.write(m)
		mf.Metric = append(mf.Metric, m)
	}
	return mf
}

// dropped 记录被丢弃的观测，不向调用方传播
func (f *Family) dropped(ctx context.Context, err error) {
	f.logger.WarnContext(ctx, "metric observation dropped",
		clog.String("metric", f.desc.Name),
		clog.Error(err))
}

func seriesKey(ordered []Label) string {
	var b strings.Builder
	for i, l := range ordered {
		if i > 0 {
			b.WriteString(labelSeparator)
		}
		b.WriteString(l.Value)
	}
	return b.String()
}

func labelPairs(labels []Label) []*dto.LabelPair {
	if len(labels) == 0 {
		return nil
	}
	pairs := make([]*dto.LabelPair, 0, len(labels))
	for _, l := range labels {
		pairs = append(pairs, &dto.LabelPair{Name: proto.String(l.Key), Value: proto.String(l.Value)})
	}
	return pairs
}

func cloneLabels(labels []Label) []Label {
	return slices.Clone(labels)
}
