package metrics

import (
	"math"
	"slices"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/model"

	"github.com/ceyewan/itemscope/xerrors"
)

// Kind 指标类型
type Kind int

const (
	KindCounter Kind = iota + 1
	KindGauge
	KindHistogram
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

func (k Kind) metricType() dto.MetricType {
	switch k {
	case KindCounter:
		return dto.MetricType_COUNTER
	case KindGauge:
		return dto.MetricType_GAUGE
	default:
		return dto.MetricType_HISTOGRAM
	}
}

// DefBuckets 默认的直方图桶边界（秒），适用于大多数网络请求耗时
var DefBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// bucketLabel 直方图桶边界使用的保留标签名
const bucketLabel = "le"

// Desc 指标描述，注册后不可变
//
// 身份由 (Name, Kind, LabelNames) 决定；直方图的 Buckets 也参与兼容性判断。
// Help 仅用于展示，重复注册时以第一次为准。
type Desc struct {
	Name       string
	Help       string
	Kind       Kind
	LabelNames []string
	Buckets    []float64
}

// normalize 校验描述并返回一份独立的副本（内部使用）
func (d *Desc) normalize() (*Desc, error) {
	if d == nil {
		return nil, xerrors.Wrap(ErrInvalidDesc, "descriptor is nil")
	}
	if d.Name == "" || !model.IsValidMetricName(model.LabelValue(d.Name)) {
		return nil, xerrors.Wrapf(ErrInvalidDesc, "invalid metric name %q", d.Name)
	}
	if d.Kind < KindCounter || d.Kind > KindHistogram {
		return nil, xerrors.Wrapf(ErrInvalidDesc, "metric %s: unsupported kind %d", d.Name, d.Kind)
	}

	out := &Desc{
		Name:       d.Name,
		Help:       d.Help,
		Kind:       d.Kind,
		LabelNames: slices.Clone(d.LabelNames),
	}

	seen := make(map[string]struct{}, len(d.LabelNames))
	for _, name := range d.LabelNames {
		if !model.LabelName(name).IsValid() || strings.HasPrefix(name, "__") {
			return nil, xerrors.Wrapf(ErrInvalidDesc, "metric %s: invalid label name %q", d.Name, name)
		}
		if d.Kind == KindHistogram && name == bucketLabel {
			return nil, xerrors.Wrapf(ErrInvalidDesc, "metric %s: label %q is reserved for histograms", d.Name, bucketLabel)
		}
		if _, dup := seen[name]; dup {
			return nil, xerrors.Wrapf(ErrInvalidDesc, "metric %s: duplicate label name %q", d.Name, name)
		}
		seen[name] = struct{}{}
	}

	if d.Kind == KindHistogram {
		buckets, err := normalizeBuckets(d.Buckets)
		if err != nil {
			return nil, xerrors.Wrapf(err, "metric %s", d.Name)
		}
		out.Buckets = buckets
	}
	return out, nil
}

// compatible 判断两个已规范化的描述能否视为同一指标
func (d *Desc) compatible(other *Desc) bool {
	return d.Name == other.Name &&
		d.Kind == other.Kind &&
		slices.Equal(d.LabelNames, other.LabelNames) &&
		slices.Equal(d.Buckets, other.Buckets)
}

// normalizeBuckets 去掉末尾的 +Inf，并要求边界严格递增且为有限值
func normalizeBuckets(buckets []float64) ([]float64, error) {
	if len(buckets) == 0 {
		return slices.Clone(DefBuckets), nil
	}
	out := slices.Clone(buckets)
	if math.IsInf(out[len(out)-1], +1) {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, xerrors.Wrap(ErrInvalidDesc, "histogram needs at least one finite bucket")
	}
	for i, b := range out {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, xerrors.Wrapf(ErrInvalidDesc, "bucket %v is not finite", b)
		}
		if i > 0 && out[i-1] >= b {
			return nil, xerrors.Wrapf(ErrInvalidDesc, "buckets must be strictly increasing, got %v after %v", b, out[i-1])
		}
	}
	return out, nil
}
