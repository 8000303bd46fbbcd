package metrics

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/ceyewan/itemscope/clog"
	"github.com/ceyewan/itemscope/xerrors"
)

// Render 将注册表当前状态编码为 Prometheus 文本格式
// 空注册表返回空文档且不报错
func (r *Registry) Render() (string, error) {
	return Render(r)
}

// Handler 返回暴露端点的 http.Handler
func (r *Registry) Handler() http.Handler {
	return NewHandler(r, r.logger)
}

// Render 将任意 Gatherer 的快照编码为文本格式
func Render(g prometheus.Gatherer) (string, error) {
	mfs, err := g.Gather()
	if err != nil {
		return "", xerrors.Wrap(err, "gather metrics")
	}
	var b strings.Builder
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(&b, mf); err != nil {
			return "", xerrors.Wrapf(err, "encode metric family %s", mf.GetName())
		}
	}
	return b.String(), nil
}

// NewHandler 基于 promhttp 创建暴露端点
//
// 快照在写响应之前完成，写网络期间不持有任何指标锁。
// 采集或编码失败时返回 500，只影响暴露端点本身。
func NewHandler(g prometheus.Gatherer, logger clog.Logger) http.Handler {
	if logger == nil {
		logger = clog.Discard()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorLog:      promLogger{logger: logger},
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// promLogger 将 promhttp 的错误输出桥接到 clog
type promLogger struct {
	logger clog.Logger
}

func (l promLogger) Println(v ...any) {
	l.logger.Error("metrics exposition failed", clog.String("detail", strings.TrimSpace(fmt.Sprintln(v...))))
}
