// Package metrics provides Prometheus metrics for the margin desk client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 提交结果标签值。network_error 表示本地合成的传输失败结果。
const (
	ResultOK           = "ok"
	ResultRejected     = "error"
	ResultNetworkError = "network_error"
)

// Collector 汇总提交链路的指标。
type Collector struct {
	Submissions         *prometheus.CounterVec
	CatalogLoadFailures prometheus.Counter
	ValidateLatency     prometheus.Histogram
	CurrentEstimate     prometheus.Gauge
}

// NewCollector 在给定的 Registerer 上注册全部指标；单测传 prometheus.NewRegistry()。
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "margindesk_submissions_total",
			Help: "保证金校验提交数量",
		}, []string{"result"}),
		CatalogLoadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "margindesk_catalog_load_failures_total",
			Help: "资产目录加载失败次数",
		}),
		ValidateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "margindesk_validate_latency_seconds",
			Help:    "校验请求耗时",
			Buckets: prometheus.DefBuckets,
		}),
		CurrentEstimate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "margindesk_margin_estimate",
			Help: "当前草稿的保证金估算值",
		}),
	}
}

// Serve 启动 Prometheus 指标服务器；addr 留空则不启动。
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
