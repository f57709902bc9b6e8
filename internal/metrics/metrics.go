package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics dilutio 的 Prometheus 指标（私有 registry）
// nil *Metrics 的所有记录方法均为空操作
type Metrics struct {
	registry *prometheus.Registry

	BaseComputations    *prometheus.CounterVec
	PatientFractions    *prometheus.CounterVec
	CacheLookups        *prometheus.CounterVec
	POPDocuments        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New 创建并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		BaseComputations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dilutio_base_computations_total",
				Help: "Total number of base paste standardizations",
			},
			[]string{"mode", "valid"},
		),
		PatientFractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dilutio_patient_fractions_total",
				Help: "Total number of patient fraction results",
			},
			[]string{"outcome"}, // "ok", "infeasible", "incomplete"
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dilutio_cache_lookups_total",
				Help: "Total number of calculation cache lookups",
			},
			[]string{"kind", "result"}, // result: "hit", "miss", "error"
		),
		POPDocuments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dilutio_pop_documents_total",
				Help: "Total number of POP workbook requests",
			},
			[]string{"type", "result"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dilutio_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}
}

// Registry 返回私有 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordBase 记录一次基质计算
func (m *Metrics) RecordBase(mode string, valid bool) {
	if m == nil {
		return
	}
	m.BaseComputations.WithLabelValues(mode, strconv.FormatBool(valid)).Inc()
}

// RecordFraction 记录一个患者分装结果
func (m *Metrics) RecordFraction(outcome string) {
	if m == nil {
		return
	}
	m.PatientFractions.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup 记录一次缓存查询
func (m *Metrics) RecordCacheLookup(kind, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

// RecordPOP 记录一次 POP 文档生成
func (m *Metrics) RecordPOP(docType, result string) {
	if m == nil {
		return
	}
	m.POPDocuments.WithLabelValues(docType, result).Inc()
}

// RecordHTTPRequest 记录 HTTP 请求耗时
func (m *Metrics) RecordHTTPRequest(route, method string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(route, method, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}
