package httpapi

import (
	"net/http"
	"time"

	"github.com/caramaschiHG/Dilutio/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux     *http.ServeMux
	metrics *metrics.Metrics // nil = 不记录请求耗时
	logger  *zap.Logger
}

func NewRouter(m *metrics.Metrics, logger *zap.Logger) *Router {
	return &Router{
		mux:     http.NewServeMux(),
		metrics: m,
		logger:  logger,
	}
}

// Handle 注册路由，并以 pattern 作为耗时指标的 route 标签
// 响应携带 X-Request-ID（请求未提供时生成 UUID）
func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.Handle(pattern, r.instrument(pattern, h))
}

// HandleHandler 支持 http.Handler 接口（用于 /metrics）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterCompoundingRoutes 注册计算与文档路由
func (r *Router) RegisterCompoundingRoutes(h *CompoundingHandler) {
	r.Handle("/dilutio/api/v1/base/compute", func(w http.ResponseWriter, req *http.Request) {
		if !methodAllowed(w, req, http.MethodPost) {
			return
		}
		h.ComputeBase(w, req)
	})

	r.Handle("/dilutio/api/v1/fractions/compute", func(w http.ResponseWriter, req *http.Request) {
		if !methodAllowed(w, req, http.MethodPost) {
			return
		}
		h.ComputeFractions(w, req)
	})

	r.Handle("/dilutio/api/v1/batch/compute", func(w http.ResponseWriter, req *http.Request) {
		if !methodAllowed(w, req, http.MethodPost) {
			return
		}
		h.ComputeBatch(w, req)
	})

	r.Handle("/dilutio/api/v1/batch/pop", func(w http.ResponseWriter, req *http.Request) {
		if !methodAllowed(w, req, http.MethodPost) {
			return
		}
		h.GeneratePOP(w, req)
	})

	r.Handle("/dilutio/api/v1/extract-types", func(w http.ResponseWriter, req *http.Request) {
		if !methodAllowed(w, req, http.MethodGet) {
			return
		}
		h.ExtractTypes(w, req)
	})
}

// RegisterHealthRoutes 健康检查
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		if !methodAllowed(w, req, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// RegisterMetricsRoute Prometheus 指标
func (r *Router) RegisterMetricsRoute() {
	if r.metrics == nil {
		return
	}
	r.HandleHandler("/metrics", r.metrics.Handler())
}

// statusRecorder 记录响应状态码
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (r *Router) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		requestID := req.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, req)

		elapsed := time.Since(start)
		r.metrics.RecordHTTPRequest(route, req.Method, rec.status, elapsed)
		r.logger.Debug("HTTP request",
			zap.String("request_id", requestID),
			zap.String("route", route),
			zap.String("method", req.Method),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
		)
	})
}
