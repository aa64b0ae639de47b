package core

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/crawlers"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 运行指标,所有方法对nil接收者安全
type Metrics struct {
	Registry        *prometheus.Registry
	LabelsHarvested prometheus.Counter
	PlacesPersisted prometheus.Counter
	PlacesSkipped   *prometheus.CounterVec
	Attempts        prometheus.Counter
	ReviewsTotal    prometheus.Counter
	FieldResults    *prometheus.CounterVec
	ItemDuration    prometheus.Histogram
}

var _ crawlers.FieldObserver = (*Metrics)(nil)

// NewMetrics 在独立的registry上创建并注册所有指标
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	labels := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapscrawler_labels_harvested_total",
		Help: "Total number of entry labels captured from result lists.",
	})
	persisted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapscrawler_places_persisted_total",
		Help: "Total number of place records written to checkpoints.",
	})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapscrawler_places_skipped_total",
		Help: "Total number of entries skipped, by reason.",
	}, []string{"reason"})
	attempts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapscrawler_extract_attempts_total",
		Help: "Total number of open+extract attempts.",
	})
	reviews := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapscrawler_reviews_total",
		Help: "Total number of reviews extracted.",
	})
	fields := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapscrawler_field_results_total",
		Help: "Field extraction outcomes by field and state.",
	}, []string{"field", "state"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapscrawler_item_duration_seconds",
		Help:    "Time spent extracting one entry including retries.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})

	registry.MustRegister(labels, persisted, skipped, attempts, reviews, fields, duration)

	return &Metrics{
		Registry:        registry,
		LabelsHarvested: labels,
		PlacesPersisted: persisted,
		PlacesSkipped:   skipped,
		Attempts:        attempts,
		ReviewsTotal:    reviews,
		FieldResults:    fields,
		ItemDuration:    duration,
	}
}

// AddLabels 记录采集到的标签数
func (m *Metrics) AddLabels(n int) {
	if m == nil {
		return
	}
	m.LabelsHarvested.Add(float64(n))
}

// IncPersisted 记录一条持久化记录及其评论数
func (m *Metrics) IncPersisted(reviews int) {
	if m == nil {
		return
	}
	m.PlacesPersisted.Inc()
	m.ReviewsTotal.Add(float64(reviews))
}

// IncSkipped 记录跳过的条目
func (m *Metrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.PlacesSkipped.WithLabelValues(reason).Inc()
}

// AddAttempts 记录尝试次数
func (m *Metrics) AddAttempts(n int) {
	if m == nil {
		return
	}
	m.Attempts.Add(float64(n))
}

// ObserveItem 记录单个条目耗时
func (m *Metrics) ObserveItem(d time.Duration) {
	if m == nil {
		return
	}
	m.ItemDuration.Observe(d.Seconds())
}

// ObserveField 实现crawlers.FieldObserver
func (m *Metrics) ObserveField(field string, state crawlers.FieldState) {
	if m == nil {
		return
	}
	m.FieldResults.WithLabelValues(field, state.String()).Inc()
}

// MetricsServer 指标HTTP端点
type MetricsServer struct {
	server *http.Server
}

// StartMetricsServer 启动 /metrics 端点,addr为空时返回nil
func StartMetricsServer(addr string, m *Metrics) *MetricsServer {
	if addr == "" || m == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Errorf("指标服务异常退出: %v", err)
		}
	}()
	utils.Infof("📈 指标端点已启动: http://%s/metrics", addr)
	return &MetricsServer{server: srv}
}

// Shutdown 关闭指标端点
func (s *MetricsServer) Shutdown() {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		utils.Warnf("关闭指标服务失败: %v", err)
	}
}
