package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec
	badgesIssued    *prometheus.CounterVec
	sheetsRendered  prometheus.Counter
	renderDuration  prometheus.Histogram
}

// NewMetricsService registers the API's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	transitionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "badge_request_transitions_total",
		Help: "Total badge request workflow transitions by action",
	}, []string{"action"})

	badgesIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "badges_issued_total",
		Help: "Total badges issued by category color",
	}, []string{"color"})

	sheetsRendered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "print_sheets_total",
		Help: "Total print sheets generated",
	})

	renderDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "badge_render_duration_seconds",
		Help:    "Duration of badge artifact rendering",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, transitionTotal, badgesIssued, sheetsRendered, renderDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		transitionTotal: transitionTotal,
		badgesIssued:    badgesIssued,
		sheetsRendered:  sheetsRendered,
		renderDuration:  renderDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveTransition counts one workflow transition.
func (m *MetricsService) ObserveTransition(action string) {
	if m == nil {
		return
	}
	m.transitionTotal.WithLabelValues(action).Inc()
}

// ObserveBadgeIssued counts one issued badge.
func (m *MetricsService) ObserveBadgeIssued(color string) {
	if m == nil {
		return
	}
	m.badgesIssued.WithLabelValues(color).Inc()
}

// ObserveSheetRendered counts one generated print sheet.
func (m *MetricsService) ObserveSheetRendered() {
	if m == nil {
		return
	}
	m.sheetsRendered.Inc()
}

// ObserveRender records one badge artifact render.
func (m *MetricsService) ObserveRender(duration time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(duration.Seconds())
}
