package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface and the scheduling pipeline.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	solveDuration     *prometheus.HistogramVec
	resultQuality     *prometheus.GaugeVec
	fallbackSteps     *prometheus.CounterVec
	conflictsDetected *prometheus.CounterVec
	optimizerCalls    *prometheus.CounterVec
	activeSessions    prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers collectors on a private registry.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	solveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "exam_schedule_solve_duration_seconds",
		Help:    "Time spent producing an exam schedule",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"algorithm"})

	resultQuality := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "exam_schedule_quality_score",
		Help: "Quality score of the most recent schedule per algorithm",
	}, []string{"algorithm"})

	fallbackSteps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exam_schedule_fallback_steps_total",
		Help: "Fallback chain steps entered",
	}, []string{"step"})

	conflictsDetected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exam_schedule_conflicts_detected_total",
		Help: "Conflicts found by analysis",
	}, []string{"kind", "severity"})

	optimizerCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exam_schedule_optimizer_calls_total",
		Help: "Calls to the external optimizer by outcome",
	}, []string{"outcome"})

	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "exam_schedule_active_sessions",
		Help: "Scheduling sessions currently running",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		solveDuration, resultQuality, fallbackSteps, conflictsDetected, optimizerCalls, activeSessions, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		solveDuration:     solveDuration,
		resultQuality:     resultQuality,
		fallbackSteps:     fallbackSteps,
		conflictsDetected: conflictsDetected,
		optimizerCalls:    optimizerCalls,
		activeSessions:    activeSessions,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveSolve records how long a schedule took and how good it turned out.
func (m *MetricsService) ObserveSolve(algorithm string, duration time.Duration, quality float64) {
	if m == nil {
		return
	}
	m.solveDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
	m.resultQuality.WithLabelValues(algorithm).Set(quality)
}

// RecordFallbackStep counts a fallback chain step.
func (m *MetricsService) RecordFallbackStep(step string) {
	if m == nil {
		return
	}
	m.fallbackSteps.WithLabelValues(step).Inc()
}

// RecordConflicts counts analysed conflicts by kind and severity.
func (m *MetricsService) RecordConflicts(result *models.ConflictAnalysisResult) {
	if m == nil || result == nil {
		return
	}
	for _, c := range result.Conflicts {
		m.conflictsDetected.WithLabelValues(string(c.Kind), string(c.Severity)).Inc()
	}
}

// RecordOptimizerCall counts an optimizer delegate outcome.
func (m *MetricsService) RecordOptimizerCall(outcome string) {
	if m == nil {
		return
	}
	m.optimizerCalls.WithLabelValues(outcome).Inc()
}

// SetActiveSessions publishes the number of running sessions.
func (m *MetricsService) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
