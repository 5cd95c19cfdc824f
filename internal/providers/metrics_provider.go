package providers

import (
	"cgmd/internal/snapshot"
	"cgmd/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	ObserveUpstreamDuration(endpoint string, duration time.Duration)
	IncCyclesTotal(outcome string)
	SetNextPollDelay(delay time.Duration)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	upstreamDuration    *prometheus.HistogramVec
	cyclesTotal         *prometheus.CounterVec
	nextPollDelay       prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) ObserveUpstreamDuration(endpoint string, duration time.Duration) {
	m.upstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCyclesTotal(outcome string) {
	m.cyclesTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) SetNextPollDelay(delay time.Duration) {
	m.nextPollDelay.Set(delay.Seconds())
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config, publisher snapshot.PublisherInterface) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cgmd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cgmd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cgmd_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cgmd_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cgmd_persistence_duration_seconds",
			Help:    "Duration of persistence operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		upstreamDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cgmd_upstream_request_duration_seconds",
			Help:    "Upstream API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cgmd_poll_cycles_total",
			Help: "Total number of poll cycles by outcome",
		}, []string{"outcome"}),

		nextPollDelay: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cgmd_next_poll_delay_seconds",
			Help: "Delay armed for the next poll cycle",
		}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cgmd_glucose_mgdl",
		Help: "Latest published glucose value in mg/dL",
	}, func() float64 {
		if snap := publisher.Current(); snap != nil && snap.MgDl != nil {
			return snap.MgDl.Value
		}
		return 0
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cgmd_reading_age_seconds",
		Help: "Age of the latest published reading",
	}, func() float64 {
		if snap := publisher.Current(); snap != nil && snap.MgDl != nil {
			return time.Since(snap.MgDl.Timestamp).Seconds()
		}
		return 0
	})

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                  {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration)  {}
func (n *noopMetrics) IncCacheHits()                                     {}
func (n *noopMetrics) IncCacheMisses()                                   {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)        {}
func (n *noopMetrics) ObserveUpstreamDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCyclesTotal(_ string)                           {}
func (n *noopMetrics) SetNextPollDelay(_ time.Duration)                  {}
