package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate on the gateway.
	HTTPRequestsTotal *prometheus.CounterVec

	// Gateway latency per request. Watch for: p95 tracking upstream latency.
	HTTPRequestDuration *prometheus.HistogramVec

	HTTPRequestsInFlight prometheus.Gauge

	// Upstream calls by endpoint (weather, forecast, direct, reverse) and status.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency. Watch for: p95 > 2s (provider degradation).
	UpstreamDuration *prometheus.HistogramVec

	UpstreamRetriesTotal prometheus.Counter

	// Errors by stable category (see client.CategorizeError).
	UpstreamErrorsTotal *prometheus.CounterVec

	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// Snapshots assembled vs failed aggregations.
	SnapshotsTotal *prometheus.CounterVec

	// Forecast requests served by another in-flight request for the same coordinates.
	ForecastCoalescedTotal prometheus.Counter

	// Geocoding lookups by kind (search, reverse) and result.
	GeocodingQueriesTotal *prometheus.CounterVec

	// City refresh batches and the per-city failures tolerated inside them.
	RefreshBatchesTotal      prometheus.Counter
	RefreshCityFailuresTotal prometheus.Counter
	RefreshDuration          prometheus.Histogram

	// Durable store operations by backend, op (get, set, delete) and result.
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Debounced searches that were superseded before firing.
	SearchDebounceCanceledTotal prometheus.Counter

	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of OpenWeather API calls",
		},
		[]string{"endpoint", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "OpenWeather API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	UpstreamRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "upstreamRetriesTotal",
			Help: "Total number of retry attempts for OpenWeather calls",
		},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamErrorsTotal",
			Help: "OpenWeather call failures by category",
		},
		[]string{"endpoint", "category"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)
	SnapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherSnapshotsTotal",
			Help: "Weather aggregations by result (success, failure)",
		},
		[]string{"result"},
	)
	ForecastCoalescedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forecastCoalescedTotal",
			Help: "Forecast requests answered by a shared in-flight call",
		},
	)
	GeocodingQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocodingQueriesTotal",
			Help: "Geocoding lookups by kind and result",
		},
		[]string{"kind", "result"},
	)
	RefreshBatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cityRefreshBatchesTotal",
			Help: "Total number of saved-city refresh batches",
		},
	)
	RefreshCityFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cityRefreshFailuresTotal",
			Help: "Cities whose refresh failed inside a batch (prior data retained)",
		},
	)
	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cityRefreshDurationSeconds",
			Help:    "Duration of a saved-city refresh batch",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30},
		},
	)
	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storeOperationsTotal",
			Help: "Durable store operations by backend, op and result",
		},
		[]string{"backend", "op", "result"},
	)
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storeOperationDurationSeconds",
			Help:    "Durable store operation latency",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"backend", "op"},
	)
	SearchDebounceCanceledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "searchDebounceCanceledTotal",
			Help: "Pending searches canceled by a newer keystroke",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration, UpstreamRetriesTotal, UpstreamErrorsTotal,
		CircuitBreakerTransitionsTotal,
		SnapshotsTotal, ForecastCoalescedTotal, GeocodingQueriesTotal,
		RefreshBatchesTotal, RefreshCityFailuresTotal, RefreshDuration,
		StoreOperationsTotal, StoreOperationDuration,
		SearchDebounceCanceledTotal,
		RateLimitDeniedTotal,
	)
}

// RecordCircuitBreakerTransition counts one breaker state change.
func RecordCircuitBreakerTransition(component, from, to string) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
}

// RecordStoreOp counts a store operation and its latency.
func RecordStoreOp(backend, op string, err error, seconds float64) {
	result := "success"
	if err != nil {
		result = "error"
	}
	StoreOperationsTotal.WithLabelValues(backend, op, result).Inc()
	StoreOperationDuration.WithLabelValues(backend, op).Observe(seconds)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
