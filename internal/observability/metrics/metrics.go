package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "der_explorer_"

	resultSuccess = "success"
	resultError   = "error"
	resultStale   = "stale"
)

var (
	registerOnce sync.Once

	pollingTicks        prometheus.Counter
	pollingFetchTotal   *prometheus.CounterVec
	pollingFetchLatency *prometheus.HistogramVec
	pollingTracked      *prometheus.GaugeVec
	pollingCompleted    *prometheus.CounterVec
	pollingSkipped      *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
)

// Init registers collectors with the default registry. Calling it more than
// once is a no-op; helpers are no-ops until it has run.
func Init() {
	registerOnce.Do(func() {
		pollingTicks = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "polling_ticks_total",
				Help: "Total polling ticks",
			},
		)
		pollingFetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "polling_fetch_total",
				Help: "Total polling fetches by entity kind and result",
			},
			[]string{"kind", "result"},
		)
		pollingFetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "polling_fetch_latency_seconds",
				Help:    "Polling fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "result"},
		)
		pollingTracked = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "polling_tracked",
				Help: "Entities currently tracked for polling by kind",
			},
			[]string{"kind"},
		)
		pollingCompleted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "polling_completed_total",
				Help: "Entities observed complete and untracked by kind",
			},
			[]string{"kind"},
		)
		pollingSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "polling_skipped_total",
				Help: "Polling fetches skipped because the previous fetch was in flight",
			},
			[]string{"kind"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total export operations by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method and status",
			},
			[]string{"method", "status"},
		)

		prometheus.MustRegister(
			pollingTicks,
			pollingFetchTotal,
			pollingFetchLatency,
			pollingTracked,
			pollingCompleted,
			pollingSkipped,
			exportTotal,
			exportLatency,
			httpRequests,
		)
	})
}

// IncPollingTick counts one polling tick.
func IncPollingTick() {
	if pollingTicks != nil {
		pollingTicks.Inc()
	}
}

// ObservePollingFetch records a fetch duration and result for an entity kind.
func ObservePollingFetch(kind, result string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if pollingFetchTotal != nil {
		pollingFetchTotal.WithLabelValues(kind, result).Inc()
	}
	if pollingFetchLatency != nil {
		pollingFetchLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
}

// SetPollingTracked sets the number of tracked entities for a kind.
func SetPollingTracked(kind string, count int) {
	if pollingTracked != nil {
		pollingTracked.WithLabelValues(kind).Set(float64(count))
	}
}

// AddPollingCompleted counts entities that reached a terminal state.
func AddPollingCompleted(kind string, count int) {
	if count <= 0 {
		return
	}
	if pollingCompleted != nil {
		pollingCompleted.WithLabelValues(kind).Add(float64(count))
	}
}

// IncPollingSkipped counts a fetch skipped because one was already in flight.
func IncPollingSkipped(kind string) {
	if pollingSkipped != nil {
		pollingSkipped.WithLabelValues(kind).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncHTTPRequest counts a served HTTP request.
func IncHTTPRequest(method string, status int) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultStale   = resultStale
)
