package httpx

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
)

type metrics struct {
	registry       *prometheus.Registry
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	authFailures   *prometheus.CounterVec
}

func newMetrics(registry *prometheus.Registry) *metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &metrics{registry: registry}
	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookmarkapi",
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "Count of processed HTTP requests",
	}, []string{"method", "route", "status"})

	m.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bookmarkapi",
		Subsystem: "api",
		Name:      "http_request_duration_seconds",
		Help:      "Latency distribution of HTTP handlers",
		Buckets:   histogramBuckets,
	}, []string{"method", "route", "status"})

	m.authFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookmarkapi",
		Subsystem: "api",
		Name:      "auth_failures_total",
		Help:      "Requests rejected by the auth guard, by reason",
	}, []string{"reason"})

	m.requestTotal = register(registry, m.requestTotal)
	m.requestLatency = register(registry, m.requestLatency)
	m.authFailures = register(registry, m.authFailures)
	return m
}

// register adds c to registry, reusing an identical collector that is
// already registered.
func register[T prometheus.Collector](registry *prometheus.Registry, c T) T {
	if err := registry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) recordRequest(method, route string, status int, duration time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.requestTotal.With(labels).Inc()
	m.requestLatency.With(labels).Observe(duration.Seconds())
}

func (m *metrics) recordAuthFailure(reason string) {
	m.authFailures.With(prometheus.Labels{"reason": reason}).Inc()
}
