package httpapi

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	authOps  *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bozor",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		authOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bozor",
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Auth operations by name and outcome.",
		}, []string{"operation", "outcome"}),
	}
	m.registry.MustRegister(m.requests, m.authOps)
	return m
}

func (m *metrics) observeRequest(method string, status int) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *metrics) observeAuth(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.authOps.WithLabelValues(operation, outcome).Inc()
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
