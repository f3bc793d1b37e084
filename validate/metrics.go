package validate

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts validation outcomes per route. All counters are safe for
// concurrent use; a nil *Metrics disables instrumentation.
type Metrics struct {
	Validated *prometheus.CounterVec
	Rejected  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Validated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "routeforge",
				Subsystem: "validate",
				Name:      "requests_validated_total",
				Help:      "Requests that passed schema validation",
			},
			[]string{"route"},
		),
		Rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "routeforge",
				Subsystem: "validate",
				Name:      "requests_rejected_total",
				Help:      "Requests rejected by schema validation",
			},
			[]string{"route"},
		),
	}
}

// Register registers all counters with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Validated, m.Rejected} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Middleware is Middleware with per-route outcome counters. route is the
// label value, conventionally "METHOD /path".
func (m *Metrics) Middleware(route string, v *RequestValidator, next http.Handler) http.Handler {
	return middleware(v, m, route, next)
}

func observe(m *Metrics, route string, ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.Validated.WithLabelValues(route).Inc()
	} else {
		m.Rejected.WithLabelValues(route).Inc()
	}
}
