package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments a Service. A nil *Metrics records nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	notifications *prometheus.CounterVec
}

// NewMetrics builds the session collectors and registers them with reg when
// it is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "electrum_session_requests_total",
			Help: "Electrum requests by method and outcome (ok, server_error, error).",
		}, []string{"method", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "electrum_session_request_duration_seconds",
			Help:    "Time from send to response, by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "electrum_session_notifications_total",
			Help: "Server notifications by method and whether they were delivered or dropped.",
		}, []string{"method", "result"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.requests, m.latency, m.notifications} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	if outcome != "error" {
		m.latency.WithLabelValues(method).Observe(seconds)
	}
}

func (m *Metrics) notification(method, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(method, result).Inc()
}
