package session

import "github.com/prometheus/client_golang/prometheus"

// NotificationCounter exposes the notification counter to external tests.
func NotificationCounter(m *Metrics) *prometheus.CounterVec { return m.notifications }
