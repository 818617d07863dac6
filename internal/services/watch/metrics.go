package watch

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments a Service. A nil *Metrics records nothing.
type Metrics struct {
	entries prometheus.Gauge
	changes prometheus.Counter
	syncs   *prometheus.CounterVec
}

// NewMetrics builds the watch collectors and registers them with reg when it
// is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "electrum_watch_entries",
			Help: "Scripts on the watch-list at the last sync.",
		}),
		changes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "electrum_watch_status_changes_total",
			Help: "Scripthash status changes recorded for watched scripts.",
		}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "electrum_watch_syncs_total",
			Help: "Watch-list syncs by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.entries, m.changes, m.syncs} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) synced(entries, changes int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.syncs.WithLabelValues("error").Inc()
		return
	}
	m.syncs.WithLabelValues("ok").Inc()
	m.entries.Set(float64(entries))
	m.changes.Add(float64(changes))
}

func (m *Metrics) changed(n int) {
	if m == nil {
		return
	}
	m.changes.Add(float64(n))
}
