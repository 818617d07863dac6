package app

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"electrumsmart/internal/services/session"
	"electrumsmart/internal/services/watch"
	"electrumsmart/internal/store"
	"electrumsmart/internal/transport"
)

// Wire bundles all stores, services and clients for the CLI.
type Wire struct {
	Transport *transport.Client
	Session   *session.Service
	Watches   *store.WatchFileStore
	Watch     *watch.Service
	Registry  *prometheus.Registry
}

// NewWire constructs the dependency graph from cfg. Nothing connects yet.
func NewWire(cfg Config, log *slog.Logger) (*Wire, error) {
	reg := prometheus.NewRegistry()

	sessionMetrics, err := session.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	watchMetrics, err := watch.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	// Electrum transport and the session that owns it
	tc := transport.New(cfg.Server.Transport(), log)
	sess := session.New(tc, log, sessionMetrics)

	// File-based watch-list
	watches := store.NewWatchFileStore(cfg.Home)
	watchSvc := watch.New(watches, sess, log, watchMetrics, watch.Options{
		ResyncInterval: cfg.ResyncInterval,
	})

	return &Wire{
		Transport: tc,
		Session:   sess,
		Watches:   watches,
		Watch:     watchSvc,
		Registry:  reg,
	}, nil
}
