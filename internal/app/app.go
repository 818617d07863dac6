package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/btcsuite/btcd/chaincfg"

	"electrumsmart/internal/chain"
	"electrumsmart/internal/electrum"
)

// App is what commands run against: the resolved config, a logger and the
// wired services.
type App struct {
	Config Config
	Log    *slog.Logger
	Params *chaincfg.Params
	*Wire

	connected bool
}

// New builds an App from cfg, logging to logOut.
func New(cfg Config, logOut io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	params, err := chain.Network(cfg.Network)
	if err != nil {
		return nil, err
	}
	log := NewLogger(cfg.Log.Level, cfg.Log.Format, logOut)
	w, err := NewWire(cfg, log)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Log: log, Params: params, Wire: w}, nil
}

// Connect dials the server with retries, starts the session and negotiates
// the protocol version.
func (a *App) Connect(ctx context.Context) (*electrum.VersionResponse, error) {
	srv := a.Config.Server
	if err := a.Transport.ConnectRetry(ctx, srv.Retries, srv.RetryDelay); err != nil {
		return nil, fmt.Errorf("connect %s: %w", srv.Transport().Addr(), err)
	}
	if err := a.Session.Start(ctx); err != nil {
		_ = a.Transport.Close()
		return nil, err
	}
	a.connected = true
	v, err := a.Session.Negotiate(ctx, a.Config.ClientName)
	if err != nil {
		return nil, err
	}
	a.Log.Debug("session ready", "server", v.ServerSoftware, "addr", srv.Transport().Addr())
	return v, nil
}

// Close tears down the session, if one was started.
func (a *App) Close() error {
	if !a.connected {
		return nil
	}
	a.connected = false
	return a.Session.Close()
}
