// Command mockserver runs the in-memory Electrum server, seeded with the
// mainnet genesis block so the electrumsmart CLI has something to query.
package main

import (
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"electrumsmart/internal/app"
	"electrumsmart/internal/metrics"
	"electrumsmart/internal/mockserver"
)

func main() {
	if err := newRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	var (
		addr        string
		useTLS      bool
		metricsAddr string
		logLevel    string
		logFormat   string
		noSeed      bool
	)
	cmd := &cobra.Command{
		Use:          "mockserver",
		Short:        "Serve an in-memory Electrum server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := app.NewLogger(logLevel, logFormat, os.Stderr)
			srv := mockserver.New(log)
			if !noSeed {
				if err := seedGenesis(srv); err != nil {
					return err
				}
			}

			var tlsCfg *tls.Config
			if useTLS {
				var err error
				if tlsCfg, err = mockserver.SelfSignedTLS("localhost", "127.0.0.1"); err != nil {
					return err
				}
			}
			if err := srv.Listen(addr, tlsCfg); err != nil {
				return err
			}
			log.Info("electrum mock server listening", "addr", srv.Addr().String(), "tls", useTLS)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Serve(gctx) })
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				if err := reg.Register(srv.Collector()); err != nil {
					return err
				}
				g.Go(func() error { return metrics.ListenAndServe(gctx, metricsAddr, reg, log) })
			}
			return g.Wait()
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "127.0.0.1:50001", "listen address")
	f.BoolVar(&useTLS, "tls", false, "serve TLS with a fresh self-signed certificate")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	f.StringVar(&logFormat, "log-format", "text", "text or json")
	f.BoolVar(&noSeed, "empty", false, "start without the genesis block seed")
	return cmd
}
