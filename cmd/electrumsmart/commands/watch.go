package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"electrumsmart/internal/domain"
	"electrumsmart/internal/metrics"
	"electrumsmart/internal/render"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep a local list of scripts and track their status",
	}
	cmd.AddCommand(watchAddCmd(), watchRemoveCmd(), watchListCmd(), watchSyncCmd(), watchListenCmd())
	return cmd
}

func watchAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <label> [address]",
		Short: "Add a script to the watch-list",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := scriptFromArgs(args[1:])
			if err != nil {
				return err
			}
			entry, err := appCtx.Watch.Add(domain.Label(args[0]), script)
			if err != nil {
				return err
			}
			return printer.Print(entry, func(p *render.Printer) {
				p.KV(render.Pair("label", entry.Label), render.Pair("scripthash", entry.ScriptHash))
			})
		},
	}
	addScriptFlag(cmd)
	return cmd
}

func watchRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <label>",
		Aliases: []string{"rm"},
		Short:   "Remove a script from the watch-list",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.Watch.Remove(domain.Label(args[0])); err != nil {
				return err
			}
			return printer.Print(map[string]string{"removed": args[0]}, func(p *render.Printer) {
				p.Line("removed %s", args[0])
			})
		},
	}
}

func entryRows(entries []domain.WatchEntry) [][]string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		updated := "-"
		if !e.UpdatedAt.IsZero() {
			updated = e.UpdatedAt.Local().Format(time.DateTime)
		}
		rows[i] = []string{e.Label.String(), e.ScriptHash.String(), render.Optional(e.Status), updated}
	}
	return rows
}

var entryHeaders = []string{"label", "scripthash", "status", "updated"}

func watchListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the watch-list with the last known statuses",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := appCtx.Watch.List()
			if err != nil {
				return err
			}
			return printer.Print(entries, func(p *render.Printer) {
				p.Table(entryHeaders, entryRows(entries))
			})
		},
	}
}

func changeRows(changes []domain.StatusChange) [][]string {
	rows := make([][]string, len(changes))
	for i, c := range changes {
		rows[i] = []string{c.Entry.Label.String(), render.Optional(c.Previous), render.Optional(c.Entry.Status)}
	}
	return rows
}

func watchSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the current status of every watched script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context) error {
				changes, syncErr := appCtx.Watch.Sync(ctx)
				if err := printer.Print(changes, func(p *render.Printer) {
					p.Table([]string{"label", "previous", "status"}, changeRows(changes))
				}); err != nil {
					return err
				}
				return syncErr
			})
		},
	}
}

func watchListenCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Sync, then print status changes as the server pushes them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context) error {
				if _, err := appCtx.Watch.Sync(ctx); err != nil {
					appCtx.Log.Warn("initial sync incomplete", "err", err)
				}
				g, gctx := errgroup.WithContext(ctx)
				if metricsAddr != "" {
					g.Go(func() error {
						return metrics.ListenAndServe(gctx, metricsAddr, appCtx.Registry, appCtx.Log)
					})
				}
				g.Go(func() error {
					err := appCtx.Watch.Listen(gctx, func(c domain.StatusChange) {
						_ = printer.Print(c, func(p *render.Printer) {
							p.Line("%s %s -> %s", c.Entry.Label, render.Optional(c.Previous), render.Optional(c.Entry.Status))
						})
					})
					if err != nil {
						return err
					}
					// Listen returns nil only once gctx is done.
					return gctx.Err()
				})
				return g.Wait()
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	return cmd
}
