package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"electrumsmart/internal/electrum"
	"electrumsmart/internal/render"
)

const scriptUse = " [address]"

func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance" + scriptUse,
		Short: "Print the confirmed and unconfirmed balance of a script",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := scriptFromArgs(args)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context) error {
				bal, err := appCtx.Session.Balance(ctx, script)
				if err != nil {
					return err
				}
				return printer.Print(bal, func(p *render.Printer) {
					p.KV(
						render.Pair("confirmed", bal.Confirmed),
						render.Pair("unconfirmed", bal.Unconfirmed),
					)
				})
			})
		},
	}
	addScriptFlag(cmd)
	return cmd
}

func historyRows(items []electrum.HistoryItem) [][]string {
	rows := make([][]string, len(items))
	for i, it := range items {
		fee := "-"
		if it.Fee != nil {
			fee = strconv.FormatUint(*it.Fee, 10)
		}
		rows[i] = []string{strconv.FormatInt(it.Height, 10), it.Txid.String(), fee}
	}
	return rows
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history" + scriptUse,
		Short: "List the transactions touching a script",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := scriptFromArgs(args)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context) error {
				items, err := appCtx.Session.History(ctx, script)
				if err != nil {
					return err
				}
				return printer.Print(items, func(p *render.Printer) {
					p.Table([]string{"height", "txid", "fee"}, historyRows(items))
				})
			})
		},
	}
	addScriptFlag(cmd)
	return cmd
}

func mempoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mempool" + scriptUse,
		Short: "List the unconfirmed transactions touching a script",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := scriptFromArgs(args)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context) error {
				items, err := appCtx.Session.Mempool(ctx, script)
				if err != nil {
					return err
				}
				return printer.Print(items, func(p *render.Printer) {
					p.Table([]string{"height", "txid", "fee"}, historyRows(items))
				})
			})
		},
	}
	addScriptFlag(cmd)
	return cmd
}

func unspentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unspent" + scriptUse,
		Short: "List the unspent outputs of a script",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := scriptFromArgs(args)
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context) error {
				utxos, err := appCtx.Session.ListUnspent(ctx, script)
				if err != nil {
					return err
				}
				return printer.Print(utxos, func(p *render.Printer) {
					rows := make([][]string, len(utxos))
					for i, u := range utxos {
						rows[i] = []string{
							u.Txid.String() + ":" + strconv.FormatUint(uint64(u.Pos), 10),
							strconv.FormatInt(u.Height, 10),
							strconv.FormatUint(u.Value, 10),
						}
					}
					p.Table([]string{"outpoint", "height", "value"}, rows)
				})
			})
		},
	}
	addScriptFlag(cmd)
	return cmd
}

func subscribeCmd() *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "subscribe" + scriptUse,
		Short: "Print the status of a script, optionally following changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := scriptFromArgs(args)
			if err != nil {
				return err
			}
			sh := electrum.NewScriptHash(script)
			return withSession(cmd, func(ctx context.Context) error {
				status, err := appCtx.Session.Subscribe(ctx, script)
				if err != nil {
					return err
				}
				if err := printStatus(sh, status); err != nil {
					return err
				}
				if !follow {
					return nil
				}
				for {
					select {
					case <-ctx.Done():
						return nil
					case n, ok := <-appCtx.Session.Notifications():
						if !ok {
							return appCtx.Session.Err()
						}
						if sn, isScript := n.(*electrum.ScriptHashNotification); isScript && sn.ScriptHash == sh {
							if err := printStatus(sh, sn.Status); err != nil {
								return err
							}
						}
					}
				}
			})
		},
	}
	addScriptFlag(cmd)
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing status changes until interrupted")
	return cmd
}

func printStatus(sh electrum.ScriptHash, status *string) error {
	out := struct {
		ScriptHash electrum.ScriptHash `json:"scripthash"`
		Status     *string             `json:"status"`
	}{sh, status}
	return printer.Print(out, func(p *render.Printer) {
		p.KV(render.Pair("scripthash", sh), render.Pair("status", render.Optional(status)))
	})
}
