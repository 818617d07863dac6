package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"electrumsmart/internal/electrum"
	"electrumsmart/internal/render"
)

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context) error {
				if err := appCtx.Session.Ping(ctx); err != nil {
					return err
				}
				return printer.Print(map[string]bool{"ok": true}, func(p *render.Printer) {
					p.Line("pong")
				})
			})
		},
	}
}

func bannerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "banner",
		Short: "Print the server banner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context) error {
				banner, err := appCtx.Session.Banner(ctx)
				if err != nil {
					return err
				}
				return printer.Print(banner, func(p *render.Printer) { p.Line("%s", banner) })
			})
		},
	}
}

func donationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "donation",
		Short: "Print the server's donation address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context) error {
				addr, err := appCtx.Session.Donation(ctx)
				if err != nil {
					return err
				}
				return printer.Print(addr, func(p *render.Printer) { p.Line("%s", render.Optional(addr)) })
			})
		},
	}
}

// version reports what Connect negotiated; server.version may only be sent
// once per connection.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Negotiate the protocol version and print the server software",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := appCtx.Connect(cmd.Context())
			if err != nil {
				return err
			}
			out := struct {
				ServerSoftware string `json:"server_software"`
				Protocol       string `json:"protocol"`
			}{v.ServerSoftware, v.Protocol.String()}
			return printer.Print(out, func(p *render.Printer) {
				p.KV(render.Pair("server", out.ServerSoftware), render.Pair("protocol", out.Protocol))
			})
		},
	}
}

func featuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Print server.features",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context) error {
				f, err := appCtx.Session.Features(ctx)
				if err != nil {
					return err
				}
				return printer.Print(f, func(p *render.Printer) {
					pruning := "none"
					if f.Pruning != nil {
						pruning = strconv.FormatUint(*f.Pruning, 10)
					}
					p.KV(
						render.Pair("server", f.ServerVersion),
						render.Pair("protocol", f.ProtocolMin+" - "+f.ProtocolMax),
						render.Pair("genesis", f.GenesisHash),
						render.Pair("hash function", f.HashFunction),
						render.Pair("pruning", pruning),
					)
					p.Table([]string{"host", "tcp", "ssl"}, hostRows(f.Hosts))
				})
			})
		},
	}
}

func hostRows(h electrum.Hosts) [][]string {
	port := func(p *electrum.Port) string {
		if p == nil {
			return "-"
		}
		return string(*p)
	}
	if h.Single != nil {
		return [][]string{{"(this server)", port(h.Single.TCPPort), port(h.Single.SSLPort)}}
	}
	names := make([]string, 0, len(h.ByName))
	for name := range h.ByName {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		host := h.ByName[name]
		rows = append(rows, []string{name, port(host.TCPPort), port(host.SSLPort)})
	}
	return rows
}

func peersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peers",
		Short: "List the peers the server knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context) error {
				peers, err := appCtx.Session.Peers(ctx)
				if err != nil {
					return err
				}
				return printer.Print(peers, func(p *render.Printer) {
					rows := make([][]string, 0, len(peers))
					for _, peer := range peers {
						rows = append(rows, []string{peer.Host, peer.IP, strings.Join(peer.Features, " ")})
					}
					p.Table([]string{"host", "ip", "features"}, rows)
				})
			})
		},
	}
}

func estimateFeeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate-fee <blocks>",
		Short: "Estimate the fee rate to confirm within a number of blocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.ParseUint(args[0], 10, 16)
			if err != nil {
				return fmt.Errorf("blocks: %w", err)
			}
			return withSession(cmd, func(ctx context.Context) error {
				fee, err := appCtx.Session.EstimateFee(ctx, uint16(target))
				if err != nil {
					return err
				}
				return printFee(fee)
			})
		},
	}
}

func relayFeeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay-fee",
		Short: "Print the minimum relay fee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context) error {
				fee, err := appCtx.Session.RelayFee(ctx)
				if err != nil {
					return err
				}
				return printFee(fee)
			})
		},
	}
}

func printFee(fee electrum.Fee) error {
	return printer.Print(fee, func(p *render.Printer) {
		if !fee.Known {
			p.Line("unknown")
			return
		}
		p.KV(
			render.Pair("BTC/kB", fee),
			render.Pair("sat/vB", strconv.FormatFloat(fee.SatPerVByte(), 'f', 2, 64)),
		)
	})
}

func feeHistogramCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fee-histogram",
		Short: "Print the mempool fee histogram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context) error {
				buckets, err := appCtx.Session.FeeHistogram(ctx)
				if err != nil {
					return err
				}
				return printer.Print(buckets, func(p *render.Printer) {
					rows := make([][]string, 0, len(buckets))
					for _, b := range buckets {
						rows = append(rows, []string{
							strconv.FormatFloat(b.FeeRate, 'f', -1, 64),
							strconv.FormatUint(b.VSize, 10),
						})
					}
					p.Table([]string{"sat/vB", "vsize"}, rows)
				})
			})
		},
	}
}
