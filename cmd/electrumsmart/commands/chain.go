package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/wire"
	"github.com/spf13/cobra"

	"electrumsmart/internal/chain"
	"electrumsmart/internal/render"
)

// headerView is the decoded form printed by header and headers.
type headerView struct {
	Height     uint64 `json:"height"`
	Hash       string `json:"hash"`
	Prev       string `json:"prev_block"`
	MerkleRoot string `json:"merkle_root"`
	Time       string `json:"time"`
	Bits       string `json:"bits"`
	Nonce      uint32 `json:"nonce"`
	Version    int32  `json:"version"`
	Hex        string `json:"hex,omitempty"`
}

func viewHeader(height uint64, h *wire.BlockHeader, rawHex string) headerView {
	return headerView{
		Height:     height,
		Hash:       h.BlockHash().String(),
		Prev:       h.PrevBlock.String(),
		MerkleRoot: h.MerkleRoot.String(),
		Time:       h.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		Bits:       fmt.Sprintf("%08x", h.Bits),
		Nonce:      h.Nonce,
		Version:    h.Version,
		Hex:        rawHex,
	}
}

func headerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "header <height>",
		Short: "Fetch and decode the block header at a height",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			height, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("height: %w", err)
			}
			return withSession(cmd, func(ctx context.Context) error {
				raw, err := appCtx.Session.Header(ctx, height)
				if err != nil {
					return err
				}
				h, err := chain.DecodeHeader(raw)
				if err != nil {
					return err
				}
				v := viewHeader(height, h, raw)
				return printer.Print(v, func(p *render.Printer) {
					p.KV(
						render.Pair("height", v.Height),
						render.Pair("hash", v.Hash),
						render.Pair("prev", v.Prev),
						render.Pair("merkle root", v.MerkleRoot),
						render.Pair("time", v.Time),
						render.Pair("bits", v.Bits),
						render.Pair("nonce", v.Nonce),
						render.Pair("version", v.Version),
					)
				})
			})
		},
	}
}

func headersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "headers <start> <count>",
		Short: "Fetch a run of block headers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("start: %w", err)
			}
			count, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("count: %w", err)
			}
			return withSession(cmd, func(ctx context.Context) error {
				got, err := appCtx.Session.Headers(ctx, start, count)
				if err != nil {
					return err
				}
				headers, err := chain.DecodeHeaders(got.Hex, got.Count)
				if err != nil {
					return err
				}
				views := make([]headerView, len(headers))
				for i := range headers {
					views[i] = viewHeader(start+uint64(i), &headers[i], "")
				}
				return printer.Print(views, func(p *render.Printer) {
					rows := make([][]string, len(views))
					for i, v := range views {
						rows[i] = []string{strconv.FormatUint(v.Height, 10), v.Hash, v.Time}
					}
					p.Table([]string{"height", "hash", "time"}, rows)
					if got.Count < count {
						p.Line("%d of %d returned (server max %d)", got.Count, count, got.Max)
					}
				})
			})
		},
	}
}
