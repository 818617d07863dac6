package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"electrumsmart/internal/chain"
	"electrumsmart/internal/electrum"
	"electrumsmart/internal/render"
)

func parseTxid(s string) (electrum.Txid, error) {
	txid, err := electrum.ParseTxid(s)
	if err != nil {
		return electrum.Txid{}, fmt.Errorf("txid: %w", err)
	}
	return txid, nil
}

func txCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "tx <txid>",
		Short: "Fetch a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txid, err := parseTxid(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context) error {
				tx, err := appCtx.Session.Transaction(ctx, txid, verbose)
				if err != nil {
					return err
				}
				return printer.Print(tx, func(p *render.Printer) {
					if v := tx.Verbose; v != nil {
						p.KV(
							render.Pair("txid", v.Txid),
							render.Pair("block", v.BlockHash),
							render.Pair("confirmations", v.Confirmations),
							render.Pair("size", v.Size),
							render.Pair("vsize", v.VSize),
							render.Pair("locktime", v.LockTime),
						)
					}
					p.Line("%s", tx.Raw)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "ask the server for the decoded transaction")
	return cmd
}

func merkleCmd() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "merkle <txid> <height>",
		Short: "Fetch the merkle proof of a confirmed transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			txid, err := parseTxid(args[0])
			if err != nil {
				return err
			}
			height, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("height: %w", err)
			}
			return withSession(cmd, func(ctx context.Context) error {
				proof, err := appCtx.Session.Merkle(ctx, txid, height)
				if err != nil {
					return err
				}
				out := struct {
					electrum.MerkleProof
					Verified *bool `json:"verified,omitempty"`
				}{MerkleProof: proof}
				if verify {
					ok, err := verifyProof(ctx, txid, proof)
					if err != nil {
						return err
					}
					out.Verified = &ok
				}
				if err := printer.Print(out, func(p *render.Printer) {
					p.KV(render.Pair("block height", proof.BlockHeight), render.Pair("pos", proof.Pos))
					for i, h := range proof.Merkle {
						p.Line("%3d %s", i, h)
					}
					if out.Verified != nil {
						p.KV(render.Pair("verified", *out.Verified))
					}
				}); err != nil {
					return err
				}
				if out.Verified != nil && !*out.Verified {
					return fmt.Errorf("merkle proof for %s does not match block %d", txid, proof.BlockHeight)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "check the proof against the block header's merkle root")
	return cmd
}

func verifyProof(ctx context.Context, txid electrum.Txid, proof electrum.MerkleProof) (bool, error) {
	raw, err := appCtx.Session.Header(ctx, proof.BlockHeight)
	if err != nil {
		return false, err
	}
	header, err := chain.DecodeHeader(raw)
	if err != nil {
		return false, err
	}
	return chain.VerifyMerkle(txid.Hash(), proof.Merkle, proof.Pos, header.MerkleRoot)
}

func txFromPosCmd() *cobra.Command {
	var merkle bool
	cmd := &cobra.Command{
		Use:   "tx-from-pos <height> <pos>",
		Short: "Print the txid at a position in a block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			height, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("height: %w", err)
			}
			pos, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("pos: %w", err)
			}
			return withSession(cmd, func(ctx context.Context) error {
				res, err := appCtx.Session.TxFromPosition(ctx, height, pos, merkle)
				if err != nil {
					return err
				}
				return printer.Print(res, func(p *render.Printer) {
					p.Line("%s", res.Txid)
					for i, h := range res.Merkle {
						p.Line("%3d %s", i, h)
					}
				})
			})
		},
	}
	cmd.Flags().BoolVar(&merkle, "merkle", false, "include the merkle branch")
	return cmd
}

func broadcastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast <raw-tx-hex>",
		Short: "Broadcast a raw transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context) error {
				txid, err := appCtx.Session.Broadcast(ctx, args[0])
				if err != nil {
					return err
				}
				return printer.Print(txid, func(p *render.Printer) { p.Line("%s", txid) })
			})
		},
	}
}
