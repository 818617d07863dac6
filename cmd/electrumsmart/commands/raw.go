package commands

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"electrumsmart/internal/electrum"
	"electrumsmart/internal/render"
)

func rawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <method> [params...]",
		Short: "Call any protocol method with JSON params",
		Long: "Each param is parsed as JSON; anything that is not valid JSON is sent as a string.\n" +
			"The reply is decoded with the same parser the typed commands use.",
		Example: "  electrumsmart raw blockchain.block.header 0\n" +
			"  electrumsmart raw blockchain.transaction.get <txid> true -o json",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, err := electrum.ParseMethod(args[0])
			if err != nil {
				return err
			}
			params := make([]any, 0, len(args)-1)
			for _, arg := range args[1:] {
				params = append(params, rawParam(arg))
			}
			return withSession(cmd, func(ctx context.Context) error {
				res, err := appCtx.Session.Call(ctx, electrum.NewRequest(method, params...))
				if err != nil {
					return err
				}
				return printer.Print(res, func(p *render.Printer) {
					b, err := json.MarshalIndent(res, "", "  ")
					if err != nil {
						p.Line("%v", res)
						return
					}
					p.Line("%s", b)
				})
			})
		},
	}
}

func rawParam(arg string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(arg)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return arg
	}
	return v
}
