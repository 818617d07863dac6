package commands

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"electrumsmart/internal/app"
	"electrumsmart/internal/chain"
	"electrumsmart/internal/render"
)

var (
	home    string
	output  string
	appCtx  *app.App
	printer *render.Printer

	scriptHex string
	pubkeyHex string
)

// Execute runs the CLI with os.Args.
func Execute() error {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

// run executes one command line and closes whatever session it opened,
// whether or not the command failed.
func run(args []string, stdout, stderr io.Writer) error {
	home, output, scriptHex, pubkeyHex = "", "", "", ""
	appCtx, printer = nil, nil

	root := newRoot(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if appCtx != nil {
		err = errors.Join(err, appCtx.Close())
	}
	return err
}

func newRoot(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "electrumsmart",
		Short:         "Query Electrum servers and watch scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := app.DefaultHome()
				if err != nil {
					return err
				}
				home = dir
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			cfg, err := app.LoadConfig(home, cmd.Flags())
			if err != nil {
				return err
			}
			format, err := render.ParseFormat(output)
			if err != nil {
				return err
			}
			appCtx, err = app.New(cfg, stderr)
			if err != nil {
				return err
			}
			printer = render.New(stdout, format)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&home, "home", "", "config dir (default ~/.electrumsmart)")
	pf.StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	pf.String("host", "", "Electrum server host")
	pf.Uint16("port", 0, "Electrum server port")
	pf.Bool("tls", true, "use TLS")
	pf.Bool("verify", true, "verify the server certificate")
	pf.Duration("read-timeout", 0, "read timeout (0 disables)")
	pf.Duration("write-timeout", 0, "write timeout (0 disables)")
	pf.Duration("dial-timeout", 0, "dial and TLS handshake timeout")
	pf.Uint64("retries", 0, "extra connection attempts")
	pf.Duration("retry-delay", 0, "delay between connection attempts")
	pf.String("network", "", "mainnet, testnet, signet or regtest (for addresses)")
	pf.String("client-name", "", "client name sent in server.version")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.String("log-format", "", "text or json")
	pf.Duration("resync-interval", 0, "full watch-list resync period while listening (0 disables)")

	root.AddCommand(
		pingCmd(), bannerCmd(), donationCmd(), versionCmd(), featuresCmd(), peersCmd(),
		headerCmd(), headersCmd(),
		estimateFeeCmd(), relayFeeCmd(), feeHistogramCmd(),
		balanceCmd(), historyCmd(), mempoolCmd(), unspentCmd(), subscribeCmd(),
		txCmd(), merkleCmd(), txFromPosCmd(), broadcastCmd(),
		rawCmd(), configCmd(), watchCmd(),
	)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, cmd.UsageString())
	})
	return root
}

// withSession connects, runs fn and reports its error on stderr.
func withSession(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if _, err := appCtx.Connect(ctx); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return nil
}

// addScriptFlag adds --script and --pubkey to commands that take an address
// argument.
func addScriptFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scriptHex, "script", "", "output script in hex instead of an address")
	cmd.Flags().StringVar(&pubkeyHex, "pubkey", "", "compressed public key in hex; watches its P2WPKH script")
	cmd.MarkFlagsMutuallyExclusive("script", "pubkey")
}

// scriptFromArgs resolves the script from --script, --pubkey or the address
// argument.
func scriptFromArgs(args []string) ([]byte, error) {
	flagged := scriptHex != "" || pubkeyHex != ""
	switch {
	case flagged && len(args) > 0:
		return nil, errors.New("give either an address or --script/--pubkey, not both")
	case scriptHex != "":
		script, err := hex.DecodeString(scriptHex)
		if err != nil {
			return nil, fmt.Errorf("--script: %w", err)
		}
		return script, nil
	case pubkeyHex != "":
		pub, err := hex.DecodeString(pubkeyHex)
		if err != nil {
			return nil, fmt.Errorf("--pubkey: %w", err)
		}
		if len(pub) != 33 {
			return nil, fmt.Errorf("--pubkey: want 33 bytes, got %d", len(pub))
		}
		return chain.P2WPKHScript(pub)
	case len(args) == 1:
		return chain.ScriptForAddress(args[0], appCtx.Params)
	default:
		return nil, errors.New("an address, --script or --pubkey is required")
	}
}
