package commands

import (
	"github.com/spf13/cobra"

	"electrumsmart/internal/app"
	"electrumsmart/internal/render"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or inspect the config file",
	}
	cmd.AddCommand(configInitCmd(), configShowCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective config to <home>/config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.WriteConfig(appCtx.Config, force)
			if err != nil {
				return err
			}
			return printer.Print(map[string]string{"path": path}, func(p *render.Printer) {
				p.Line("wrote %s", path)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config after files, env and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := appCtx.Config
			s := c.Server
			pairs := [][2]string{
				render.Pair("home", c.Home),
				render.Pair("server", s.Transport().Addr()),
				render.Pair("tls", s.TLS),
				render.Pair("verify certificate", s.VerifyCertificate),
				render.Pair("read timeout", s.ReadTimeout),
				render.Pair("write timeout", s.WriteTimeout),
				render.Pair("dial timeout", s.DialTimeout),
				render.Pair("retries", s.Retries),
				render.Pair("retry delay", s.RetryDelay),
				render.Pair("network", c.Network),
				render.Pair("client name", c.ClientName),
				render.Pair("resync interval", c.ResyncInterval),
				render.Pair("log level", c.Log.Level),
				render.Pair("log format", c.Log.Format),
			}
			view := make(map[string]string, len(pairs))
			for _, kv := range pairs {
				view[kv[0]] = kv[1]
			}
			return printer.Print(view, func(p *render.Printer) { p.KV(pairs...) })
		},
	}
}
