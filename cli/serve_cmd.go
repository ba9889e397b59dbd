package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jgoldverg/gust/cli/output"
	"github.com/jgoldverg/gust/internal"
	"github.com/jgoldverg/gust/pkg/gserver"
)

type serveOpts struct {
	configPath  string
	port        int
	dir         string
	interactive bool
}

func ServeCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Serve a directory of files over the gust protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internal.LoadServerConfig(opts.configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("log-level") {
				if err := internal.ConfigureLogger(cfg.LogLevel); err != nil {
					internal.Warn("invalid log level in config, defaulting to info", internal.Fields{
						internal.FieldError: err.Error(),
					})
				}
			}

			if cmd.Flags().Changed("port") {
				cfg.Port = opts.port
			}
			if cmd.Flags().Changed("dir") {
				cfg.ServeDir = opts.dir
			}
			if opts.interactive {
				port, err := promptPort("Please specify a port number")
				if err != nil {
					return err
				}
				cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := gserver.New(cfg)
			if err := srv.Listen(); err != nil {
				return err
			}
			defer srv.Close()

			// Unblock the serve loop's receive wait on shutdown.
			go func() {
				<-ctx.Done()
				srv.Close()
			}()

			err = srv.Serve(ctx)
			output.PrintTransferSummary("Server session totals", srv.Metrics().Snapshot())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to server config file (TOML)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "UDP port to listen on (overrides config)")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory of files to serve (overrides config)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "prompt for the port instead of reading flags/config")

	return cmd
}
