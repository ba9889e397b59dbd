package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jgoldverg/gust/cli/output"
	"github.com/jgoldverg/gust/internal"
	"github.com/jgoldverg/gust/pkg/gclient"
)

type fetchOpts struct {
	configPath  string
	serverAddr  string
	serverPort  int
	localPort   int
	file        string
	outputDir   string
	interactive bool
}

func FetchCommand() *cobra.Command {
	var opts fetchOpts

	cmd := &cobra.Command{
		Use:     "fetch",
		Aliases: []string{"f", "get"},
		Short:   "Fetch a file from a gust server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internal.LoadClientConfig(opts.configPath)
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

			if cmd.Flags().Changed("server-addr") {
				cfg.ServerAddr = opts.serverAddr
			}
			if cmd.Flags().Changed("server-port") {
				cfg.ServerPort = opts.serverPort
			}
			if cmd.Flags().Changed("local-port") {
				cfg.LocalPort = opts.localPort
			}
			if cmd.Flags().Changed("output-dir") {
				cfg.OutputDir = opts.outputDir
			}

			if opts.interactive || cfg.ServerAddr == "" {
				addr, err := promptAddress("Enter server IP address")
				if err != nil {
					return err
				}
				cfg.ServerAddr = addr
			}
			if opts.interactive {
				port, err := promptPort("Enter server port number")
				if err != nil {
					return err
				}
				cfg.ServerPort = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := gclient.New(cfg)
			if err := client.Dial(); err != nil {
				return err
			}
			defer client.Close()

			listing, err := client.Connect(ctx)
			if err != nil {
				return err
			}
			if len(listing) == 0 {
				return errors.New("server has no files to send")
			}
			output.PrintListing(cfg.ServerAddr, listing)

			name := opts.file
			if name == "" {
				name, err = promptFileChoice(listing)
				if err != nil {
					return err
				}
			}

			path, err := client.Fetch(ctx, name)
			if err != nil {
				return err
			}

			pterm.Success.Printfln("Wrote %s", path)
			output.PrintTransferSummary("Transfer summary", client.Metrics().Snapshot())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to client config file (TOML)")
	cmd.Flags().StringVar(&opts.serverAddr, "server-addr", "", "server address (overrides config)")
	cmd.Flags().IntVar(&opts.serverPort, "server-port", 0, "server UDP port (overrides config)")
	cmd.Flags().IntVar(&opts.localPort, "local-port", 0, "local UDP port to bind (0 = ephemeral)")
	cmd.Flags().StringVar(&opts.file, "file", "", "file to fetch (skips the interactive pick)")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "directory to write the fetched file into")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "prompt for server address and port")

	return cmd
}
