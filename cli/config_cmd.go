package cli

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jgoldverg/gust/internal"
)

func ConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialize gust config files",
	}
	cmd.AddCommand(configInitCommand(), configShowCommand())
	return cmd
}

func configInitCommand() *cobra.Command {
	var serverPath, clientPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write default server and client config files",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverCfg, err := internal.LoadServerConfig(serverPath)
			if err != nil {
				return err
			}
			wroteServer, err := serverCfg.Save(serverPath)
			if err != nil {
				return err
			}
			clientCfg, err := internal.LoadClientConfig(clientPath)
			if err != nil {
				return err
			}
			wroteClient, err := clientCfg.Save(clientPath)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Wrote %s and %s", wroteServer, wroteClient)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverPath, "server-config", "", "server config destination (default ~/.gust/server_config.toml)")
	cmd.Flags().StringVar(&clientPath, "client-config", "", "client config destination (default ~/.gust/client_config.toml)")
	return cmd
}

func configShowCommand() *cobra.Command {
	var serverPath, clientPath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective server and client configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverCfg, err := internal.LoadServerConfig(serverPath)
			if err != nil {
				return err
			}
			clientCfg, err := internal.LoadClientConfig(clientPath)
			if err != nil {
				return err
			}

			pterm.DefaultSection.Println("Server")
			serverData := pterm.TableData{
				{"Key", "Value"},
				{"port", pterm.Sprintf("%d", serverCfg.Port)},
				{"serve_dir", serverCfg.ServeDir},
				{"window_size", pterm.Sprintf("%d", serverCfg.WindowSize)},
				{"ack_timeout_ms", pterm.Sprintf("%d", serverCfg.AckTimeoutMs)},
				{"max_retries", pterm.Sprintf("%d", serverCfg.MaxRetries)},
				{"udp_read_buffer_size", pterm.Sprintf("%d", serverCfg.UDPReadBufferSize)},
				{"log_level", serverCfg.LogLevel},
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(serverData).Render(); err != nil {
				return err
			}

			pterm.DefaultSection.Println("Client")
			clientData := pterm.TableData{
				{"Key", "Value"},
				{"local_port", pterm.Sprintf("%d", clientCfg.LocalPort)},
				{"server_addr", clientCfg.ServerAddr},
				{"server_port", pterm.Sprintf("%d", clientCfg.ServerPort)},
				{"output_dir", clientCfg.OutputDir},
				{"window_size", pterm.Sprintf("%d", clientCfg.WindowSize)},
				{"receive_timeout_ms", pterm.Sprintf("%d", clientCfg.ReceiveTimeoutMs)},
				{"max_stalled_rounds", pterm.Sprintf("%d", clientCfg.MaxStalledRounds)},
				{"handshake_attempts", pterm.Sprintf("%d", clientCfg.HandshakeAttempts)},
				{"log_level", clientCfg.LogLevel},
			}
			return pterm.DefaultTable.WithHasHeader().WithData(clientData).Render()
		},
	}

	cmd.Flags().StringVar(&serverPath, "server-config", "", "server config path")
	cmd.Flags().StringVar(&clientPath, "client-config", "", "client config path")
	return cmd
}
