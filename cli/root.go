package cli

import (
	"github.com/spf13/cobra"

	"github.com/jgoldverg/gust/internal"
)

func NewRootCommand() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "gust",
		Short: "gust is a reliable file transfer tool over plain UDP",
		Long: `gust moves single files over unreliable UDP with its own handshake,
checksums and a go-back-N sliding window. Run "gust serve" to offer a
directory and "gust fetch" to pull a file from a running server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel == "" {
				return nil
			}
			if err := internal.ConfigureLogger(logLevel); err != nil {
				internal.Warn("invalid log level, defaulting to info", internal.Fields{
					internal.FieldError: err.Error(),
				})
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(ServeCommand())
	rootCmd.AddCommand(FetchCommand())
	rootCmd.AddCommand(ConfigCommand())

	return rootCmd
}
