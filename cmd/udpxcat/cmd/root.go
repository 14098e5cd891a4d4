package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	debug      bool
	configPath string

	rootCmd = &cobra.Command{
		Use:   "udpxcat",
		Short: "A reliable-ordered messaging tool over UDP",
		Args:  cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setLogLevel()
		},
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a udpxcat YAML config file")
	rootCmd.AddCommand(dialCmd)
	rootCmd.AddCommand(listenCmd)
}

func setLogLevel() {
	if debug {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// applyConfigLogLevel lets a loaded config file's log_level override the
// --debug/default level set by setLogLevel, once dial/listen have read
// their config. --debug always wins over the config file.
func applyConfigLogLevel(logLevel string) {
	if debug || logLevel == "" {
		return
	}
	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return
	}
	zerolog.SetGlobalLevel(lvl)
}
