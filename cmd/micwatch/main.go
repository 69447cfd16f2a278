package main

import (
	"fmt"
	"os"

	"github.com/breeze-rmm/micwatch/internal/audiomon"
	"github.com/breeze-rmm/micwatch/internal/config"
	"github.com/breeze-rmm/micwatch/internal/logging"
	"github.com/breeze-rmm/micwatch/internal/platform"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	cfg    *config.Config
	facade *audiomon.Facade
	log    = logging.L("cli")
)

var rootCmd = &cobra.Command{
	Use:   "micwatch",
	Short: "Microphone and speaker usage monitor",
	Long: `micwatch reports which processes are using the microphone or speakers
and streams microphone activity changes.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "micwatch %s\n", version)
		fmt.Fprintf(out, "Commit: %s\n", commit)
		fmt.Fprintf(out, "Built: %s\n", buildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(capabilitiesCmd)
	rootCmd.AddCommand(micCmd)
	rootCmd.AddCommand(speakersCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(activateCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file path")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (text, json, yaml)")
}

// setup loads config, configures logging and resolves the provider once
// for whichever command runs.
func setup(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		loaded.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		loaded.LogFormat = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		loaded.OutputFormat = v
	}
	problems := loaded.Validate()

	logging.Init(loaded.LogFormat, loaded.LogLevel, cmd.ErrOrStderr())
	for _, p := range problems {
		log.Warn("config adjusted", zap.NamedError(logging.KeyError, p))
	}

	provider := platform.Init(platform.Options{
		PollInterval: loaded.PollInterval,
		Logger:       logging.L("platform"),
	})
	facade = audiomon.New(provider, audiomon.WithLogger(logging.L("audiomon")))
	cfg = loaded

	if !provider.Native() {
		log.Warn("no native audio provider for this platform, results are placeholders",
			zap.String(logging.KeyProvider, provider.Name()))
	} else {
		log.Debug("provider resolved", zap.String(logging.KeyProvider, provider.Name()))
	}
	return nil
}

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
