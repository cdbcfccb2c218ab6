package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Yida-git/GhostType/internal/dictation"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ghosttype",
	Short: "GhostType - push-to-talk voice dictation",
	Long: `GhostType types what you say, wherever your cursor is.

Hold the push-to-talk key, speak, release. The transcript is injected
immediately and an optional LLM pass corrects it in place a moment later.

Requires a running GhostType recognition service (default ws://127.0.0.1:8000/ws)
and PortAudio for microphone capture.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.toml next to the executable)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig resolves the configuration honoring the --config flag
func loadConfig() (dictation.Config, string) {
	if cfgFile != "" {
		os.Setenv(dictation.EnvConfigPath, cfgFile)
	}
	cfg, path := dictation.LoadConfig()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, path
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
}
