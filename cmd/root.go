package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/chroniclehq/cli/internal/client"
	"github.com/chroniclehq/cli/internal/logging"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Chronicle CLI - Sync AI assistant conversations",
	Long: `Chronicle incrementally syncs local AI coding-assistant session logs to the
Chronicle API, publishing only the exchanges that changed since the last run.

Get started:
  1. Set your API key: export CHRONICLE_API_KEY="your-key"
  2. Install hooks: chronicle install
  3. Use your AI assistant as normal - sessions sync automatically`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("chronicle %s\n", Version)
	},
}

// newLogger builds the process logger from the loaded config.
func newLogger(cfg *client.Config, quiet bool) *slog.Logger {
	return logging.New(logging.Options{
		Debug: cfg.Debug,
		Quiet: quiet,
		Dir:   cfg.StateDir,
	})
}
