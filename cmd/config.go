package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chroniclehq/cli/internal/client"
)

var (
	configAPIKey string
	configAPIURL string
	configLogDir string
	configDebug  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Chronicle configuration",
	Long: `View or change the stored configuration.

Environment variables (CHRONICLE_API_KEY, CHRONICLE_API_URL, ...) always take
precedence over the config file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := client.LoadConfig()
		if cfg.IsConfigured() {
			cmd.Printf("api_key:  %s\n", client.MaskAPIKey(cfg.APIKey))
		} else {
			cmd.Println("api_key:  (not set)")
		}
		cmd.Printf("api_url:  %s\n", cfg.APIURL)
		cmd.Printf("log_dir:  %s\n", cfg.LogDir)
		cmd.Printf("debug:    %v\n", cfg.Debug)
		cmd.Printf("timeout:  %ds\n", cfg.TimeoutSeconds)
		cmd.Printf("\nConfig file: %s\n", client.ConfigPath())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store configuration values",
	Long: `Store configuration values in the config file.

Examples:
  chronicle config set --api-key="your-key"
  chronicle config set --api-url="https://api.example.com"
  chronicle config set --debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := client.LoadFileConfig()
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
		if cfg == nil {
			cfg = &client.Config{}
		}

		changed := false
		if cmd.Flags().Changed("api-key") {
			cfg.APIKey = configAPIKey
			changed = true
		}
		if cmd.Flags().Changed("api-url") {
			cfg.APIURL = configAPIURL
			changed = true
		}
		if cmd.Flags().Changed("log-dir") {
			cfg.LogDir = configLogDir
			changed = true
		}
		if cmd.Flags().Changed("debug") {
			cfg.Debug = configDebug
			changed = true
		}
		if !changed {
			return fmt.Errorf("nothing to set; see chronicle config set --help")
		}

		if err := client.SaveFileConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		cmd.Printf("Configuration saved to %s\n", client.ConfigPath())
		return nil
	},
}

func init() {
	configSetCmd.Flags().StringVar(&configAPIKey, "api-key", "", "API key for the Chronicle API")
	configSetCmd.Flags().StringVar(&configAPIURL, "api-url", "", "Base URL of the Chronicle API")
	configSetCmd.Flags().StringVar(&configLogDir, "log-dir", "", "Directory containing session logs")
	configSetCmd.Flags().BoolVar(&configDebug, "debug", false, "Enable debug logging")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
