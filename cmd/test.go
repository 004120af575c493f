package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chroniclehq/cli/internal/client"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test API connectivity",
	Long: `Ping the Chronicle API to verify connectivity and authentication.

Prerequisites:
  - CHRONICLE_API_KEY must be set`,
	RunE: runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg := client.LoadConfig()
	if !cfg.IsConfigured() {
		return fmt.Errorf("API key not configured. Set CHRONICLE_API_KEY environment variable")
	}

	cmd.Printf("Testing connection to %s...\n", cfg.APIURL)

	apiClient := client.NewClient(cfg, Version)
	if err := apiClient.Ping(cmd.Context()); err != nil {
		return fmt.Errorf("API test failed: %w", err)
	}

	cmd.Println("Success! API connection verified.")
	return nil
}
