package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// hookedEvents are the native events that trigger an incremental sync.
var hookedEvents = []string{"Stop", "SessionEnd"}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install Chronicle hooks",
	Long: `Install Chronicle hooks into the Claude Code settings file so sessions are
synced automatically when they end.

Prerequisites:
  1. Set your API key: export CHRONICLE_API_KEY="your-key"
  2. Have Claude Code installed`,
	RunE: runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	exePath, err = filepath.EvalSymlinks(exePath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	settingsPath, err := claudeSettingsPath()
	if err != nil {
		return err
	}

	// Read existing settings or create new
	settings := make(map[string]interface{})
	if data, err := os.ReadFile(settingsPath); err == nil {
		if err := json.Unmarshal(data, &settings); err != nil {
			return fmt.Errorf("failed to parse existing settings: %w", err)
		}
	}

	hookCmd := fmt.Sprintf("%s hook", exePath)
	hooks, _ := settings["hooks"].(map[string]interface{})
	if hooks == nil {
		hooks = make(map[string]interface{})
		settings["hooks"] = hooks
	}
	for _, event := range hookedEvents {
		hooks[event] = []map[string]interface{}{
			{
				"hooks": []map[string]interface{}{
					{
						"type":    "command",
						"command": hookCmd,
						"timeout": 60,
					},
				},
			},
		}
	}

	if err := os.MkdirAll(filepath.Dir(settingsPath), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(settingsPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	cmd.Println("Successfully installed Chronicle hooks")
	cmd.Printf("Settings file: %s\n", settingsPath)
	cmd.Println("\nMake sure you have set your API key:")
	cmd.Println("  export CHRONICLE_API_KEY=\"your-api-key\"")
	return nil
}

func claudeSettingsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".claude", "settings.json"), nil
}
