package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove Chronicle hooks",
	Long:  `Remove Chronicle hooks from the Claude Code settings file. Sync state and remote records are left untouched.`,
	RunE:  runUninstall,
}

func runUninstall(cmd *cobra.Command, args []string) error {
	settingsPath, err := claudeSettingsPath()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			cmd.Println("Nothing to uninstall (no settings file)")
			return nil
		}
		return fmt.Errorf("failed to read settings: %w", err)
	}

	var settings map[string]interface{}
	if err := json.Unmarshal(data, &settings); err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}

	hooks, ok := settings["hooks"].(map[string]interface{})
	if !ok {
		cmd.Println("Nothing to uninstall (no hooks configured)")
		return nil
	}

	removed := 0
	for name, config := range hooks {
		if containsChronicleCommand(config) {
			delete(hooks, name)
			removed++
		}
	}
	if removed == 0 {
		cmd.Println("No Chronicle hooks found")
		return nil
	}

	out, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(settingsPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	cmd.Printf("Removed %d Chronicle hook(s)\n", removed)
	return nil
}

// containsChronicleCommand walks a hook config looking for a command that
// invokes this binary.
func containsChronicleCommand(v interface{}) bool {
	switch val := v.(type) {
	case string:
		return strings.Contains(val, "chronicle")
	case map[string]interface{}:
		for _, inner := range val {
			if containsChronicleCommand(inner) {
				return true
			}
		}
	case []interface{}:
		for _, inner := range val {
			if containsChronicleCommand(inner) {
				return true
			}
		}
	case []map[string]interface{}:
		for _, inner := range val {
			if containsChronicleCommand(inner) {
				return true
			}
		}
	}
	return false
}
