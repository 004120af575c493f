package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/chroniclehq/cli/internal/client"
	"github.com/chroniclehq/cli/internal/sync"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and sync state",
	Long:  `Display the current configuration and a per-session summary of the sync state.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cmd.Printf("Chronicle CLI v%s\n\n", Version)

	cfg := client.LoadConfig()
	if cfg.IsConfigured() {
		cmd.Printf("API Key:   %s (configured)\n", client.MaskAPIKey(cfg.APIKey))
	} else {
		cmd.Println("API Key:   Not configured")
		cmd.Println("  Set with: chronicle config set --api-key=\"your-api-key\"")
	}
	cmd.Printf("API URL:   %s\n", cfg.APIURL)
	cmd.Printf("Log dir:   %s\n", cfg.LogDir)
	cmd.Printf("State:     %s\n", cfg.StatePath())
	cmd.Printf("Debug:     %v\n", cfg.Debug)
	cmd.Println()

	logger := newLogger(cfg, false)
	store := sync.NewStore(cfg.StatePath(), logger)
	st := store.Load()

	if len(st.Sessions) == 0 {
		cmd.Println("No sessions synced yet.")
		return nil
	}

	ids := make([]string, 0, len(st.Sessions))
	for id := range st.Sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cmd.Printf("Synced sessions (%d):\n", len(ids))
	for _, id := range ids {
		sess := st.Sessions[id]
		cmd.Printf("  %s: %d group(s), %d message(s), last sync %s\n",
			id, len(sess.SyncedGroups), sess.MessageCount, sess.LastSyncTime)
	}
	if st.LastUpdated != "" {
		cmd.Printf("\nState last updated: %s\n", st.LastUpdated)
	}
	return nil
}
