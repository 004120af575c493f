package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chroniclehq/cli/internal/client"
	"github.com/chroniclehq/cli/internal/sync"
)

var resetAll bool

var resetCmd = &cobra.Command{
	Use:   "reset [sessionID]",
	Short: "Reset sync state",
	Long: `Forget what has been synced, without touching remote records.

Resetting a session makes the next sync republish all of its groups as
creates. This is the only way synced-group records are ever removed from the
local state.

Examples:
  chronicle reset <sessionID>   # Forget one session
  chronicle reset --all         # Forget everything`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "Clear the whole sync state")
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg := client.LoadConfig()
	logger := newLogger(cfg, false)
	store := sync.NewStore(cfg.StatePath(), logger)

	switch {
	case resetAll:
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear sync state: %w", err)
		}
		cmd.Println("Sync state cleared")
		return nil
	case len(args) == 1:
		if err := store.RemoveSession(args[0]); err != nil {
			return fmt.Errorf("failed to remove session state: %w", err)
		}
		cmd.Printf("Sync state removed for session %s\n", args[0])
		return nil
	default:
		return fmt.Errorf("specify a session id or --all")
	}
}
