package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chroniclehq/cli/internal/client"
	"github.com/chroniclehq/cli/internal/sync"
	"github.com/chroniclehq/cli/internal/transcript"
)

var (
	syncDryRun bool
	syncForce  bool
	syncLimit  int
)

var syncCmd = &cobra.Command{
	Use:   "sync [sessionID]",
	Short: "Sync session logs to Chronicle",
	Long: `Sync local session logs to the Chronicle API.

Each session is split into interaction groups (one user prompt plus the
assistant and tool activity it triggered). Only groups that changed since the
last successful sync are published.

Examples:
  chronicle sync                  # Sync all sessions with changes
  chronicle sync <sessionID>      # Sync one session
  chronicle sync --dry-run        # Show what would be published
  chronicle sync --force          # Re-diff even if nothing seems changed
  chronicle sync --limit 10       # Stop after 10 synced sessions

The sync state is tracked in ~/.config/chronicle/sync_state.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Show what would be published without uploading")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Bypass the change check and re-diff stored groups")
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "Maximum number of sessions to sync (0 = unlimited)")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := client.LoadConfig()
	if !cfg.IsConfigured() && !syncDryRun {
		return fmt.Errorf("API key not configured. Run: chronicle config set --api-key=\"your-key\"")
	}

	logger := newLogger(cfg, false)
	store := sync.NewStore(cfg.StatePath(), logger)
	publisher := client.NewClient(cfg, Version)
	coordinator := sync.NewCoordinator(store, publisher, cfg.LogDir, cfg.BatchDir(), logger)

	opts := sync.Options{Force: syncForce, DryRun: syncDryRun}

	if len(args) == 1 {
		return syncOne(cmd, coordinator, args[0], opts)
	}
	return syncAll(cmd, coordinator, cfg, opts)
}

func syncOne(cmd *cobra.Command, coordinator *sync.Coordinator, sessionID string, opts sync.Options) error {
	result, err := coordinator.Sync(cmd.Context(), sessionID, opts)
	if err != nil {
		return err
	}
	printResult(cmd, sessionID, result)
	return nil
}

func syncAll(cmd *cobra.Command, coordinator *sync.Coordinator, cfg *client.Config, opts sync.Options) error {
	files, err := transcript.ListSessionFiles(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to list session logs: %w", err)
	}
	if len(files) == 0 {
		cmd.Printf("No session logs found under %s\n", cfg.LogDir)
		return nil
	}

	cmd.Printf("Found %d session log(s)\n", len(files))

	var synced, skipped, failed int
	for _, path := range files {
		if syncLimit > 0 && synced >= syncLimit {
			break
		}

		sessionID := transcript.SessionIDFromPath(path)
		result, err := coordinator.Sync(cmd.Context(), sessionID, opts)
		if err != nil {
			// A lock timeout is retryable; everything else is reported
			// per session and the run continues.
			if errors.Is(err, sync.ErrLockTimeout) {
				return err
			}
			cmd.Printf("  ✗ %s: %v\n", sessionID, err)
			failed++
			continue
		}

		switch result.Status {
		case sync.StatusSkipped:
			skipped++
		case sync.StatusApplied:
			printResult(cmd, sessionID, result)
			synced++
		}
	}

	cmd.Println()
	if opts.DryRun {
		cmd.Printf("Dry run complete: %d session(s) with changes, %d unchanged\n", synced, skipped)
	} else {
		cmd.Printf("Sync complete: %d synced, %d unchanged, %d errors\n", synced, skipped, failed)
	}

	if failed > 0 {
		return fmt.Errorf("%d session(s) failed to sync", failed)
	}
	return nil
}

func printResult(cmd *cobra.Command, sessionID string, result sync.Result) {
	switch result.Status {
	case sync.StatusSkipped:
		cmd.Printf("  = %s: up to date\n", sessionID)
	case sync.StatusApplied:
		prefix := "✓"
		if result.DryRun {
			prefix = "[dry-run]"
		}
		cmd.Printf("  %s %s: %d create(s), %d update(s)\n", prefix, sessionID, result.Created, result.Updated)
		if result.BatchPath != "" {
			cmd.Printf("    batch: %s\n", result.BatchPath)
		}
	}
}
