package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	stdsync "sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/chroniclehq/cli/internal/client"
	"github.com/chroniclehq/cli/internal/sync"
	"github.com/chroniclehq/cli/internal/transcript"
)

// watchDebounce is how long a session log must stay quiet before it is
// synced. Tools append in bursts; syncing mid-burst wastes publish calls.
const watchDebounce = 2 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the log directory and sync sessions as they change",
	Long: `Watch the session log directory and incrementally sync each session after
its log stops changing. Runs until interrupted.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := client.LoadConfig()
	if !cfg.IsConfigured() {
		return fmt.Errorf("API key not configured. Run: chronicle config set --api-key=\"your-key\"")
	}

	logger := newLogger(cfg, false)
	store := sync.NewStore(cfg.StatePath(), logger)
	publisher := client.NewClient(cfg, Version)
	coordinator := sync.NewCoordinator(store, publisher, cfg.LogDir, cfg.BatchDir(), logger)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, cfg.LogDir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s\n", cfg.LogDir)

	var mu stdsync.Mutex
	timers := make(map[string]*time.Timer)

	syncSession := func(sessionID string) {
		mu.Lock()
		delete(timers, sessionID)
		mu.Unlock()

		result, err := coordinator.Sync(ctx, sessionID, sync.Options{})
		if err != nil {
			logger.Warn("sync failed", "session", sessionID, "error", err)
			return
		}
		if result.Status == sync.StatusApplied {
			cmd.Printf("  ✓ %s: %d create(s), %d update(s)\n", sessionID, result.Created, result.Updated)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// New project directories appear as sessions start.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					watcher.Add(event.Name)
					continue
				}
			}
			if !strings.HasSuffix(event.Name, ".jsonl") {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}

			sessionID := transcript.SessionIDFromPath(event.Name)
			mu.Lock()
			if timer, ok := timers[sessionID]; ok {
				timer.Reset(watchDebounce)
			} else {
				timers[sessionID] = time.AfterFunc(watchDebounce, func() {
					syncSession(sessionID)
				})
			}
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

// watchTree adds the log root and every directory below it to the watcher.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}
