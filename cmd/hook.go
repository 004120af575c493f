package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chroniclehq/cli/internal/client"
	"github.com/chroniclehq/cli/internal/sync"
	"github.com/chroniclehq/cli/internal/transcript"
)

var hookCmd = &cobra.Command{
	Use:    "hook",
	Short:  "Process hook events from AI tools",
	Long:   `Internal command called by AI tool hooks. Reads a JSON event from stdin and syncs the session it belongs to.`,
	Hidden: true,
	RunE:   runHook,
}

// hookEvent is the subset of the native hook payload we care about.
type hookEvent struct {
	HookEventName  string `json:"hook_event_name"`
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
}

func runHook(cmd *cobra.Command, args []string) error {
	// The invoking tool blocks on our response: always report continue,
	// whatever happens during the sync.
	defer outputContinueResponse()

	cfg := client.LoadConfig()
	logger := newLogger(cfg, true)
	logger.Debug("hook started")

	rawInput, err := io.ReadAll(os.Stdin)
	if err != nil || len(rawInput) == 0 {
		logger.Debug("empty or unreadable hook input, skipping")
		return nil
	}

	var event hookEvent
	if err := json.Unmarshal(rawInput, &event); err != nil {
		logger.Debug("failed to parse hook input", "error", err)
		return nil
	}

	switch event.HookEventName {
	case "Stop", "SessionEnd":
	default:
		logger.Debug("ignoring hook event", "event", event.HookEventName)
		return nil
	}

	sessionID := event.SessionID
	if sessionID == "" && event.TranscriptPath != "" {
		sessionID = transcript.SessionIDFromPath(event.TranscriptPath)
	}
	if sessionID == "" {
		logger.Debug("hook event carries no session id, skipping")
		return nil
	}

	if !cfg.IsConfigured() {
		logger.Debug("API key not configured, skipping")
		return nil
	}

	store := sync.NewStore(cfg.StatePath(), logger)
	publisher := client.NewClient(cfg, Version)
	coordinator := sync.NewCoordinator(store, publisher, cfg.LogDir, cfg.BatchDir(), logger)

	result, err := coordinator.Sync(cmd.Context(), sessionID, sync.Options{})
	if err != nil {
		logger.Warn("hook sync failed", "session", sessionID, "error", err)
		return nil
	}
	logger.Debug("hook sync finished",
		"session", sessionID, "status", result.Status.String(),
		"creates", result.Created, "updates", result.Updated)
	return nil
}

// outputContinueResponse writes the success response to stdout
func outputContinueResponse() {
	data, _ := json.Marshal(map[string]interface{}{"continue": true})
	fmt.Println(string(data))
}
