package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/chroniclehq/cli/internal/git"
	"github.com/chroniclehq/cli/internal/transcript"
)

// Publisher is the remote record collaborator driven by the coordinator.
type Publisher interface {
	// CreateBatch publishes new records in a single call and returns the
	// remote-assigned ids, index-aligned with records. An empty result
	// keeps the client-minted ids.
	CreateBatch(ctx context.Context, records []RecordCreate) ([]string, error)

	// UpdateOne re-publishes one record by its remote id.
	UpdateOne(ctx context.Context, remoteID string, patch RecordPatch) error

	// TagThread propagates derived labels to a remote conversation thread.
	TagThread(ctx context.Context, threadID string, tags []string) error
}

// Status is the outcome of one sync invocation.
type Status int

const (
	// StatusSkipped means nothing needed syncing.
	StatusSkipped Status = iota
	// StatusApplied means actions were determined and, unless dry-run,
	// published.
	StatusApplied
	// StatusFailed means the run aborted before completing its actions.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusApplied:
		return "applied"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options control one sync invocation.
type Options struct {
	// Force bypasses the fingerprint check and always runs the diff.
	Force bool
	// DryRun determines and dumps the actions without publishing or
	// persisting anything.
	DryRun bool
}

// Result reports what one sync invocation did.
type Result struct {
	Status    Status
	BatchPath string // path of the dumped action batch; empty when skipped
	Created   int
	Updated   int
	DryRun    bool
}

// Coordinator sequences check → diff → apply → persist for one session at a
// time. It holds no state between invocations; every run reloads everything
// from disk.
//
// Locking granularity is per store call, not per run, so two concurrent
// processes can both decide the same group needs creating and double-publish
// it. The next run's diff matches the surviving record by anchor id, which
// restores idempotence.
type Coordinator struct {
	store     *Store
	publisher Publisher
	logRoot   string
	batchDir  string
	logger    *slog.Logger

	// newRecordID mints time-ordered ids for created records.
	newRecordID func() string
}

// NewCoordinator wires a coordinator over an explicit store and publisher.
func NewCoordinator(store *Store, publisher Publisher, logRoot, batchDir string, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:     store,
		publisher: publisher,
		logRoot:   logRoot,
		batchDir:  batchDir,
		logger:    logger,
		newRecordID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
}

// Sync synchronizes one session against the remote store, publishing only
// what changed since the last successful run.
func (c *Coordinator) Sync(ctx context.Context, sessionID string, opts Options) (Result, error) {
	logPath, err := transcript.FindSessionFile(c.logRoot, sessionID)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Status: StatusFailed}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return Result{Status: StatusFailed}, err
	}

	sess, err := transcript.ReadSession(logPath)
	if err != nil {
		return Result{Status: StatusFailed}, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}

	fp := ComputeFingerprint(sessionID, len(sess.Messages), sess.LastTimestamp, sess.FileModTime)

	// Checking: load the stored session under the lock and compare
	// fingerprints. An unchanged fingerprint means the log has not moved.
	var prior *SessionState
	if err := c.store.WithLock(func() error {
		if stored, ok := c.store.Load().Sessions[sessionID]; ok {
			prior = stored
		}
		return nil
	}); err != nil {
		return Result{Status: StatusFailed}, err
	}

	if !opts.Force && prior != nil && prior.Fingerprint == fp.Hash {
		c.logger.Debug("session unchanged, skipping", "session", sessionID)
		return Result{Status: StatusSkipped, DryRun: opts.DryRun}, nil
	}

	// Diffing: recompute groups from the log and compare against the
	// stored shape.
	var priorGroups []SyncedGroup
	if prior != nil {
		priorGroups = prior.SyncedGroups
	}
	groups := GroupMessages(sess.Messages)
	actions := Diff(groups, priorGroups)

	if len(actions) == 0 {
		if !opts.DryRun {
			if err := c.store.MarkFullySynced(sessionID, fp); err != nil {
				c.logger.Warn("failed to refresh session fingerprint", "session", sessionID, "error", err)
			}
		}
		c.logger.Debug("no group changes, skipping", "session", sessionID)
		return Result{Status: StatusSkipped, DryRun: opts.DryRun}, nil
	}

	// Applying: creates go out as one batch, updates one at a time.
	var creates []RecordCreate
	var updates []UpdateAction
	gitCtx := git.ExtractContext(sess.WorkingDirectory)
	for _, action := range actions {
		switch a := action.(type) {
		case CreateAction:
			creates = append(creates, c.buildRecord(sessionID, a.Group, gitCtx))
		case UpdateAction:
			updates = append(updates, a)
		}
	}

	batchPath, err := c.dumpBatch(sessionID, creates, updates)
	if err != nil {
		c.logger.Warn("failed to dump action batch", "session", sessionID, "error", err)
	}

	result := Result{
		Status:    StatusApplied,
		BatchPath: batchPath,
		Created:   len(creates),
		Updated:   len(updates),
		DryRun:    opts.DryRun,
	}

	if opts.DryRun {
		c.logger.Info("dry run, nothing published",
			"session", sessionID, "creates", len(creates), "updates", len(updates))
		return result, nil
	}

	applied := make(map[string]SyncedGroup, len(actions))

	if len(creates) > 0 {
		assigned, err := c.publisher.CreateBatch(ctx, creates)
		if err != nil {
			return Result{Status: StatusFailed, BatchPath: batchPath}, &PublishError{Op: "create batch", Err: err}
		}
		for i, rec := range creates {
			remoteID := rec.RecordID
			if i < len(assigned) && assigned[i] != "" {
				remoteID = assigned[i]
			}
			applied[rec.AnchorMessageID] = SyncedGroup{
				RemoteID:        remoteID,
				AnchorMessageID: rec.AnchorMessageID,
				LastMessageID:   rec.LastMessageID,
				MessageCount:    rec.MessageCount,
			}
			c.tagThread(ctx, sessionID, remoteID, groupByAnchor(groups, rec.AnchorMessageID))
		}
	}

	for _, u := range updates {
		patch := RecordPatch{
			LastMessageID: u.Group.LastID(),
			MessageCount:  len(u.Group.Messages),
			Output:        u.Group.Output(),
			Messages:      u.Group.Messages,
		}
		if err := c.publisher.UpdateOne(ctx, u.RemoteID, patch); err != nil {
			// Abort remaining actions; already-published records stay and
			// the next run recomputes the diff from scratch.
			return Result{Status: StatusFailed, BatchPath: batchPath}, &PublishError{Op: "update", Err: err}
		}
		applied[u.Group.AnchorID()] = SyncedGroup{
			RemoteID:        u.RemoteID,
			AnchorMessageID: u.Group.AnchorID(),
			LastMessageID:   u.Group.LastID(),
			MessageCount:    len(u.Group.Messages),
		}
		c.tagThread(ctx, sessionID, u.RemoteID, u.Group)
	}

	// Persisting: merge untouched entries with what was just published.
	// Failure is a warning only; published data is not rolled back and the
	// next run's diff corrects any drift.
	merged := mergeSyncedGroups(priorGroups, groups, applied)
	if err := c.store.SetSyncedGroups(sessionID, fp, merged); err != nil {
		c.logger.Warn("failed to persist sync state", "session", sessionID, "error", err)
	}

	c.logger.Info("session synced",
		"session", sessionID, "creates", len(creates), "updates", len(updates))
	return result, nil
}

func (c *Coordinator) buildRecord(sessionID string, g Group, gitCtx *git.Context) RecordCreate {
	rec := RecordCreate{
		RecordID:        c.newRecordID(),
		SessionID:       sessionID,
		AnchorMessageID: g.AnchorID(),
		LastMessageID:   g.LastID(),
		MessageCount:    len(g.Messages),
		Input:           g.Input(),
		Output:          g.Output(),
		Messages:        g.Messages,
	}
	if gitCtx != nil {
		rec.Repo = gitCtx.RepoName
		rec.Branch = gitCtx.Branch
	}
	return rec
}

// tagThread propagates a group's tool names as thread labels. Failures are
// logged and never abort the owning group's create or update.
func (c *Coordinator) tagThread(ctx context.Context, sessionID, remoteID string, g Group) {
	tags := g.ToolNames()
	if len(tags) == 0 {
		return
	}
	if err := c.publisher.TagThread(ctx, remoteID, tags); err != nil {
		c.logger.Warn("failed to tag thread",
			"session", sessionID, "record", remoteID, "error", err)
	}
}

// batchDump is the on-disk shape of one invocation's actions.
type batchDump struct {
	SessionID string       `json:"session_id"`
	DumpedAt  string       `json:"dumped_at"`
	Creates   []recordDump `json:"creates,omitempty"`
	Updates   []updateDump `json:"updates,omitempty"`
}

type recordDump struct {
	RecordID        string `json:"record_id"`
	AnchorMessageID string `json:"anchor_message_id"`
	LastMessageID   string `json:"last_message_id"`
	MessageCount    int    `json:"message_count"`
	Input           string `json:"input,omitempty"`
}

type updateDump struct {
	RemoteID        string `json:"remote_id"`
	AnchorMessageID string `json:"anchor_message_id"`
	LastMessageID   string `json:"last_message_id"`
	MessageCount    int    `json:"message_count"`
}

// dumpBatch writes the planned actions to the batch directory and returns
// the file path.
func (c *Coordinator) dumpBatch(sessionID string, creates []RecordCreate, updates []UpdateAction) (string, error) {
	if err := os.MkdirAll(c.batchDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create batch directory: %w", err)
	}

	dump := batchDump{
		SessionID: sessionID,
		DumpedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, rec := range creates {
		dump.Creates = append(dump.Creates, recordDump{
			RecordID:        rec.RecordID,
			AnchorMessageID: rec.AnchorMessageID,
			LastMessageID:   rec.LastMessageID,
			MessageCount:    rec.MessageCount,
			Input:           rec.Input,
		})
	}
	for _, u := range updates {
		dump.Updates = append(dump.Updates, updateDump{
			RemoteID:        u.RemoteID,
			AnchorMessageID: u.Group.AnchorID(),
			LastMessageID:   u.Group.LastID(),
			MessageCount:    len(u.Group.Messages),
		})
	}

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal batch: %w", err)
	}

	path := filepath.Join(c.batchDir, fmt.Sprintf("%s-%d.json", sessionID, time.Now().UnixMilli()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write batch file: %w", err)
	}
	return path, nil
}

// mergeSyncedGroups combines untouched prior entries with the groups
// published this run, current-group order first, then prior-only entries in
// their stored order.
func mergeSyncedGroups(prior []SyncedGroup, current []Group, applied map[string]SyncedGroup) []SyncedGroup {
	byAnchor := make(map[string]SyncedGroup, len(prior)+len(applied))
	for _, sg := range prior {
		byAnchor[sg.AnchorMessageID] = sg
	}
	for anchor, sg := range applied {
		byAnchor[anchor] = sg
	}

	seen := make(map[string]bool, len(current))
	var merged []SyncedGroup
	for _, g := range current {
		if sg, ok := byAnchor[g.AnchorID()]; ok {
			merged = append(merged, sg)
			seen[g.AnchorID()] = true
		}
	}
	for _, sg := range prior {
		if !seen[sg.AnchorMessageID] {
			merged = append(merged, sg)
		}
	}
	return merged
}

func groupByAnchor(groups []Group, anchor string) Group {
	for _, g := range groups {
		if g.AnchorID() == anchor {
			return g
		}
	}
	return Group{}
}
