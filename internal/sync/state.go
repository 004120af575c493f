package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Fingerprint is the change signal for one session log: enough to decide
// whether a full diff is worth computing, not a content diff.
type Fingerprint struct {
	Hash            string
	MessageCount    int
	LastMessageTime string
}

// ComputeFingerprint hashes the session metadata that moves whenever the
// log gains content.
func ComputeFingerprint(sessionID string, messageCount int, lastMessageTime string, modTime time.Time) Fingerprint {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		sessionID,
		strconv.Itoa(messageCount),
		lastMessageTime,
		strconv.FormatInt(modTime.UnixMilli(), 10),
	}, "|")))
	return Fingerprint{
		Hash:            hex.EncodeToString(sum[:]),
		MessageCount:    messageCount,
		LastMessageTime: lastMessageTime,
	}
}

// Store persists the session→sync-state mapping. All read-modify-write
// methods take the cross-process file lock themselves; each call is its own
// critical section (see the race note on Coordinator.Sync).
type Store struct {
	path   string
	lock   *FileLock
	logger *slog.Logger
}

// NewStore creates a store over the given state file path. The lock file is
// a sibling of the state file.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		lock:   NewFileLock(path+".lock", logger),
		logger: logger,
	}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// WithLock runs fn while holding the store's cross-process lock. It is used
// by the coordinator for read-and-compare sections that span Load.
func (s *Store) WithLock(fn func() error) error {
	return s.lock.WithLock(fn)
}

// Load reads the state file. It never fails: a missing or unparsable file
// yields a fresh empty structure, so corruption is treated as "never
// synced" rather than an error.
func (s *Store) Load() *StateFile {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read sync state, starting fresh", "path", s.path, "error", err)
		}
		return emptyStateFile()
	}

	var st StateFile
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("sync state is corrupt, treating all sessions as never synced", "path", s.path, "error", err)
		return emptyStateFile()
	}
	if st.Sessions == nil {
		st.Sessions = make(map[string]*SessionState)
	}
	return &st
}

// Save writes the whole state file atomically: a sibling temporary file is
// written first, then renamed over the target, so a reader never observes a
// half-written file.
func (s *Store) Save(st *StateFile) error {
	st.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// SetSyncedGroups replaces one session's synced-group list and fingerprint.
func (s *Store) SetSyncedGroups(sessionID string, fp Fingerprint, groups []SyncedGroup) error {
	return s.lock.WithLock(func() error {
		st := s.Load()
		st.Sessions[sessionID] = &SessionState{
			SessionID:       sessionID,
			LastSyncTime:    time.Now().UTC().Format(time.RFC3339),
			Fingerprint:     fp.Hash,
			MessageCount:    fp.MessageCount,
			LastMessageTime: fp.LastMessageTime,
			SyncedGroups:    groups,
		}
		return s.Save(st)
	})
}

// MarkFullySynced refreshes a session's fingerprint without touching its
// synced groups. Used when the log moved but the diff found nothing to do.
func (s *Store) MarkFullySynced(sessionID string, fp Fingerprint) error {
	return s.lock.WithLock(func() error {
		st := s.Load()
		sess, ok := st.Sessions[sessionID]
		if !ok {
			sess = &SessionState{SessionID: sessionID}
			st.Sessions[sessionID] = sess
		}
		sess.LastSyncTime = time.Now().UTC().Format(time.RFC3339)
		sess.Fingerprint = fp.Hash
		sess.MessageCount = fp.MessageCount
		sess.LastMessageTime = fp.LastMessageTime
		return s.Save(st)
	})
}

// RemoveSession deletes one session's sync state. This is the only path
// that forgets synced groups short of Clear.
func (s *Store) RemoveSession(sessionID string) error {
	return s.lock.WithLock(func() error {
		st := s.Load()
		delete(st.Sessions, sessionID)
		return s.Save(st)
	})
}

// Clear resets the whole store.
func (s *Store) Clear() error {
	return s.lock.WithLock(func() error {
		return s.Save(emptyStateFile())
	})
}

func emptyStateFile() *StateFile {
	return &StateFile{Sessions: make(map[string]*SessionState)}
}
