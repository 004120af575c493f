package sync

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

const (
	lockStaleAfter  = 30 * time.Second
	lockBaseDelay   = 100 * time.Millisecond
	lockMaxDelay    = 2 * time.Second
	lockMaxAttempts = 10
)

// FileLock serializes read-modify-write access to the state file across
// independent process instances via a create-only sibling lock file. The
// lock file holds "<pid>:<acquiredAtEpochMillis>" and exists only while a
// critical section runs. A holder that dies mid-section leaves the file
// behind; the next acquirer reclaims it once it is older than the staleness
// threshold.
type FileLock struct {
	path   string
	logger *slog.Logger

	staleAfter  time.Duration
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
}

// NewFileLock creates a lock over the given lock file path.
func NewFileLock(path string, logger *slog.Logger) *FileLock {
	return &FileLock{
		path:        path,
		logger:      logger,
		staleAfter:  lockStaleAfter,
		baseDelay:   lockBaseDelay,
		maxDelay:    lockMaxDelay,
		maxAttempts: lockMaxAttempts,
	}
}

// WithLock runs fn while holding the lock. The lock is released on every
// exit path; an error from fn still propagates to the caller after release.
func (l *FileLock) WithLock(fn func() error) error {
	if err := l.acquire(); err != nil {
		return err
	}
	defer l.release()
	return fn()
}

func (l *FileLock) acquire() error {
	delay := l.baseDelay
	for attempt := 0; attempt < l.maxAttempts; attempt++ {
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			fmt.Fprintf(file, "%d:%d", os.Getpid(), time.Now().UnixMilli())
			file.Close()
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		if l.reclaimIfStale() {
			// Reclaimed, retry immediately without consuming the attempt.
			attempt--
			continue
		}

		time.Sleep(delay)
		delay *= 2
		if delay > l.maxDelay {
			delay = l.maxDelay
		}
	}
	return ErrLockTimeout
}

// reclaimIfStale deletes the lock file if its holder appears dead, judged
// purely by age. Returns true if the caller should retry immediately.
func (l *FileLock) reclaimIfStale() bool {
	info, err := os.Stat(l.path)
	if err != nil {
		// Holder released between our open and stat; retry right away.
		return os.IsNotExist(err)
	}
	if time.Since(info.ModTime()) <= l.staleAfter {
		return false
	}
	l.logger.Warn("reclaiming stale sync lock",
		"path", l.path,
		"age", time.Since(info.ModTime()).Round(time.Millisecond))
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return false
	}
	return true
}

func (l *FileLock) release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		l.logger.Warn("failed to remove sync lock", "path", l.path, "error", err)
	}
}
