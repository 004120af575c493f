package sync

import (
	"errors"
	"fmt"
)

var (
	// ErrLockTimeout means the state lock could not be acquired within the
	// retry budget. Callers may retry the whole operation.
	ErrLockTimeout = errors.New("timed out waiting for sync state lock")

	// ErrSessionNotFound means no log file exists for the requested session.
	ErrSessionNotFound = errors.New("session not found")
)

// PublishError wraps a failure from the remote publisher. It aborts the
// remaining actions of the run; records published before the failure are
// retained and reconciled by the next run's diff.
type PublishError struct {
	Op  string // "create batch" or "update"
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Op, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
