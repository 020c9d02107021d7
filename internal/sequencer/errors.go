package sequencer

import (
	"errors"
	"fmt"
)

var (
	// ErrRewriteInProgress is returned by Begin while another sequence is
	// running or paused.
	ErrRewriteInProgress = errors.New("a rewrite is already in progress")

	// ErrNoRewrite is returned by Continue, Skip and Abort when no sequence
	// is active.
	ErrNoRewrite = errors.New("no rewrite in progress")

	// ErrUnresolvedConflicts is returned by Continue while conflict markers
	// are still present in the index.
	ErrUnresolvedConflicts = errors.New("conflicts are not resolved yet")

	// ErrNotPaused is returned by the resume operations when the sequence is
	// not at the matching pause point.
	ErrNotPaused = errors.New("rewrite is not paused here")
)

// PlanError reports a structurally invalid plan, detected before any
// repository state is touched.
type PlanError struct {
	Reason string
}

func (e *PlanError) Error() string {
	return "invalid rewrite plan: " + e.Reason
}

// StoreError reports a repository operation that failed mid-sequence. The
// sequencer attempts a rollback before returning it; RecoveryErr carries the
// rollback failure when the repository could not be restored and is nil after
// a clean rollback.
type StoreError struct {
	Step   int
	Commit string
	Err    error

	RecoveryErr error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("rewrite step %d (%s) failed: %v", e.Step+1, e.Commit, e.Err)
	if e.RecoveryErr != nil {
		return msg + fmt.Sprintf("; rollback also failed, repository needs manual recovery: %v", e.RecoveryErr)
	}
	return msg + "; the in-progress step was reverted"
}

func (e *StoreError) Unwrap() error { return e.Err }
