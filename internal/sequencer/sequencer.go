package sequencer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mvisser/gitdeck/internal/git"
)

// Status is the lifecycle of one rewrite sequence.
type Status uint8

const (
	StatusIdle Status = iota
	StatusRunning
	StatusPausedConflict
	StatusPausedEmpty
	StatusCompleted
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPausedConflict:
		return "paused-conflict"
	case StatusPausedEmpty:
		return "paused-empty"
	case StatusCompleted:
		return "completed"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

func (s Status) active() bool {
	return s == StatusRunning || s == StatusPausedConflict || s == StatusPausedEmpty
}

// State is a snapshot of the running sequence, safe to hand to callers.
type State struct {
	Mode    Mode
	Entries []Entry

	// Branch is the branch checked out when the sequence began, or "" when
	// HEAD was detached. BaseHash is the commit HEAD pointed at.
	Branch   string
	BaseHash string
	OntoRef  string

	StepIndex int
	Status    Status
}

// Outcome reports where a Begin/Continue/Skip call left the sequence. Step
// and Commit identify the entry a pause refers to; FinalHash is set once the
// sequence completed.
type Outcome struct {
	Status    Status
	Step      int
	Commit    *git.Commit
	Report    *git.ConflictReport
	FinalHash string
}

// Sequencer executes rewrite plans against a repository driver. One sequence
// runs at a time; a paused sequence must be continued, skipped past, or
// aborted before a new one can begin.
type Sequencer struct {
	mu     sync.Mutex
	driver git.Driver

	state *State
}

func New(driver git.Driver) *Sequencer {
	return &Sequencer{driver: driver}
}

// Snapshot returns the current sequence state; Status is StatusIdle when no
// sequence was ever started.
func (s *Sequencer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return State{Status: StatusIdle}
	}
	st := *s.state
	st.Entries = make([]Entry, len(s.state.Entries))
	copy(st.Entries, s.state.Entries)
	return st
}

// Begin validates the plan, prepares HEAD for the chosen mode and runs steps
// until the sequence pauses or finishes. No repository state is touched when
// validation fails.
func (s *Sequencer) Begin(plan Plan) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil && s.state.Status.active() {
		return Outcome{}, ErrRewriteInProgress
	}
	if err := plan.validate(); err != nil {
		return Outcome{}, err
	}

	headHash, branch, ok, err := s.driver.HeadState()
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	if !ok {
		return Outcome{}, errors.New("cannot rewrite an unborn branch")
	}

	if plan.Mode == ModeRebase {
		if branch == "" {
			return Outcome{}, errors.New("rebase requires a named branch, HEAD is detached")
		}
		ontoHash, err := s.driver.ResolveRef(plan.OntoRef)
		if err != nil {
			return Outcome{}, fmt.Errorf("resolve onto ref %q: %w", plan.OntoRef, err)
		}
		// Replay happens on a detached HEAD; the branch only moves on success.
		if err := s.driver.Checkout(ontoHash); err != nil {
			return Outcome{}, fmt.Errorf("checkout onto ref: %w", err)
		}
	}

	entries := make([]Entry, len(plan.Entries))
	copy(entries, plan.Entries)
	s.state = &State{
		Mode:     plan.Mode,
		Entries:  entries,
		Branch:   branch,
		BaseHash: headHash,
		OntoRef:  plan.OntoRef,
		Status:   StatusRunning,
	}
	slog.Debug("rewrite started",
		slog.String("mode", plan.Mode.String()),
		slog.Int("entries", len(entries)),
		slog.String("branch", branch),
	)
	return s.runLocked()
}

// Continue resumes a sequence paused on a conflict after the user resolved
// and staged the files. If the resolution leaves nothing staged, the
// sequence pauses again as an emptied step.
func (s *Sequencer) Continue() (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil || !s.state.Status.active() {
		return Outcome{}, ErrNoRewrite
	}
	if s.state.Status != StatusPausedConflict {
		return Outcome{}, ErrNotPaused
	}
	conflicted, err := s.driver.IsConflicted()
	if err != nil {
		return s.failLocked(err)
	}
	if conflicted {
		return Outcome{}, ErrUnresolvedConflicts
	}
	changes, err := s.driver.LocalChangesStatus()
	if err != nil {
		return s.failLocked(err)
	}
	if !changes.HasStaged {
		s.state.Status = StatusPausedEmpty
		entry := s.state.Entries[s.state.StepIndex]
		slog.Debug("rewrite step emptied by resolution", slog.String("commit", entry.Commit.ShortHash()))
		return s.pauseOutcomeLocked(), nil
	}
	if err := s.finalizeStepLocked(false); err != nil {
		return s.failLocked(err)
	}
	s.state.StepIndex++
	s.state.Status = StatusRunning
	return s.runLocked()
}

// Skip drops the paused step and resumes with the next one.
func (s *Sequencer) Skip() (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil || !s.state.Status.active() {
		return Outcome{}, ErrNoRewrite
	}
	if s.state.Status != StatusPausedConflict && s.state.Status != StatusPausedEmpty {
		return Outcome{}, ErrNotPaused
	}
	// The step is half-applied (conflicted or staged-empty); unwind it
	// before moving on.
	if err := s.driver.AbortInProgressOperation(); err != nil {
		return s.failLocked(err)
	}
	entry := s.state.Entries[s.state.StepIndex]
	slog.Debug("rewrite step skipped", slog.String("commit", entry.Commit.ShortHash()))
	s.state.StepIndex++
	s.state.Status = StatusRunning
	return s.runLocked()
}

// ContinueAllowEmpty keeps an emptied step as an empty commit and resumes.
func (s *Sequencer) ContinueAllowEmpty() (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil || !s.state.Status.active() {
		return Outcome{}, ErrNoRewrite
	}
	if s.state.Status != StatusPausedEmpty {
		return Outcome{}, ErrNotPaused
	}
	if err := s.finalizeStepLocked(true); err != nil {
		return s.failLocked(err)
	}
	s.state.StepIndex++
	s.state.Status = StatusRunning
	return s.runLocked()
}

// Abort stops the sequence and restores the repository to its pre-rewrite
// state: the original branch back at its base commit and checked out.
func (s *Sequencer) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil || !s.state.Status.active() {
		return ErrNoRewrite
	}
	err := s.restoreLocked()
	s.state.Status = StatusAborted
	slog.Debug("rewrite aborted",
		slog.String("branch", s.state.Branch),
		slog.Int("step", s.state.StepIndex),
		slog.Any("error", err),
	)
	if err != nil {
		return fmt.Errorf("abort rewrite: %w", err)
	}
	return nil
}

// runLocked executes entries from StepIndex until a pause or the end.
func (s *Sequencer) runLocked() (Outcome, error) {
	for s.state.StepIndex < len(s.state.Entries) {
		entry := s.state.Entries[s.state.StepIndex]
		if entry.Action == ActionDrop {
			slog.Debug("rewrite step dropped", slog.String("commit", entry.Commit.ShortHash()))
			s.state.StepIndex++
			continue
		}

		result, err := s.driver.ApplyCommit(entry.Commit.Hash)
		if err != nil {
			return s.failLocked(err)
		}
		if result == git.Conflicted {
			s.state.Status = StatusPausedConflict
			slog.Debug("rewrite paused on conflict", slog.String("commit", entry.Commit.ShortHash()))
			out := s.pauseOutcomeLocked()
			report, rerr := git.BuildConflictReport(s.driver, entry.Commit, s.state.StepIndex, s.state.Branch)
			if rerr != nil {
				slog.Debug("conflict report", slog.Any("error", rerr))
			} else {
				out.Report = report
			}
			return out, nil
		}

		changes, err := s.driver.LocalChangesStatus()
		if err != nil {
			return s.failLocked(err)
		}
		if !changes.HasStaged {
			s.state.Status = StatusPausedEmpty
			slog.Debug("rewrite paused on empty step", slog.String("commit", entry.Commit.ShortHash()))
			return s.pauseOutcomeLocked(), nil
		}

		if err := s.finalizeStepLocked(false); err != nil {
			return s.failLocked(err)
		}
		s.state.StepIndex++
	}
	return s.completeLocked()
}

// finalizeStepLocked commits the staged result of the current entry
// according to its action.
func (s *Sequencer) finalizeStepLocked(allowEmpty bool) error {
	entry := s.state.Entries[s.state.StepIndex]
	switch entry.Action {
	case ActionPick:
		if err := s.driver.CommitWithMessage(entry.Commit.Message, allowEmpty); err != nil {
			return err
		}
	case ActionReword:
		if err := s.driver.CommitWithMessage(entry.Commit.Message, allowEmpty); err != nil {
			return err
		}
		if err := s.driver.AmendMessage(entry.NewMessage); err != nil {
			return err
		}
	case ActionSquash:
		if err := s.driver.CommitWithMessage(entry.Commit.Message, allowEmpty); err != nil {
			return err
		}
		// Rewind the pair and commit them as one. The squashed entry's
		// message wins unless the plan supplies a replacement.
		message := entry.NewMessage
		if message == "" {
			message = entry.Commit.Message
		}
		if err := s.driver.SoftResetBy(2); err != nil {
			return err
		}
		if err := s.driver.CommitWithMessage(message, true); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cannot finalize %s step", entry.Action)
	}
	slog.Debug("rewrite step applied",
		slog.String("action", entry.Action.String()),
		slog.String("commit", entry.Commit.ShortHash()),
	)
	return nil
}

func (s *Sequencer) completeLocked() (Outcome, error) {
	finalHash, err := s.driver.ResolveRef("HEAD")
	if err != nil {
		return s.failLocked(err)
	}
	if s.state.Mode == ModeRebase && s.state.Branch != "" {
		if err := s.driver.ForceMoveBranch(s.state.Branch, finalHash); err != nil {
			return s.failLocked(err)
		}
		if err := s.driver.Checkout(s.state.Branch); err != nil {
			return s.failLocked(err)
		}
	}
	s.state.Status = StatusCompleted
	slog.Debug("rewrite completed",
		slog.String("mode", s.state.Mode.String()),
		slog.String("branch", s.state.Branch),
		slog.String("head", finalHash),
	)
	return Outcome{Status: StatusCompleted, FinalHash: finalHash}, nil
}

func (s *Sequencer) pauseOutcomeLocked() Outcome {
	entry := s.state.Entries[s.state.StepIndex]
	return Outcome{
		Status: s.state.Status,
		Step:   s.state.StepIndex,
		Commit: entry.Commit,
	}
}

// failLocked wraps a mid-sequence driver failure, rolls the repository back
// to the pre-rewrite state and marks the sequence aborted.
func (s *Sequencer) failLocked(cause error) (Outcome, error) {
	// Completion-time failures land with StepIndex past the last entry;
	// attribute them to the final step.
	step := min(s.state.StepIndex, len(s.state.Entries)-1)
	entry := s.state.Entries[step]
	recoveryErr := s.restoreLocked()
	s.state.Status = StatusAborted
	return Outcome{Status: StatusAborted}, &StoreError{
		Step:        step,
		Commit:      entry.Commit.ShortHash(),
		Err:         cause,
		RecoveryErr: recoveryErr,
	}
}

// restoreLocked reverts the in-progress step and, in rebase mode, returns
// HEAD to the original branch. The branch itself never moved before
// completion, so checking it out is the full restore. In cherry-pick mode
// steps already committed stay on the branch; only the half-applied step is
// unwound.
func (s *Sequencer) restoreLocked() error {
	var errs []error
	if err := s.driver.AbortInProgressOperation(); err != nil {
		errs = append(errs, err)
	}
	if s.state.Mode == ModeRebase {
		if err := s.driver.Checkout(s.state.Branch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
