// Package oplog keeps a linear history of completed rewrites and can undo or
// redo them by moving the affected branch between its before and after
// positions.
package oplog

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mvisser/gitdeck/internal/git"
)

type Kind uint8

const (
	KindCherryPick Kind = iota
	KindRebase
)

func (k Kind) String() string {
	switch k {
	case KindCherryPick:
		return "cherry-pick"
	case KindRebase:
		return "rebase"
	default:
		return "unknown"
	}
}

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrDiverged is returned when the branch moved since the entry was
	// recorded; undoing would discard work the log knows nothing about.
	ErrDiverged = errors.New("branch has moved since this operation")
)

// Entry is one completed rewrite. Branch is "" when the rewrite ran on a
// detached HEAD.
type Entry struct {
	Kind       Kind
	Branch     string
	BeforeHash string
	AfterHash  string
	Details    string
	When       time.Time
}

// Log is a linear undo/redo stack over a repository driver. Recording a new
// entry discards everything that was undone, like an editor history.
type Log struct {
	mu     sync.Mutex
	driver git.Rewriter
	reader git.Reader

	done   []Entry
	undone []Entry
}

func New(driver git.Driver) *Log {
	return &Log{driver: driver, reader: driver}
}

func (l *Log) Record(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.When.IsZero() {
		e.When = time.Now()
	}
	l.done = append(l.done, e)
	l.undone = nil
	slog.Debug("operation recorded",
		slog.String("kind", e.Kind.String()),
		slog.String("branch", e.Branch),
		slog.Int("depth", len(l.done)),
	)
}

func (l *Log) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.done) > 0
}

func (l *Log) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.undone) > 0
}

// Entries returns the applied operations, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.done))
	copy(out, l.done)
	return out
}

// Undo moves the most recent entry's branch back to its before position. It
// refuses when HEAD is not on that branch or the branch has moved past the
// recorded after position.
func (l *Log) Undo() (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.done) == 0 {
		return Entry{}, ErrNothingToUndo
	}
	e := l.done[len(l.done)-1]
	if err := l.moveLocked(e, e.AfterHash, e.BeforeHash); err != nil {
		return Entry{}, err
	}
	l.done = l.done[:len(l.done)-1]
	l.undone = append(l.undone, e)
	slog.Debug("operation undone", slog.String("kind", e.Kind.String()), slog.String("branch", e.Branch))
	return e, nil
}

// Redo re-applies the most recently undone entry.
func (l *Log) Redo() (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.undone) == 0 {
		return Entry{}, ErrNothingToRedo
	}
	e := l.undone[len(l.undone)-1]
	if err := l.moveLocked(e, e.BeforeHash, e.AfterHash); err != nil {
		return Entry{}, err
	}
	l.undone = l.undone[:len(l.undone)-1]
	l.done = append(l.done, e)
	slog.Debug("operation redone", slog.String("kind", e.Kind.String()), slog.String("branch", e.Branch))
	return e, nil
}

// moveLocked verifies HEAD still matches the expected position and shifts the
// entry's branch from one hash to the other.
func (l *Log) moveLocked(e Entry, from, to string) error {
	headHash, headName, ok, err := l.reader.HeadState()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	if !ok {
		return errors.New("HEAD is unborn")
	}
	if e.Branch != "" && headName != e.Branch {
		return fmt.Errorf("%w: HEAD is on %q, operation was on %q", ErrDiverged, headName, e.Branch)
	}
	if headHash != from {
		return fmt.Errorf("%w: HEAD is at %.7s, expected %.7s", ErrDiverged, headHash, from)
	}
	if e.Branch == "" {
		return l.driver.Checkout(to)
	}
	// Detach, move the branch, come back. The current branch cannot be
	// force-updated while checked out.
	if err := l.driver.Checkout(to); err != nil {
		return err
	}
	if err := l.driver.ForceMoveBranch(e.Branch, to); err != nil {
		return err
	}
	return l.driver.Checkout(e.Branch)
}
