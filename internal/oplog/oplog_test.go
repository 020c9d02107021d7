package oplog

import (
	"errors"
	"io"
	"testing"

	"github.com/mvisser/gitdeck/internal/git"
)

// fakeRepo is the minimal driver surface the log touches: HEAD state plus
// checkout and branch moves.
type fakeRepo struct {
	git.Driver

	branches   map[string]string
	headBranch string
	headHash   string
}

func newFakeRepo(branch, hash string) *fakeRepo {
	return &fakeRepo{
		branches:   map[string]string{branch: hash},
		headBranch: branch,
		headHash:   hash,
	}
}

func (f *fakeRepo) HeadState() (string, string, bool, error) {
	return f.headHash, f.headBranch, true, nil
}

func (f *fakeRepo) Checkout(ref string) error {
	if hash, ok := f.branches[ref]; ok {
		f.headBranch = ref
		f.headHash = hash
		return nil
	}
	f.headBranch = ""
	f.headHash = ref
	return nil
}

func (f *fakeRepo) ForceMoveBranch(name, toRef string) error {
	f.branches[name] = toRef
	return nil
}

func (f *fakeRepo) StartLogStream(string) (git.LogStream, error) {
	return nil, io.EOF
}

func TestUndoRedoRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo("feature", "after1")
	l := New(repo)
	l.Record(Entry{
		Kind:       KindCherryPick,
		Branch:     "feature",
		BeforeHash: "before1",
		AfterHash:  "after1",
	})

	if !l.CanUndo() || l.CanRedo() {
		t.Fatalf("CanUndo=%v CanRedo=%v", l.CanUndo(), l.CanRedo())
	}

	e, err := l.Undo()
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if e.Kind != KindCherryPick {
		t.Errorf("kind = %v", e.Kind)
	}
	if repo.branches["feature"] != "before1" || repo.headBranch != "feature" {
		t.Errorf("branch at %q on %q", repo.branches["feature"], repo.headBranch)
	}
	if l.CanUndo() || !l.CanRedo() {
		t.Fatalf("CanUndo=%v CanRedo=%v after undo", l.CanUndo(), l.CanRedo())
	}

	if _, err := l.Redo(); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if repo.branches["feature"] != "after1" {
		t.Errorf("branch = %q after redo", repo.branches["feature"])
	}
	if !l.CanUndo() || l.CanRedo() {
		t.Fatalf("CanUndo=%v CanRedo=%v after redo", l.CanUndo(), l.CanRedo())
	}
}

func TestUndoEmptyLog(t *testing.T) {
	t.Parallel()

	l := New(newFakeRepo("main", "abc"))
	if _, err := l.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo: %v", err)
	}
	if _, err := l.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo: %v", err)
	}
}

func TestUndoRefusesWhenBranchMoved(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo("feature", "after1")
	l := New(repo)
	l.Record(Entry{Branch: "feature", BeforeHash: "before1", AfterHash: "after1"})

	// Someone committed on the branch after the rewrite.
	repo.headHash = "newer"
	repo.branches["feature"] = "newer"
	if _, err := l.Undo(); !errors.Is(err, ErrDiverged) {
		t.Fatalf("Undo on moved branch: %v", err)
	}
	if !l.CanUndo() {
		t.Error("failed undo must keep the entry")
	}
}

func TestUndoRefusesOnOtherBranch(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo("feature", "after1")
	repo.branches["main"] = "after1"
	repo.headBranch = "main"
	l := New(repo)
	l.Record(Entry{Branch: "feature", BeforeHash: "before1", AfterHash: "after1"})

	if _, err := l.Undo(); !errors.Is(err, ErrDiverged) {
		t.Fatalf("Undo from other branch: %v", err)
	}
}

func TestRecordClearsRedo(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo("feature", "after1")
	l := New(repo)
	l.Record(Entry{Branch: "feature", BeforeHash: "before1", AfterHash: "after1"})
	if _, err := l.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}

	l.Record(Entry{Branch: "feature", BeforeHash: "before1", AfterHash: "after2"})
	if l.CanRedo() {
		t.Error("recording must clear the redo stack")
	}
	if got := len(l.Entries()); got != 1 {
		t.Errorf("entries = %d, want 1", got)
	}
}

func TestUndoDetachedOperation(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo("feature", "after1")
	repo.headBranch = ""
	l := New(repo)
	l.Record(Entry{Branch: "", BeforeHash: "before1", AfterHash: "after1"})

	if _, err := l.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if repo.headHash != "before1" || repo.headBranch != "" {
		t.Errorf("head = %q on %q", repo.headHash, repo.headBranch)
	}
}
