package store

import (
	"io"
	"testing"

	"github.com/mvisser/gitdeck/internal/git"
)

type fakeReader struct {
	path     string
	commits  []*git.Commit
	refs     []git.Ref
	headHash string
	headName string
	headOK   bool

	streamsStarted int
}

func (f *fakeReader) RepoPath() string { return f.path }

func (f *fakeReader) StartLogStream(fromHash string) (git.LogStream, error) {
	f.streamsStarted++
	return &fakeLogStream{commits: f.commits}, nil
}

func (f *fakeReader) HeadState() (string, string, bool, error) {
	return f.headHash, f.headName, f.headOK, nil
}

func (f *fakeReader) ListRefs() ([]git.Ref, error) { return f.refs, nil }

func (f *fakeReader) LocalChangesStatus() (git.LocalChanges, error) {
	return git.LocalChanges{}, nil
}

type fakeLogStream struct {
	commits []*git.Commit
	pos     int
	closed  bool
}

func (s *fakeLogStream) Next() (*git.Commit, error) {
	if s.pos >= len(s.commits) {
		return nil, io.EOF
	}
	c := s.commits[s.pos]
	s.pos++
	return c, nil
}

func (s *fakeLogStream) Close() error {
	s.closed = true
	return nil
}

func chain(hashes ...string) []*git.Commit {
	commits := make([]*git.Commit, len(hashes))
	for i, h := range hashes {
		c := &git.Commit{Hash: h}
		if i < len(hashes)-1 {
			c.ParentHashes = []string{hashes[i+1]}
		}
		commits[i] = c
	}
	return commits
}

func TestStoreLoadAndPaginate(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		commits:  chain("e", "d", "c", "b", "a"),
		headHash: "e",
		headName: "feature/x",
		headOK:   true,
	}
	s := New(reader, 2)

	hasMore, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !hasMore {
		t.Fatal("expected more commits after first batch")
	}
	if got := s.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
	if got := s.HeadName(); got != "feature/x" {
		t.Errorf("HeadName = %q", got)
	}

	hasMore, err = s.LoadMore()
	if err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if !hasMore {
		t.Fatal("expected more commits after second batch")
	}
	if got := s.Len(); got != 4 {
		t.Fatalf("Len = %d, want 4", got)
	}

	hasMore, err = s.LoadMore()
	if err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if hasMore {
		t.Fatal("expected history to be exhausted")
	}
	commits := s.Commits()
	if len(commits) != 5 {
		t.Fatalf("window size = %d, want 5", len(commits))
	}
	for i, want := range []string{"e", "d", "c", "b", "a"} {
		if commits[i].Hash != want {
			t.Errorf("commits[%d] = %q, want %q", i, commits[i].Hash, want)
		}
	}
}

func TestStoreLoadIsIdempotentForSameHead(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		commits:  chain("b", "a"),
		headHash: "b",
		headName: "main",
		headOK:   true,
	}
	s := New(reader, 10)
	if _, err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.Load(); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if reader.streamsStarted != 1 {
		t.Errorf("streams started = %d, want 1", reader.streamsStarted)
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
}

func TestStoreRefreshFollowsNewHead(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		commits:  chain("b", "a"),
		headHash: "b",
		headName: "main",
		headOK:   true,
	}
	s := New(reader, 10)
	if _, err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	reader.commits = chain("c", "b", "a")
	reader.headHash = "c"
	if _, err := s.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := s.HeadHash(); got != "c" {
		t.Errorf("HeadHash = %q, want %q", got, "c")
	}
	if got := s.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
	if reader.streamsStarted != 2 {
		t.Errorf("streams started = %d, want 2", reader.streamsStarted)
	}
}

func TestStoreDeduplicatesHashes(t *testing.T) {
	t.Parallel()

	commits := chain("c", "b", "a")
	// Inject a duplicate of b, as a stream can emit when histories converge.
	withDup := []*git.Commit{commits[0], commits[1], commits[1], commits[2]}
	reader := &fakeReader{
		commits:  withDup,
		headHash: "c",
		headName: "main",
		headOK:   true,
	}
	s := New(reader, 10)
	if _, err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.Len(); got != 3 {
		t.Errorf("Len = %d, want 3 after dedupe", got)
	}
	if s.Lookup("b") == nil {
		t.Error("Lookup(b) returned nil")
	}
	if s.Lookup("zzz") != nil {
		t.Error("Lookup of unknown hash should return nil")
	}
}

func TestStoreUnbornHead(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{headOK: false}
	s := New(reader, 10)
	hasMore, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if hasMore {
		t.Error("unborn HEAD must report no more commits")
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len = %d, want 0", got)
	}
	if reader.streamsStarted != 0 {
		t.Errorf("streams started = %d, want 0", reader.streamsStarted)
	}
}

func TestStoreBranchLabels(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		refs: []git.Ref{
			{Hash: "b", Kind: git.RefKindBranch, Name: "main"},
			{Hash: "b", Kind: git.RefKindRemoteBranch, Name: "origin/main"},
			{Hash: "a", Kind: git.RefKindTag, Name: "v1"},
		},
		headHash: "b",
		headName: "main",
		headOK:   true,
	}
	s := New(reader, 10)
	labels, err := s.BranchLabels()
	if err != nil {
		t.Fatalf("BranchLabels: %v", err)
	}
	b := labels["b"]
	if len(b) != 3 || b[0] != "HEAD -> main" {
		t.Fatalf("labels for b = %#v", b)
	}
	a := labels["a"]
	if len(a) != 1 || a[0] != "tag: v1" {
		t.Fatalf("labels for a = %#v", a)
	}
}

func TestStoreDetachedHeadLabel(t *testing.T) {
	t.Parallel()

	// Detached HEAD: the reader reports no branch name.
	reader := &fakeReader{
		headHash: "deadbeef",
		headOK:   true,
	}
	s := New(reader, 10)
	labels, err := s.BranchLabels()
	if err != nil {
		t.Fatalf("BranchLabels: %v", err)
	}
	if got := labels["deadbeef"]; len(got) != 1 || got[0] != "HEAD" {
		t.Fatalf("labels = %#v", got)
	}
}
