// Package store maintains the loaded commit window: a paginated,
// deduplicated slice of history read from a repository driver, newest first.
package store

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mvisser/gitdeck/internal/git"
)

const DefaultBatch = 1000

type Store struct {
	// mu serializes access to the scan session and the loaded window.
	mu sync.Mutex

	reader git.Reader
	batch  int

	scan *scanSession

	commits []*git.Commit
	index   map[string]int

	headHash string
	headName string
}

func New(reader git.Reader, batch int) *Store {
	if batch <= 0 {
		batch = DefaultBatch
	}
	return &Store{
		reader: reader,
		batch:  batch,
		index:  make(map[string]int),
	}
}

// Load resolves HEAD and fills the first batch of the window, resetting any
// previous state. It reports whether more commits remain past the window.
func (s *Store) Load() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// LoadMore appends the next batch to the window and reports whether more
// commits remain. Calling it before Load, or after the history is exhausted,
// is a no-op.
func (s *Store) LoadMore() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scan == nil || s.scan.exhausted {
		return false, nil
	}
	if err := s.fillLocked(); err != nil {
		return false, err
	}
	return s.scan.hasMore()
}

// Refresh re-resolves HEAD and reloads the window from scratch. Use it after
// the repository changed underneath us.
func (s *Store) Refresh() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	return s.loadLocked()
}

// Commits returns a snapshot of the loaded window, newest first.
func (s *Store) Commits() []*git.Commit {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*git.Commit, len(s.commits))
	copy(out, s.commits)
	return out
}

// Lookup returns the loaded commit with the given hash, or nil when it is
// outside the window.
func (s *Store) Lookup(hash string) *git.Commit {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[hash]; ok {
		return s.commits[i]
	}
	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commits)
}

// HeadName returns the short branch name the window was loaded from, or the
// head hash when HEAD is detached.
func (s *Store) HeadName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headName
}

func (s *Store) HeadHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headHash
}

// BranchLabels maps commit hashes to the ref labels that decorate them. The
// HEAD label always sorts first on its commit.
func (s *Store) BranchLabels() (map[string][]string, error) {
	refs, err := s.reader.ListRefs()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	headHash, headName, ok, err := s.reader.HeadState()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	labels := make(map[string][]string, len(refs))
	for _, ref := range refs {
		name := ref.Name
		if ref.Kind == git.RefKindTag {
			name = "tag: " + name
		}
		labels[ref.Hash] = append(labels[ref.Hash], name)
	}
	if ok && headHash != "" {
		label := "HEAD"
		if headName != "" {
			label = "HEAD -> " + headName
		}
		labels[headHash] = append([]string{label}, labels[headHash]...)
	}
	return labels, nil
}

func (s *Store) loadLocked() (bool, error) {
	hash, name, ok, err := s.reader.HeadState()
	if err != nil {
		return false, fmt.Errorf("resolve HEAD: %w", err)
	}
	if !ok {
		// Unborn branch: nothing to show.
		s.resetLocked()
		s.headName = name
		return false, nil
	}
	if s.scan != nil && s.scan.head == hash && len(s.commits) > 0 {
		return s.scan.hasMore()
	}

	s.resetLocked()
	stream, err := s.reader.StartLogStream(hash)
	if err != nil {
		return false, fmt.Errorf("read commits: %w", err)
	}
	s.scan = &scanSession{head: hash, logStream: stream}
	s.headHash = hash
	s.headName = name
	slog.Debug("commit window session initialized",
		slog.String("head", name),
		slog.Int("batch", s.batch),
	)
	if err := s.fillLocked(); err != nil {
		return false, err
	}
	return s.scan.hasMore()
}

// fillLocked consumes one batch from the session into the window, dropping
// duplicate hashes so a commit reachable through several paths appears once.
func (s *Store) fillLocked() error {
	added := 0
	for added < s.batch {
		commit, err := s.scan.next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("iterate commits: %w", err)
		}
		if _, dup := s.index[commit.Hash]; dup {
			continue
		}
		s.index[commit.Hash] = len(s.commits)
		s.commits = append(s.commits, commit)
		added++
	}
	slog.Debug("commit window batch loaded",
		slog.Int("added", added),
		slog.Int("total", len(s.commits)),
	)
	return nil
}

func (s *Store) resetLocked() {
	if s.scan != nil {
		s.scan.close()
		s.scan = nil
	}
	s.commits = nil
	s.index = make(map[string]int)
	s.headHash = ""
	s.headName = ""
}

type scanSession struct {
	head string

	logStream git.LogStream

	// buffered holds the next commit returned by hasMore() so fills keep
	// consuming in order.
	buffered  *git.Commit
	exhausted bool
}

func (s *scanSession) close() {
	if s.logStream != nil {
		if err := s.logStream.Close(); err != nil {
			slog.Debug("log stream close", slog.Any("error", err))
		}
	}
	s.logStream = nil
	s.buffered = nil
	s.exhausted = true
}

func (s *scanSession) hasMore() (bool, error) {
	if s.exhausted {
		return false, nil
	}
	if s.buffered != nil {
		return true, nil
	}
	commit, err := s.logStream.Next()
	if err != nil {
		if err == io.EOF {
			s.exhausted = true
			return false, nil
		}
		return false, fmt.Errorf("iterate commits: %w", err)
	}
	s.buffered = commit
	return true, nil
}

func (s *scanSession) next() (*git.Commit, error) {
	if s.exhausted {
		return nil, io.EOF
	}
	if s.buffered != nil {
		commit := s.buffered
		s.buffered = nil
		return commit, nil
	}
	commit, err := s.logStream.Next()
	if err != nil {
		if err == io.EOF {
			s.exhausted = true
		}
		return nil, err
	}
	return commit, nil
}
