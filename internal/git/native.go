package git

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// nativeDriver is the pure-Go implementation of Driver on go-git. It exists
// so the rewrite engine's state machine stays independent of the git
// executable; callers pick it with OpenNative.
type nativeDriver struct {
	path string
	repo *gitlib.Repository
}

func OpenNative(repoPath string) (Driver, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &nativeDriver{path: abs, repo: repo}, nil
}

func (n *nativeDriver) RepoPath() string {
	if n == nil {
		return ""
	}
	return n.path
}

type nativeLogStream struct {
	iter object.CommitIter
}

func (n *nativeDriver) StartLogStream(fromHash string) (LogStream, error) {
	if strings.TrimSpace(fromHash) == "" {
		return nil, fmt.Errorf("starting commit not specified")
	}
	iter, err := n.repo.Log(&gitlib.LogOptions{
		From:  plumbing.NewHash(fromHash),
		Order: gitlib.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}
	return &nativeLogStream{iter: iter}, nil
}

func (s *nativeLogStream) Next() (*Commit, error) {
	c, err := s.iter.Next()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return commitFromObject(c), nil
}

func (s *nativeLogStream) Close() error {
	s.iter.Close()
	return nil
}

func commitFromObject(c *object.Commit) *Commit {
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	return &Commit{
		Hash:         c.Hash.String(),
		ParentHashes: parents,
		TreeHash:     c.TreeHash.String(),
		Author:       Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
		Committer:    Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: c.Committer.When},
		Message:      c.Message,
	}
}

func (n *nativeDriver) HeadState() (hash string, headName string, ok bool, err error) {
	ref, err := n.repo.Head()
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("resolve HEAD: %w", err)
	}
	if ref.Name().IsBranch() {
		headName = ref.Name().Short()
	}
	return ref.Hash().String(), headName, true, nil
}

func (n *nativeDriver) ListRefs() ([]Ref, error) {
	iter, err := n.repo.References()
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var refs []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		short := name.Short()
		switch {
		case name.IsBranch():
			refs = append(refs, Ref{Hash: ref.Hash().String(), Kind: RefKindBranch, Name: short})
		case name.IsRemote():
			if strings.HasSuffix(short, "/HEAD") {
				return nil
			}
			refs = append(refs, Ref{Hash: ref.Hash().String(), Kind: RefKindRemoteBranch, Name: short})
		case name.IsTag():
			hash := ref.Hash()
			if peeled, ok := n.peelTagCommitHash(hash); ok {
				hash = peeled
			}
			refs = append(refs, Ref{Hash: hash.String(), Kind: RefKindTag, Name: short})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (n *nativeDriver) peelTagCommitHash(hash plumbing.Hash) (plumbing.Hash, bool) {
	if n == nil || n.repo == nil || hash == plumbing.ZeroHash {
		return plumbing.ZeroHash, false
	}
	// Lightweight tags point directly at a commit; annotated tags point at a tag object.
	if _, err := n.repo.CommitObject(hash); err == nil {
		return hash, true
	}
	cur := hash
	for range 8 {
		tag, err := n.repo.TagObject(cur)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		switch tag.TargetType {
		case plumbing.CommitObject:
			return tag.Target, true
		case plumbing.TagObject:
			cur = tag.Target
		default:
			return plumbing.ZeroHash, false
		}
	}
	return plumbing.ZeroHash, false
}

func (n *nativeDriver) LocalChangesStatus() (LocalChanges, error) {
	var res LocalChanges
	wt, err := n.repo.Worktree()
	if err != nil {
		return res, err
	}
	status, err := wt.Status()
	if err != nil {
		return res, err
	}
	for _, st := range status {
		if st.Staging != gitlib.Unmodified && st.Staging != gitlib.Untracked {
			res.HasStaged = true
		}
		if st.Worktree != gitlib.Unmodified && st.Worktree != gitlib.Untracked {
			res.HasWorktree = true
		}
		if res.HasStaged && res.HasWorktree {
			break
		}
	}
	return res, nil
}
