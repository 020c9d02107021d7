package git

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func (n *nativeDriver) ResolveRef(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("ref not specified")
	}
	hash, err := n.repo.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", name, err)
	}
	return hash.String(), nil
}

func (n *nativeDriver) Checkout(ref string) error {
	wt, err := n.repo.Worktree()
	if err != nil {
		return err
	}
	branchRef := plumbing.NewBranchReferenceName(ref)
	if _, err := n.repo.Reference(branchRef, false); err == nil {
		return wt.Checkout(&gitlib.CheckoutOptions{Branch: branchRef})
	}
	hash, err := n.ResolveRef(ref)
	if err != nil {
		return err
	}
	return wt.Checkout(&gitlib.CheckoutOptions{Hash: plumbing.NewHash(hash)})
}

func (n *nativeDriver) CheckoutNewBranch(name string) error {
	wt, err := n.repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&gitlib.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	})
}

// ApplyCommit replays the commit's diff against its first parent onto the
// working tree and stages the result. Paths where the current HEAD diverged
// from that parent are not overwritten: the worktree gets conflict markers,
// the index gets merge stages, and the apply reports Conflicted.
func (n *nativeDriver) ApplyCommit(commitHash string) (ApplyResult, error) {
	commit, err := n.repo.CommitObject(plumbing.NewHash(commitHash))
	if err != nil {
		return Applied, fmt.Errorf("load commit %s: %w", commitHash, err)
	}
	commitTree, err := commit.Tree()
	if err != nil {
		return Applied, fmt.Errorf("load tree of %s: %w", commitHash, err)
	}
	var parentTree *object.Tree
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return Applied, fmt.Errorf("load parent of %s: %w", commitHash, err)
		}
		parentTree, err = parent.Tree()
		if err != nil {
			return Applied, fmt.Errorf("load parent tree of %s: %w", commitHash, err)
		}
	}
	wt, err := n.repo.Worktree()
	if err != nil {
		return Applied, err
	}
	if parentTree == nil {
		if err := n.applyWholeTree(wt, commitTree); err != nil {
			return Applied, err
		}
		return Applied, nil
	}
	headTree, err := n.headTree()
	if err != nil {
		return Applied, err
	}
	patch, err := parentTree.Patch(commitTree)
	if err != nil {
		return Applied, fmt.Errorf("compute patch for %s: %w", commitHash, err)
	}
	conflicted := false
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		if to == nil {
			if from == nil {
				continue
			}
			ours, err := treeFile(headTree, from.Path())
			if err != nil {
				return Applied, err
			}
			switch {
			case ours == nil:
				// Already gone on this side.
			case ours.Hash == from.Hash():
				if _, err := wt.Remove(from.Path()); err != nil {
					return Applied, fmt.Errorf("remove %s: %w", from.Path(), err)
				}
			default:
				// Deleted in the commit, modified here: keep ours and
				// flag the path.
				if err := n.stageConflict(from.Path(), from.Hash(), ours.Hash, plumbing.ZeroHash); err != nil {
					return Applied, err
				}
				conflicted = true
			}
			continue
		}
		theirs, err := commitTree.File(to.Path())
		if err != nil {
			return Applied, fmt.Errorf("read %s from %s: %w", to.Path(), commitHash, err)
		}
		ours, err := treeFile(headTree, to.Path())
		if err != nil {
			return Applied, err
		}
		base, err := treeFile(parentTree, to.Path())
		if err != nil {
			return Applied, err
		}
		oursHash := plumbing.ZeroHash
		if ours != nil {
			oursHash = ours.Hash
		}
		baseHash := plumbing.ZeroHash
		if base != nil {
			baseHash = base.Hash
		}
		switch oursHash {
		case theirs.Hash:
			// This side already carries the change; nothing to stage.
		case baseHash:
			if err := n.writeWorktreeFile(wt, to.Path(), theirs); err != nil {
				return Applied, err
			}
			if from != nil && from.Path() != to.Path() {
				if _, err := wt.Remove(from.Path()); err != nil {
					return Applied, fmt.Errorf("remove %s: %w", from.Path(), err)
				}
			}
			if _, err := wt.Add(to.Path()); err != nil {
				return Applied, fmt.Errorf("stage %s: %w", to.Path(), err)
			}
		default:
			if err := n.writeConflictMarkers(wt, to.Path(), commit.Hash.String(), oursHash, theirs.Hash); err != nil {
				return Applied, err
			}
			if err := n.stageConflict(to.Path(), baseHash, oursHash, theirs.Hash); err != nil {
				return Applied, err
			}
			conflicted = true
		}
	}
	if conflicted {
		return Conflicted, nil
	}
	return Applied, nil
}

func (n *nativeDriver) headTree() (*object.Tree, error) {
	ref, err := n.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := n.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, err
	}
	return commit.Tree()
}

func treeFile(tree *object.Tree, path string) (*object.File, error) {
	f, err := tree.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return f, nil
}

// writeConflictMarkers leaves both sides of an overlapping edit in the
// worktree file, the way a stopped cherry-pick does.
func (n *nativeDriver) writeConflictMarkers(wt *gitlib.Worktree, path, label string, oursHash, theirsHash plumbing.Hash) error {
	side := func(hash plumbing.Hash) (string, error) {
		if hash == plumbing.ZeroHash {
			return "", nil
		}
		contents, err := n.blobContents(hash)
		if err != nil {
			return "", err
		}
		if contents != "" && !strings.HasSuffix(contents, "\n") {
			contents += "\n"
		}
		return contents, nil
	}
	ours, err := side(oursHash)
	if err != nil {
		return err
	}
	theirs, err := side(theirsHash)
	if err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("<<<<<<< HEAD\n")
	b.WriteString(ours)
	b.WriteString("=======\n")
	b.WriteString(theirs)
	b.WriteString(">>>>>>> " + label + "\n")
	return n.writeWorktreeContents(wt, path, b.String())
}

// stageConflict replaces the path's index entry with merge stages pointing at
// blobs that already exist in the object store. A zero hash skips its stage,
// as in add/add or delete conflicts.
func (n *nativeDriver) stageConflict(path string, base, ours, theirs plumbing.Hash) error {
	idx, err := n.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	kept := idx.Entries[:0]
	for _, e := range idx.Entries {
		if e.Name != path {
			kept = append(kept, e)
		}
	}
	idx.Entries = kept
	add := func(hash plumbing.Hash, stage index.Stage) {
		if hash == plumbing.ZeroHash {
			return
		}
		idx.Entries = append(idx.Entries, &index.Entry{
			Name:  path,
			Hash:  hash,
			Mode:  filemode.Regular,
			Stage: stage,
		})
	}
	add(base, index.AncestorMode)
	add(ours, index.OurMode)
	add(theirs, index.TheirMode)
	return n.repo.Storer.SetIndex(idx)
}

func (n *nativeDriver) applyWholeTree(wt *gitlib.Worktree, tree *object.Tree) error {
	files := tree.Files()
	defer files.Close()
	return files.ForEach(func(f *object.File) error {
		if err := n.writeWorktreeFile(wt, f.Name, f); err != nil {
			return err
		}
		_, err := wt.Add(f.Name)
		return err
	})
}

func (n *nativeDriver) writeWorktreeFile(wt *gitlib.Worktree, path string, f *object.File) error {
	contents, err := f.Contents()
	if err != nil {
		return fmt.Errorf("read blob for %s: %w", path, err)
	}
	return n.writeWorktreeContents(wt, path, contents)
}

func (n *nativeDriver) writeWorktreeContents(wt *gitlib.Worktree, path, contents string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := wt.Filesystem.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	out, err := wt.Filesystem.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := out.Write([]byte(contents)); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}

func (n *nativeDriver) IsConflicted() (bool, error) {
	counts, err := n.indexStageCounts()
	if err != nil {
		return false, err
	}
	for _, c := range counts {
		if c > 1 {
			return true, nil
		}
	}
	return false, nil
}

func (n *nativeDriver) ConflictedPaths() ([]string, error) {
	counts, err := n.indexStageCounts()
	if err != nil {
		return nil, err
	}
	var paths []string
	for path, c := range counts {
		if c > 1 {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// indexStageCounts counts index entries per path; a path with more than one
// entry carries merge stages and is conflicted.
func (n *nativeDriver) indexStageCounts() (map[string]int, error) {
	idx, err := n.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	counts := make(map[string]int)
	for _, e := range idx.Entries {
		counts[e.Name]++
	}
	return counts, nil
}

func (n *nativeDriver) ConflictSides(path string) (ours, theirs string, err error) {
	idx, err := n.repo.Storer.Index()
	if err != nil {
		return "", "", fmt.Errorf("read index: %w", err)
	}
	found := false
	for _, e := range idx.Entries {
		if e.Name != path {
			continue
		}
		// Merge stages: 1 base, 2 ours, 3 theirs.
		switch int(e.Stage) {
		case 2:
			ours, err = n.blobContents(e.Hash)
			if err != nil {
				return "", "", err
			}
			found = true
		case 3:
			theirs, err = n.blobContents(e.Hash)
			if err != nil {
				return "", "", err
			}
			found = true
		}
	}
	if !found {
		return "", "", fmt.Errorf("path %s has no conflict stages", path)
	}
	return ours, theirs, nil
}

func (n *nativeDriver) blobContents(hash plumbing.Hash) (string, error) {
	blob, err := n.repo.BlobObject(hash)
	if err != nil {
		return "", fmt.Errorf("read blob %s: %w", hash, err)
	}
	r, err := blob.Reader()
	if err != nil {
		return "", err
	}
	defer r.Close()
	var b strings.Builder
	if _, err := io.Copy(&b, r); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (n *nativeDriver) AmendMessage(text string) error {
	wt, err := n.repo.Worktree()
	if err != nil {
		return err
	}
	_, err = wt.Commit(text, &gitlib.CommitOptions{Amend: true})
	return err
}

func (n *nativeDriver) SoftResetBy(count int) error {
	if count <= 0 {
		return fmt.Errorf("reset count must be positive, got %d", count)
	}
	head, err := n.repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := n.repo.CommitObject(head.Hash())
	if err != nil {
		return err
	}
	for range count {
		if commit.NumParents() == 0 {
			return fmt.Errorf("cannot reset past root commit %s", commit.Hash)
		}
		commit, err = commit.Parent(0)
		if err != nil {
			return err
		}
	}
	wt, err := n.repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Reset(&gitlib.ResetOptions{Commit: commit.Hash, Mode: gitlib.SoftReset})
}

func (n *nativeDriver) CommitWithMessage(text string, allowEmpty bool) error {
	wt, err := n.repo.Worktree()
	if err != nil {
		return err
	}
	_, err = wt.Commit(text, &gitlib.CommitOptions{AllowEmptyCommits: allowEmpty})
	return err
}

func (n *nativeDriver) AbortInProgressOperation() error {
	wt, err := n.repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Reset(&gitlib.ResetOptions{Mode: gitlib.HardReset})
}

func (n *nativeDriver) ForceMoveBranch(name, toRef string) error {
	hash, err := n.ResolveRef(toRef)
	if err != nil {
		return err
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), plumbing.NewHash(hash))
	return n.repo.Storer.SetReference(ref)
}
