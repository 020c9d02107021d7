package git

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

func (g *gitCLI) ResolveRef(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("ref not specified")
	}
	out, err := g.runGitCommand([]string{"rev-parse", "--verify", name + "^{commit}"}, false, "git rev-parse")
	if err != nil {
		return "", err
	}
	hash := strings.TrimSpace(out)
	if hash == "" {
		return "", fmt.Errorf("ref %s did not resolve to a commit", name)
	}
	return hash, nil
}

func (g *gitCLI) Checkout(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return fmt.Errorf("ref not specified")
	}
	_, err := g.runGitCommand([]string{"checkout", ref, "--"}, false, "git checkout")
	return err
}

func (g *gitCLI) CheckoutNewBranch(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("branch not specified")
	}
	_, err := g.runGitCommand([]string{"checkout", "-b", name}, false, "git checkout -b")
	return err
}

func (g *gitCLI) ApplyCommit(commitHash string) (ApplyResult, error) {
	if strings.TrimSpace(commitHash) == "" {
		return Applied, fmt.Errorf("commit not specified")
	}
	_, err := g.runGitCommand([]string{"cherry-pick", "--no-commit", commitHash}, false, "git cherry-pick")
	if err == nil {
		return Applied, nil
	}
	conflicted, confErr := g.IsConflicted()
	if confErr != nil {
		return Applied, errors.Join(err, confErr)
	}
	if conflicted {
		return Conflicted, nil
	}
	return Applied, err
}

func (g *gitCLI) IsConflicted() (bool, error) {
	out, err := g.runGitCommand([]string{"ls-files", "--unmerged"}, false, "git ls-files")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (g *gitCLI) ConflictedPaths() ([]string, error) {
	out, err := g.runGitCommand([]string{"ls-files", "--unmerged", "-z"}, false, "git ls-files")
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var paths []string
	for _, entry := range strings.Split(out, "\x00") {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		// Each entry is "<mode> <hash> <stage>\t<path>".
		_, path, found := strings.Cut(entry, "\t")
		if !found || path == "" {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}
	return paths, nil
}

func (g *gitCLI) ConflictSides(path string) (ours, theirs string, err error) {
	if strings.TrimSpace(path) == "" {
		return "", "", fmt.Errorf("path not specified")
	}
	// Stage 2 is "ours", stage 3 is "theirs". A missing stage (add/add or
	// delete conflicts) yields an empty side rather than an error.
	ours, oursErr := g.runGitCommand([]string{"show", ":2:" + path}, false, "git show")
	theirs, theirsErr := g.runGitCommand([]string{"show", ":3:" + path}, false, "git show")
	if oursErr != nil {
		ours = ""
	}
	if theirsErr != nil {
		theirs = ""
	}
	if oursErr != nil && theirsErr != nil {
		return "", "", fmt.Errorf("path %s has no conflict stages: %w", path, errors.Join(oursErr, theirsErr))
	}
	return ours, theirs, nil
}

func (g *gitCLI) AmendMessage(text string) error {
	_, err := g.runGitCommand([]string{"commit", "--amend", "--allow-empty", "-m", text}, false, "git commit --amend")
	return err
}

func (g *gitCLI) SoftResetBy(n int) error {
	if n <= 0 {
		return fmt.Errorf("reset count must be positive, got %d", n)
	}
	_, err := g.runGitCommand([]string{"reset", "--soft", "HEAD~" + strconv.Itoa(n)}, false, "git reset")
	return err
}

func (g *gitCLI) CommitWithMessage(text string, allowEmpty bool) error {
	args := []string{"commit", "-m", text}
	if allowEmpty {
		args = append(args, "--allow-empty")
	}
	_, err := g.runGitCommand(args, false, "git commit")
	return err
}

func (g *gitCLI) AbortInProgressOperation() error {
	if _, err := g.runGitCommand([]string{"cherry-pick", "--abort"}, false, "git cherry-pick --abort"); err == nil {
		return nil
	}
	// No cherry-pick in flight; drop whatever half-applied state remains.
	_, err := g.runGitCommand([]string{"reset", "--merge", "HEAD"}, false, "git reset --merge")
	return err
}

func (g *gitCLI) ForceMoveBranch(name, toRef string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(toRef) == "" {
		return fmt.Errorf("branch and target must be specified")
	}
	_, err := g.runGitCommand([]string{"branch", "--force", name, toRef}, false, "git branch --force")
	return err
}
