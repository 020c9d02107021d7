package git

import (
	"strings"
	"time"
)

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit is one loaded history entry. ParentHashes is ordered; index 0 is the
// first parent, an empty slice marks a root commit.
type Commit struct {
	Hash         string
	ParentHashes []string
	TreeHash     string
	Author       Signature
	Committer    Signature
	Message      string
}

// ShortHash returns the display abbreviation of the commit hash.
func (c *Commit) ShortHash() string {
	if c == nil {
		return ""
	}
	if len(c.Hash) <= 7 {
		return c.Hash
	}
	return c.Hash[:7]
}

// IsRoot reports whether the commit has no parents.
func (c *Commit) IsRoot() bool {
	return c != nil && len(c.ParentHashes) == 0
}

// Summary returns the first message line, truncated for list display.
func (c *Commit) Summary() string {
	if c == nil {
		return ""
	}
	line := strings.SplitN(strings.TrimSpace(c.Message), "\n", 2)[0]
	if len(line) > 80 {
		line = line[:77] + "..."
	}
	return line
}

type RefKind uint8

const (
	RefKindBranch RefKind = iota
	RefKindRemoteBranch
	RefKindTag
)

type Ref struct {
	Hash string
	Kind RefKind
	Name string // short name: main, origin/main, v1
}

type LocalChanges struct {
	HasWorktree bool
	HasStaged   bool
}

// ApplyResult reports how ApplyCommit left the working tree.
type ApplyResult uint8

const (
	// Applied means the commit's diff was staged cleanly.
	Applied ApplyResult = iota
	// Conflicted means the apply stopped on merge conflicts that need manual
	// resolution before the step can be finalized.
	Conflicted
)

func (r ApplyResult) String() string {
	switch r {
	case Applied:
		return "applied"
	case Conflicted:
		return "conflicted"
	default:
		return "unknown"
	}
}
