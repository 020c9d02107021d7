package git

// Reader abstracts read access to repository data.
//
// The default implementation shells out to the git executable, but the
// interface allows alternative implementations (e.g. pure-Go) without
// changing callers.
type Reader interface {
	RepoPath() string
	StartLogStream(fromHash string) (LogStream, error)

	// HeadState reports where HEAD points. headName is the short branch
	// name and empty when HEAD is detached; ok is false on an unborn
	// branch.
	HeadState() (hash string, headName string, ok bool, err error)
	ListRefs() ([]Ref, error)
	LocalChangesStatus() (LocalChanges, error)
}

// Rewriter is the mutation surface the rewrite engine drives. Every ref and
// commit-id argument must already have passed ValidateRef/ValidateCommitHash;
// implementations execute external commands and never re-validate.
type Rewriter interface {
	ResolveRef(name string) (string, error)
	Checkout(ref string) error
	CheckoutNewBranch(name string) error

	// ApplyCommit stages the named commit's diff against the current HEAD
	// (cherry-pick semantics) without committing.
	ApplyCommit(commitHash string) (ApplyResult, error)
	IsConflicted() (bool, error)
	ConflictedPaths() ([]string, error)
	// ConflictSides returns the "ours" and "theirs" contents of a conflicted
	// path. Either side may be empty for add/add or delete conflicts.
	ConflictSides(path string) (ours, theirs string, err error)

	AmendMessage(text string) error
	SoftResetBy(n int) error
	CommitWithMessage(text string, allowEmpty bool) error
	AbortInProgressOperation() error
	ForceMoveBranch(name, toRef string) error
}

// Driver combines read and mutation access to one repository.
type Driver interface {
	Reader
	Rewriter
}

type LogStream interface {
	Next() (*Commit, error)
	Close() error
}
