// Package client ties the pieces together: it owns the repository driver,
// the loaded commit window, the rewrite sequencer and the operation log, and
// exposes the operations the front end calls.
package client

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mvisser/gitdeck/internal/git"
	"github.com/mvisser/gitdeck/internal/graph"
	"github.com/mvisser/gitdeck/internal/oplog"
	"github.com/mvisser/gitdeck/internal/sequencer"
	"github.com/mvisser/gitdeck/internal/store"
)

type Options struct {
	// Native selects the pure-Go driver instead of the git executable.
	Native bool
	// Batch is the commit window page size; zero picks the default.
	Batch int
}

type Client struct {
	driver git.Driver
	store  *store.Store
	seq    *sequencer.Sequencer
	log    *oplog.Log

	mu      sync.Mutex
	pending *pendingOp
}

// pendingOp remembers what a running sequence will become in the operation
// log once it completes.
type pendingOp struct {
	kind       oplog.Kind
	branch     string
	beforeHash string
	details    string
}

func Open(repoPath string, opts Options) (*Client, error) {
	var driver git.Driver
	var err error
	if opts.Native {
		driver, err = git.OpenNative(repoPath)
	} else {
		driver, err = git.OpenCLI(repoPath)
	}
	if err != nil {
		return nil, err
	}
	return newClient(driver, opts.Batch), nil
}

func newClient(driver git.Driver, batch int) *Client {
	return &Client{
		driver: driver,
		store:  store.New(driver, batch),
		seq:    sequencer.New(driver),
		log:    oplog.New(driver),
	}
}

func (c *Client) RepoPath() string { return c.driver.RepoPath() }

func (c *Client) Load() (bool, error)     { return c.store.Load() }
func (c *Client) LoadMore() (bool, error) { return c.store.LoadMore() }
func (c *Client) Refresh() (bool, error)  { return c.store.Refresh() }

func (c *Client) Commits() []*git.Commit { return c.store.Commits() }
func (c *Client) HeadName() string       { return c.store.HeadName() }

// Layout lays out the loaded window into graph rows.
func (c *Client) Layout() []graph.Node {
	return graph.Layout(c.store.Commits())
}

func (c *Client) BranchLabels() (map[string][]string, error) {
	return c.store.BranchLabels()
}

func (c *Client) CanUndo() bool { return c.log.CanUndo() }
func (c *Client) CanRedo() bool { return c.log.CanRedo() }

func (c *Client) RewriteState() sequencer.State { return c.seq.Snapshot() }

// CherryPick applies the named loaded commits onto the current branch,
// oldest first.
func (c *Client) CherryPick(hashes []string) (sequencer.Outcome, error) {
	commits, err := c.lookupAll(hashes)
	if err != nil {
		return sequencer.Outcome{}, err
	}
	// Hashes arrive in display order, newest first; apply bottom-up.
	slices.Reverse(commits)
	entries := make([]sequencer.Entry, len(commits))
	for i, commit := range commits {
		entries[i] = sequencer.Entry{Commit: commit, Action: sequencer.ActionPick}
	}
	plan := sequencer.Plan{Mode: sequencer.ModeCherryPick, Entries: entries}
	details := fmt.Sprintf("cherry-pick %d commits", len(commits))
	return c.begin(plan, oplog.KindCherryPick, details)
}

// Rebase runs an interactive-rebase style plan.
func (c *Client) Rebase(plan sequencer.Plan) (sequencer.Outcome, error) {
	plan.Mode = sequencer.ModeRebase
	details := fmt.Sprintf("rebase %d steps onto %.7s", plan.Steps(), plan.OntoRef)
	return c.begin(plan, oplog.KindRebase, details)
}

// MoveCommits reorders the current branch by dragging the dropped commits
// next to the target. The move is validated against the loaded window before
// any repository state changes.
func (c *Client) MoveCommits(droppedHashes []string, targetHash string, pos graph.Position) (sequencer.Outcome, error) {
	window := c.store.Commits()
	dropped, err := c.lookupAll(droppedHashes)
	if err != nil {
		return sequencer.Outcome{}, err
	}
	target := c.store.Lookup(targetHash)
	if target == nil {
		return sequencer.Outcome{}, fmt.Errorf("target commit %.7s is not loaded", targetHash)
	}
	if !graph.IsValidRewriteTarget(window, dropped, target, pos, c.store.HeadName()) {
		return sequencer.Outcome{}, fmt.Errorf("cannot move %d commits %s %.7s", len(dropped), pos, targetHash)
	}
	plan, err := buildMovePlan(window, dropped, target, pos)
	if err != nil {
		return sequencer.Outcome{}, err
	}
	details := fmt.Sprintf("move %d commits %s %.7s", len(dropped), pos, targetHash)
	return c.begin(plan, oplog.KindRebase, details)
}

// Continue resumes a conflict-paused rewrite after resolution.
func (c *Client) Continue() (sequencer.Outcome, error) {
	out, err := c.seq.Continue()
	return c.settle(out, err)
}

// Skip drops the paused step and resumes.
func (c *Client) Skip() (sequencer.Outcome, error) {
	out, err := c.seq.Skip()
	return c.settle(out, err)
}

// KeepEmpty keeps an emptied step as an empty commit and resumes.
func (c *Client) KeepEmpty() (sequencer.Outcome, error) {
	out, err := c.seq.ContinueAllowEmpty()
	return c.settle(out, err)
}

// Abort cancels the active rewrite and restores the pre-rewrite state.
func (c *Client) Abort() error {
	err := c.seq.Abort()
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
	if _, rerr := c.store.Refresh(); rerr != nil {
		slog.Debug("refresh after abort", slog.Any("error", rerr))
	}
	return err
}

// Undo rolls the most recent completed rewrite back.
func (c *Client) Undo() (oplog.Entry, error) {
	e, err := c.log.Undo()
	if err != nil {
		return oplog.Entry{}, err
	}
	if _, rerr := c.store.Refresh(); rerr != nil {
		return e, rerr
	}
	return e, nil
}

// Redo re-applies the most recently undone rewrite.
func (c *Client) Redo() (oplog.Entry, error) {
	e, err := c.log.Redo()
	if err != nil {
		return oplog.Entry{}, err
	}
	if _, rerr := c.store.Refresh(); rerr != nil {
		return e, rerr
	}
	return e, nil
}

// History lists completed rewrites, oldest first.
func (c *Client) History() []oplog.Entry { return c.log.Entries() }

func (c *Client) begin(plan sequencer.Plan, kind oplog.Kind, details string) (sequencer.Outcome, error) {
	headHash, branch, ok, err := c.driver.HeadState()
	if err != nil {
		return sequencer.Outcome{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	if !ok {
		return sequencer.Outcome{}, errors.New("cannot rewrite an unborn branch")
	}
	c.mu.Lock()
	c.pending = &pendingOp{kind: kind, branch: branch, beforeHash: headHash, details: details}
	c.mu.Unlock()

	out, err := c.seq.Begin(plan)
	return c.settle(out, err)
}

// settle handles the aftermath of any sequencer call: a completed sequence
// is recorded in the operation log, and any terminal outcome refreshes the
// window.
func (c *Client) settle(out sequencer.Outcome, err error) (sequencer.Outcome, error) {
	if err != nil {
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		if _, rerr := c.store.Refresh(); rerr != nil {
			slog.Debug("refresh after failed rewrite", slog.Any("error", rerr))
		}
		return out, err
	}
	if out.Status != sequencer.StatusCompleted {
		return out, nil
	}
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	if pending != nil {
		c.log.Record(oplog.Entry{
			Kind:       pending.kind,
			Branch:     pending.branch,
			BeforeHash: pending.beforeHash,
			AfterHash:  out.FinalHash,
			Details:    pending.details,
		})
	}
	if _, rerr := c.store.Refresh(); rerr != nil {
		return out, rerr
	}
	return out, nil
}

func (c *Client) lookupAll(hashes []string) ([]*git.Commit, error) {
	if len(hashes) == 0 {
		return nil, errors.New("no commits selected")
	}
	commits := make([]*git.Commit, 0, len(hashes))
	for _, h := range hashes {
		commit := c.store.Lookup(h)
		if commit == nil {
			return nil, fmt.Errorf("commit %.7s is not loaded", h)
		}
		commits = append(commits, commit)
	}
	return commits, nil
}
