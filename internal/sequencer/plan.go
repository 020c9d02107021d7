// Package sequencer drives multi-step history rewrites: cherry-picks and
// interactive rebases expressed as a plan of per-commit actions, executed one
// step at a time with pause points for conflicts and emptied commits.
package sequencer

import (
	"fmt"

	"github.com/mvisser/gitdeck/internal/git"
)

// Action says what a rewrite step does with its commit.
type Action uint8

const (
	// ActionPick re-applies the commit as-is.
	ActionPick Action = iota
	// ActionSquash folds the commit into the previously applied one.
	ActionSquash
	// ActionReword re-applies the commit with a replacement message.
	ActionReword
	// ActionDrop leaves the commit out.
	ActionDrop
)

func (a Action) String() string {
	switch a {
	case ActionPick:
		return "pick"
	case ActionSquash:
		return "squash"
	case ActionReword:
		return "reword"
	case ActionDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// Mode selects how the sequence starts and finishes.
type Mode uint8

const (
	// ModeCherryPick applies the plan onto the current HEAD and leaves the
	// branch pointer where the commits land.
	ModeCherryPick Mode = iota
	// ModeRebase rebuilds the current branch: HEAD detaches at the onto ref,
	// the plan replays on top, and on success the branch is force-moved to
	// the result and checked out again.
	ModeRebase
)

func (m Mode) String() string {
	switch m {
	case ModeCherryPick:
		return "cherry-pick"
	case ModeRebase:
		return "rebase"
	default:
		return "unknown"
	}
}

// Entry is one step of a plan. NewMessage is required for ActionReword and
// optional for ActionSquash, where it replaces the concatenated messages.
type Entry struct {
	Commit     *git.Commit
	Action     Action
	NewMessage string
}

// Plan describes a full rewrite. OntoRef is only used in ModeRebase and names
// the commit the rebuilt history starts from.
type Plan struct {
	Mode    Mode
	OntoRef string
	Entries []Entry
}

// Steps counts the entries that apply a commit, i.e. everything except drops.
func (p Plan) Steps() int {
	n := 0
	for _, e := range p.Entries {
		if e.Action != ActionDrop {
			n++
		}
	}
	return n
}

func (p Plan) validate() error {
	if len(p.Entries) == 0 {
		return &PlanError{Reason: "plan has no entries"}
	}
	if p.Steps() == 0 {
		return &PlanError{Reason: "plan drops every commit"}
	}
	if p.Mode == ModeRebase {
		if p.OntoRef == "" {
			return &PlanError{Reason: "rebase plan has no onto ref"}
		}
		if err := git.ValidateRef(p.OntoRef); err != nil {
			if hashErr := git.ValidateCommitHash(p.OntoRef); hashErr != nil {
				return &PlanError{Reason: fmt.Sprintf("invalid onto ref %q: %v", p.OntoRef, err)}
			}
		}
	}
	sawApplied := false
	for i, e := range p.Entries {
		if e.Commit == nil {
			return &PlanError{Reason: fmt.Sprintf("entry %d has no commit", i)}
		}
		if err := git.ValidateCommitHash(e.Commit.Hash); err != nil {
			return &PlanError{Reason: fmt.Sprintf("entry %d: %v", i, err)}
		}
		switch e.Action {
		case ActionPick, ActionDrop:
		case ActionReword:
			if e.NewMessage == "" {
				return &PlanError{Reason: fmt.Sprintf("entry %d rewords %s without a new message", i, e.Commit.ShortHash())}
			}
		case ActionSquash:
			if !sawApplied {
				return &PlanError{Reason: fmt.Sprintf("entry %d squashes %s with nothing applied before it", i, e.Commit.ShortHash())}
			}
		default:
			return &PlanError{Reason: fmt.Sprintf("entry %d has unknown action %d", i, e.Action)}
		}
		if p.Mode == ModeRebase && e.Commit.IsRoot() {
			return &PlanError{Reason: fmt.Sprintf("entry %d: root commit %s cannot be rebased", i, e.Commit.ShortHash())}
		}
		if e.Action != ActionDrop {
			sawApplied = true
		}
	}
	return nil
}
