package client

import (
	"errors"
	"fmt"

	"github.com/mvisser/gitdeck/internal/git"
	"github.com/mvisser/gitdeck/internal/graph"
	"github.com/mvisser/gitdeck/internal/sequencer"
)

// buildMovePlan turns a drag-and-drop move into a rebase plan. It computes
// the reordered window, finds the deepest commit that changes and replays
// everything above it onto that commit's parent. Dropping onto the target
// squashes the dropped commits into it.
func buildMovePlan(window []*git.Commit, dropped []*git.Commit, target *git.Commit, pos graph.Position) (sequencer.Plan, error) {
	droppedSet := make(map[string]struct{}, len(dropped))
	for _, c := range dropped {
		droppedSet[c.Hash] = struct{}{}
	}

	rest := make([]*git.Commit, 0, len(window)-len(dropped))
	for _, c := range window {
		if _, isDropped := droppedSet[c.Hash]; !isDropped {
			rest = append(rest, c)
		}
	}
	targetIdx := -1
	for i, c := range rest {
		if c.Hash == target.Hash {
			targetIdx = i
			break
		}
	}
	if targetIdx == -1 {
		return sequencer.Plan{}, fmt.Errorf("target commit %s is not in the window", target.ShortHash())
	}

	// The window is newest first: "before" the target means above it in the
	// display, "after" means below. Onto inserts above so the dropped
	// commits replay right after the target and can fold into it.
	insertAt := targetIdx
	if pos == graph.PositionAfter {
		insertAt = targetIdx + 1
	}
	newOrder := make([]*git.Commit, 0, len(window))
	newOrder = append(newOrder, rest[:insertAt]...)
	newOrder = append(newOrder, dropped...)
	newOrder = append(newOrder, rest[insertAt:]...)

	// Find the deepest position that changed; everything below it stays.
	deepest := len(window) - 1
	for deepest >= 0 && window[deepest].Hash == newOrder[deepest].Hash {
		deepest--
	}
	if pos == graph.PositionOnto {
		// The target itself is rewritten by the squash even when the order
		// did not change.
		if idx := insertAt + len(dropped); idx > deepest {
			deepest = idx
		}
	}
	if deepest < 0 {
		return sequencer.Plan{}, errors.New("move does not change the history")
	}
	oldest := window[deepest]
	if oldest.IsRoot() {
		return sequencer.Plan{}, fmt.Errorf("move would rewrite the root commit %s", oldest.ShortHash())
	}

	entries := make([]sequencer.Entry, 0, deepest+1)
	for i := deepest; i >= 0; i-- {
		action := sequencer.ActionPick
		if pos == graph.PositionOnto {
			if _, isDropped := droppedSet[newOrder[i].Hash]; isDropped {
				action = sequencer.ActionSquash
			}
		}
		entries = append(entries, sequencer.Entry{Commit: newOrder[i], Action: action})
	}
	return sequencer.Plan{
		Mode:    sequencer.ModeRebase,
		OntoRef: oldest.ParentHashes[0],
		Entries: entries,
	}, nil
}
