package graph

import (
	"github.com/mvisser/gitdeck/internal/git"
)

// Position says where a dragged set of commits is being dropped relative to
// the target commit.
type Position uint8

const (
	PositionBefore Position = iota
	PositionAfter
	PositionOnto
)

func (p Position) String() string {
	switch p {
	case PositionBefore:
		return "before"
	case PositionAfter:
		return "after"
	case PositionOnto:
		return "onto"
	default:
		return "unknown"
	}
}

// Reordering history on these branches is rejected outright; squashing a
// commit onto another is still allowed.
var protectedBranches = map[string]struct{}{
	"main":       {},
	"master":     {},
	"develop":    {},
	"production": {},
	"staging":    {},
}

// IsProtectedBranch reports whether history on the named branch must keep
// its order.
func IsProtectedBranch(name string) bool {
	_, ok := protectedBranches[name]
	return ok
}

// IsValidRewriteTarget checks a requested drag-and-drop rewrite for
// structural validity against the loaded commit window. It is advisory: a
// true result means the transformation is not self-contradictory, not that
// the backing store will apply it without conflicts.
//
// The rules short-circuit in order: root commits cannot move; reorders are
// refused on protected branches; a commit cannot target itself; and the
// target must not descend from any dropped commit, since moving a commit
// past its own descendant would close a cycle.
func IsValidRewriteTarget(loaded []*git.Commit, dropped []*git.Commit, target *git.Commit, pos Position, activeBranch string) bool {
	if target == nil || len(dropped) == 0 {
		return false
	}
	for _, c := range dropped {
		if c.IsRoot() {
			return false
		}
	}
	if pos != PositionOnto && IsProtectedBranch(activeBranch) {
		return false
	}
	for _, c := range dropped {
		if c.Hash == target.Hash {
			return false
		}
	}
	return !isDescendantOfAny(loaded, dropped, target)
}

// isDescendantOfAny walks the children relation (the inverse of the parent
// edges, derived from the loaded window) breadth-first from every dropped
// commit and reports whether the target is reachable.
func isDescendantOfAny(loaded []*git.Commit, dropped []*git.Commit, target *git.Commit) bool {
	children := childIndex(loaded)
	queue := make([]string, 0, len(dropped))
	visited := make(map[string]struct{}, len(dropped))
	for _, c := range dropped {
		queue = append(queue, c.Hash)
		visited[c.Hash] = struct{}{}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if child == target.Hash {
				return true
			}
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			queue = append(queue, child)
		}
	}
	return false
}

func childIndex(loaded []*git.Commit) map[string][]string {
	children := make(map[string][]string, len(loaded))
	for _, c := range loaded {
		for _, parent := range c.ParentHashes {
			children[parent] = append(children[parent], c.Hash)
		}
	}
	return children
}
