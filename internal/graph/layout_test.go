package graph

import (
	"reflect"
	"testing"

	"github.com/mvisser/gitdeck/internal/git"
)

func commit(hash string, parents ...string) *git.Commit {
	return &git.Commit{Hash: hash, ParentHashes: parents}
}

func TestLayoutLinearHistory(t *testing.T) {
	t.Parallel()

	commits := []*git.Commit{
		commit("c", "b"),
		commit("b", "a"),
		commit("a"),
	}
	nodes := Layout(commits)
	for i, n := range nodes {
		if n.Lane != 0 {
			t.Errorf("commit %s: lane = %d, want 0", commits[i].Hash, n.Lane)
		}
		if n.Color != nodes[0].Color {
			t.Errorf("commit %s: color %q differs from head %q", commits[i].Hash, n.Color, nodes[0].Color)
		}
	}
	if got := Width(nodes); got != 1 {
		t.Errorf("Width = %d, want 1", got)
	}
}

// Commits A(root), B(parent A), C(parent B), D(parent B) loaded newest-first
// as [D, C, B, A]: two lanes stay open while C and D are both pending, and
// the graph collapses to one lane once B is emitted.
func TestLayoutBranchedHistory(t *testing.T) {
	t.Parallel()

	commits := []*git.Commit{
		commit("d", "b"),
		commit("c", "b"),
		commit("b", "a"),
		commit("a"),
	}
	nodes := Layout(commits)

	if nodes[0].Lane != 0 {
		t.Errorf("D lane = %d, want 0", nodes[0].Lane)
	}
	if nodes[1].Lane != 1 {
		t.Errorf("C lane = %d, want 1", nodes[1].Lane)
	}
	// B satisfies both pending expectations at once and takes the lowest.
	if nodes[2].Lane != 0 {
		t.Errorf("B lane = %d, want 0", nodes[2].Lane)
	}
	if nodes[3].Lane != 0 {
		t.Errorf("A lane = %d, want 0", nodes[3].Lane)
	}
	if got := Width(nodes); got != 2 {
		t.Errorf("Width = %d, want 2", got)
	}
}

func TestLayoutMergeCommitOpensLane(t *testing.T) {
	t.Parallel()

	// M merges F into the mainline: M -> [b, f], F -> [a], B -> [a], A root.
	commits := []*git.Commit{
		commit("m", "b", "f"),
		commit("f", "a"),
		commit("b", "a"),
		commit("a"),
	}
	nodes := Layout(commits)

	if nodes[0].Lane != 0 {
		t.Errorf("M lane = %d, want 0", nodes[0].Lane)
	}
	// The merge parent F was queued on its own lane with a fresh color.
	if nodes[1].Lane != 1 {
		t.Errorf("F lane = %d, want 1", nodes[1].Lane)
	}
	if nodes[1].Color == nodes[0].Color {
		t.Errorf("merge-parent lineage should get a fresh color")
	}
	if nodes[2].Lane != 0 {
		t.Errorf("B lane = %d, want 0", nodes[2].Lane)
	}
	// A is expected by both open lanes; it collapses them.
	if nodes[3].Lane != 0 {
		t.Errorf("A lane = %d, want 0", nodes[3].Lane)
	}
}

func TestLayoutDeterministic(t *testing.T) {
	t.Parallel()

	commits := []*git.Commit{
		commit("g", "e", "f"),
		commit("f", "d"),
		commit("e", "d"),
		commit("d", "b", "c"),
		commit("c", "a"),
		commit("b", "a"),
		commit("a"),
	}
	first := Layout(commits)
	second := Layout(commits)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("layout is not deterministic:\nfirst:  %#v\nsecond: %#v", first, second)
	}
}

func TestLayoutCompactsTrailingLanes(t *testing.T) {
	t.Parallel()

	// Three heads converge on one root; after the root is emitted the next
	// independent commit must land on lane 0, not on a historical lane.
	commits := []*git.Commit{
		commit("x", "r"),
		commit("y", "r"),
		commit("z", "r"),
		commit("r"),
		commit("w"),
	}
	nodes := Layout(commits)
	if nodes[3].Lane != 0 {
		t.Errorf("root lane = %d, want 0", nodes[3].Lane)
	}
	if nodes[4].Lane != 0 {
		t.Errorf("post-compaction lane = %d, want 0", nodes[4].Lane)
	}
}

func TestLayoutColorContinuityAcrossLaneShift(t *testing.T) {
	t.Parallel()

	// B's first parent A is already expected by C's lineage, so B's strand
	// continues on a new lane but keeps B's color.
	commits := []*git.Commit{
		commit("c", "a"),
		commit("b", "a"),
		commit("a"),
	}
	nodes := Layout(commits)
	if nodes[0].Lane != 0 || nodes[1].Lane != 1 {
		t.Fatalf("unexpected lanes: C=%d B=%d", nodes[0].Lane, nodes[1].Lane)
	}
	if nodes[1].Color == nodes[0].Color {
		t.Errorf("independent heads should not share a color")
	}
	// A is expected by both strands and collapses them onto the lowest lane.
	if nodes[2].Lane != 0 {
		t.Errorf("A lane = %d, want 0", nodes[2].Lane)
	}
}

func TestLayoutEmptyInput(t *testing.T) {
	t.Parallel()

	if nodes := Layout(nil); len(nodes) != 0 {
		t.Fatalf("expected no nodes, got %d", len(nodes))
	}
}
