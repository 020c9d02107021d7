package graph

import (
	"github.com/mvisser/gitdeck/internal/git"
)

// Node is one laid-out row of the commit graph. Layout never mutates the
// commits it is given; annotations live here.
type Node struct {
	Commit *git.Commit
	Lane   int
	Color  string
	// Columns is the number of lanes still open after this row, for renderers
	// that draw the pass-through lines.
	Columns int
}

// Layout walks an ordered commit list (newest first, children before their
// ancestors) and assigns each commit a lane and color by simulating DAG
// occupancy. The ordering is a documented precondition: lanes are undefined
// when a commit appears after one of its own ancestors.
//
// The pass is deterministic and idempotent: the same input always yields the
// same lanes and colors.
func Layout(commits []*git.Commit) []Node {
	st := newLayoutState()
	nodes := make([]Node, 0, len(commits))
	for _, c := range commits {
		lane := st.takeLane(c.Hash)
		color := st.colorFor(lane)
		st.registerParents(lane, color, c.ParentHashes)
		st.compact()
		nodes = append(nodes, Node{Commit: c, Lane: lane, Color: color, Columns: len(st.lanes)})
	}
	return nodes
}

// Width returns the number of lanes the laid-out rows span.
func Width(nodes []Node) int {
	max := 0
	for _, n := range nodes {
		if n.Lane+1 > max {
			max = n.Lane + 1
		}
	}
	return max
}

type layoutState struct {
	// lanes[i] holds the hash the lane is waiting for, or "" when free.
	lanes []string
	// colors[i] is the color bound to lane i while it is allocated.
	colors []string
	// expected maps a hash to every lane index waiting for it. A merge
	// commit can be expected in several lanes at once.
	expected map[string][]int
}

func newLayoutState() *layoutState {
	return &layoutState{expected: make(map[string][]int)}
}

// takeLane picks the lane for a commit: the lowest lane expecting its hash,
// or the lowest free lane when nothing expects it. Every lane expecting the
// hash is released, since one emitted commit satisfies all of them.
func (st *layoutState) takeLane(hash string) int {
	if waiting, ok := st.expected[hash]; ok && len(waiting) > 0 {
		lane := waiting[0]
		for _, idx := range waiting {
			if idx < lane {
				lane = idx
			}
			st.lanes[idx] = ""
		}
		delete(st.expected, hash)
		return lane
	}
	return st.freeLane()
}

func (st *layoutState) freeLane() int {
	for i, h := range st.lanes {
		if h == "" {
			return i
		}
	}
	st.lanes = append(st.lanes, "")
	st.colors = append(st.colors, "")
	return len(st.lanes) - 1
}

func (st *layoutState) colorFor(lane int) string {
	if st.colors[lane] != "" {
		return st.colors[lane]
	}
	color := paletteColor(lane)
	st.colors[lane] = color
	return color
}

func (st *layoutState) occupy(lane int, hash, color string) {
	st.lanes[lane] = hash
	st.colors[lane] = color
	st.expected[hash] = append(st.expected[hash], lane)
}

// registerParents queues where this commit's parents should appear. The
// first parent keeps the commit's lane and color when possible so a line of
// development reads as one continuous strand; merge parents open new lanes
// with fresh palette colors unless some lane already waits for them.
func (st *layoutState) registerParents(lane int, color string, parents []string) {
	if len(parents) == 0 {
		return
	}
	first := parents[0]
	if st.lanes[lane] == "" && len(st.expected[first]) == 0 {
		st.occupy(lane, first, color)
	} else {
		// Same color on a new lane: still the same line of development.
		st.occupy(st.freeLane(), first, color)
	}
	for _, parent := range parents[1:] {
		if len(st.expected[parent]) > 0 {
			continue
		}
		idx := st.freeLane()
		st.occupy(idx, parent, paletteColor(idx))
	}
}

// compact pops trailing free lanes so the drawn width tracks the maximum
// concurrent lineage count instead of the historical maximum.
func (st *layoutState) compact() {
	for len(st.lanes) > 0 && st.lanes[len(st.lanes)-1] == "" {
		st.lanes = st.lanes[:len(st.lanes)-1]
		st.colors = st.colors[:len(st.colors)-1]
	}
}
