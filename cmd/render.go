package cmd

import (
	"fmt"
	"strings"

	"github.com/mvisser/gitdeck/internal/graph"
)

// renderGraph draws the laid-out window as text: one row per commit, a '*'
// on the commit's lane, '|' on lanes passing through, then hash, date,
// decorations and the message summary.
func renderGraph(nodes []graph.Node, labels map[string][]string) string {
	width := graph.Width(nodes)
	var b strings.Builder
	for _, n := range nodes {
		cols := n.Columns
		if n.Lane+1 > cols {
			cols = n.Lane + 1
		}
		for i := range width {
			switch {
			case i == n.Lane:
				b.WriteByte('*')
			case i < cols:
				b.WriteByte('|')
			default:
				b.WriteByte(' ')
			}
			b.WriteByte(' ')
		}
		commit := n.Commit
		fmt.Fprintf(&b, " %s", commit.ShortHash())
		if !commit.Committer.When.IsZero() {
			fmt.Fprintf(&b, "  %s", commit.Committer.When.Format("2006-01-02 15:04"))
		}
		if decorations := labels[commit.Hash]; len(decorations) > 0 {
			fmt.Fprintf(&b, "  (%s)", strings.Join(decorations, ", "))
		}
		if summary := commit.Summary(); summary != "" {
			fmt.Fprintf(&b, "  %s", summary)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
