package git

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ConflictReport carries everything the operator needs to resolve a paused
// rewrite by hand: which commit, which step, which branch, and the diff
// between the two sides of every conflicted path.
type ConflictReport struct {
	Commit    *Commit
	StepIndex int
	Branch    string
	Paths     []string
	Diffs     map[string]string
}

// BuildConflictReport collects the conflicted paths from the driver and
// renders an ours/theirs unified diff per path. Diff failures for individual
// paths degrade to an empty diff; the path list itself is authoritative.
func BuildConflictReport(d Rewriter, commit *Commit, stepIndex int, branch string) (*ConflictReport, error) {
	paths, err := d.ConflictedPaths()
	if err != nil {
		return nil, fmt.Errorf("list conflicted paths: %w", err)
	}
	report := &ConflictReport{
		Commit:    commit,
		StepIndex: stepIndex,
		Branch:    branch,
		Paths:     paths,
		Diffs:     make(map[string]string, len(paths)),
	}
	for _, path := range paths {
		ours, theirs, err := d.ConflictSides(path)
		if err != nil {
			continue
		}
		diff, err := unifiedConflictDiff(path, ours, theirs)
		if err != nil {
			continue
		}
		report.Diffs[path] = diff
	}
	return report, nil
}

func unifiedConflictDiff(path, ours, theirs string) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(ours),
		B:        difflib.SplitLines(theirs),
		FromFile: "ours/" + path,
		ToFile:   "theirs/" + path,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(ud)
}

// Render formats the report for display or logging.
func (r *ConflictReport) Render() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "conflict while applying %s (step %d)", r.Commit.ShortHash(), r.StepIndex+1)
	if r.Branch != "" {
		fmt.Fprintf(&b, " on %s", r.Branch)
	}
	b.WriteByte('\n')
	if summary := r.Commit.Summary(); summary != "" {
		fmt.Fprintf(&b, "  %s\n", summary)
	}
	if len(r.Paths) == 0 {
		b.WriteString("no conflicted paths reported\n")
		return b.String()
	}
	for _, path := range r.Paths {
		fmt.Fprintf(&b, "conflict: %s\n", path)
		if diff := r.Diffs[path]; diff != "" {
			for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
	}
	return b.String()
}
