package git

import (
	"strings"
	"testing"
)

type fakeConflictRewriter struct {
	Rewriter

	paths map[string][2]string
}

func (f *fakeConflictRewriter) ConflictedPaths() ([]string, error) {
	var paths []string
	for p := range f.paths {
		paths = append(paths, p)
	}
	return paths, nil
}

func (f *fakeConflictRewriter) ConflictSides(path string) (string, string, error) {
	sides := f.paths[path]
	return sides[0], sides[1], nil
}

func TestBuildConflictReport(t *testing.T) {
	t.Parallel()

	d := &fakeConflictRewriter{paths: map[string][2]string{
		"a.txt": {"shared\nours\n", "shared\ntheirs\n"},
	}}
	commit := &Commit{
		Hash:    "abcdef1234567890abcdef1234567890abcdef12",
		Message: "change a.txt",
	}

	report, err := BuildConflictReport(d, commit, 2, "feature/x")
	if err != nil {
		t.Fatalf("BuildConflictReport: %v", err)
	}
	if len(report.Paths) != 1 || report.Paths[0] != "a.txt" {
		t.Fatalf("unexpected paths: %#v", report.Paths)
	}
	diff := report.Diffs["a.txt"]
	if !strings.Contains(diff, "-ours") || !strings.Contains(diff, "+theirs") {
		t.Fatalf("diff missing changed lines: %q", diff)
	}
	if !strings.Contains(diff, "ours/a.txt") || !strings.Contains(diff, "theirs/a.txt") {
		t.Fatalf("diff missing file labels: %q", diff)
	}

	rendered := report.Render()
	if !strings.Contains(rendered, "abcdef1") {
		t.Fatalf("render missing short hash: %q", rendered)
	}
	if !strings.Contains(rendered, "step 3") {
		t.Fatalf("render missing step index: %q", rendered)
	}
	if !strings.Contains(rendered, "feature/x") {
		t.Fatalf("render missing branch: %q", rendered)
	}
	if !strings.Contains(rendered, "conflict: a.txt") {
		t.Fatalf("render missing path: %q", rendered)
	}
}

func TestConflictReportRenderNoPaths(t *testing.T) {
	t.Parallel()

	report := &ConflictReport{
		Commit:    &Commit{Hash: "abcdef1234567890abcdef1234567890abcdef12"},
		StepIndex: 0,
	}
	rendered := report.Render()
	if !strings.Contains(rendered, "no conflicted paths") {
		t.Fatalf("unexpected render: %q", rendered)
	}
}
