package watch

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestWatchPathsPrefersGitDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	got := slices.Collect(watchPaths(root))
	want := []string{filepath.Join(root, ".git")}
	if !slices.Equal(got, want) {
		t.Errorf("watchPaths = %v, want %v", got, want)
	}
}

func TestWatchPathsFallsBackToRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	got := slices.Collect(watchPaths(root))
	if !slices.Equal(got, []string{root}) {
		t.Errorf("watchPaths = %v, want [%s]", got, root)
	}
}

func TestWatchPathsEmptyRoot(t *testing.T) {
	t.Parallel()

	if got := slices.Collect(watchPaths("")); len(got) != 0 {
		t.Errorf("watchPaths = %v, want none", got)
	}
	// Start on an empty root watches nothing but must not blow up.
	w := New("", func() {}, Options{})
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
}

func TestShouldIgnoreWatchPath(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"/repo/.git/index.lock":    true,
		"/repo/.git/HEAD.LOCK":     true,
		"/repo/.git/fsmonitor.ipc": true,
		"/repo/.git/HEAD":          false,
		"/repo/.git/refs/heads/x":  false,
	}
	for name, want := range cases {
		if got := shouldIgnoreWatchPath(name); got != want {
			t.Errorf("shouldIgnoreWatchPath(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w := New(root, func() {}, Options{})
	if w.Enabled() {
		t.Fatal("enabled before Start")
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !w.Enabled() {
		t.Fatal("not enabled after Start")
	}
	// Starting again is a no-op.
	if err := w.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	w.Stop()
	if w.Enabled() {
		t.Fatal("still enabled after Stop")
	}
	// A stopped watcher can be started again.
	if err := w.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	w.Stop()
}
