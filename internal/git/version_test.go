package git

import "testing"

func TestParseGitVersionOutput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want gitVersion
		ok   bool
	}{
		{"git version 2.44.0", gitVersion{2, 44, 0}, true},
		{"git version 2.39.3 (Apple Git-146)", gitVersion{2, 39, 3}, true},
		{"git version 2.39.3.windows.1", gitVersion{2, 39, 3}, true},
		{"git version 2.23", gitVersion{2, 23, 0}, true},
		{"", gitVersion{}, false},
		{"git version", gitVersion{}, false},
		{"not a version", gitVersion{}, false},
	}
	for _, tc := range cases {
		got, ok := parseGitVersionOutput(tc.in)
		if ok != tc.ok {
			t.Errorf("parseGitVersionOutput(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("parseGitVersionOutput(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestGitVersionLess(t *testing.T) {
	t.Parallel()

	if (gitVersion{2, 44, 0}).less(gitVersion{2, 23, 0}) {
		t.Error("2.44.0 should not be less than 2.23.0")
	}
	if !(gitVersion{2, 22, 9}).less(gitVersion{2, 23, 0}) {
		t.Error("2.22.9 should be less than 2.23.0")
	}
	if (gitVersion{2, 23, 0}).less(gitVersion{2, 23, 0}) {
		t.Error("equal versions should not compare less")
	}
}
