package git

import (
	"fmt"
	"strings"
)

// Ref and commit-id strings are eventually handed to an external git process,
// so they are screened against a restrictive allow-list before any driver
// call. Validation happens in the engine packages, not in the drivers.

const refAllowedExtra = "/._-@"

// ValidateRef rejects names that could be misread as options, traverse refs,
// or smuggle shell/git metacharacters. It accepts branch names, tag names,
// full ref paths, HEAD, and plain commit hashes.
func ValidateRef(name string) error {
	if name == "" {
		return fmt.Errorf("empty ref name")
	}
	if len(name) > 255 {
		return fmt.Errorf("ref name too long: %d bytes", len(name))
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("ref name %q starts with '-'", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("ref name %q contains '..'", name)
	}
	if strings.Contains(name, "@{") {
		return fmt.Errorf("ref name %q contains '@{'", name)
	}
	if strings.HasSuffix(name, "/") || strings.HasSuffix(name, ".lock") {
		return fmt.Errorf("ref name %q has a forbidden suffix", name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case strings.ContainsRune(refAllowedExtra, r):
		default:
			return fmt.Errorf("ref name %q contains forbidden character %q", name, r)
		}
	}
	return nil
}

// ValidateCommitHash accepts abbreviated or full hex object ids.
func ValidateCommitHash(hash string) error {
	if len(hash) < 4 || len(hash) > 64 {
		return fmt.Errorf("commit id %q has invalid length", hash)
	}
	for _, r := range hash {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return fmt.Errorf("commit id %q contains non-hex character %q", hash, r)
		}
	}
	return nil
}
