// Package security validates filesystem paths derived from request input.
// The monitor's analyze endpoint accepts frame paths from clients and must
// keep them inside the configured frames directory.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory reports an error when path does not resolve to
// a location inside root. Symlinks are resolved on both sides first, so a
// link planted inside root cannot reach files outside it. The path itself
// does not need to exist yet.
func ValidatePathWithinDirectory(path, root string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	canonRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return fmt.Errorf("resolve root symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonRoot, resolveExisting(absPath))
	if err != nil {
		return fmt.Errorf("path outside root: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path %q escapes directory %q", path, root)
	}
	return nil
}

// resolveExisting resolves symlinks in the longest existing prefix of abs and
// rejoins the rest, so that containment holds for files that are still to be
// created under a symlinked parent.
func resolveExisting(abs string) string {
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, err := filepath.Rel(dir, abs)
			if err != nil {
				return abs
			}
			return filepath.Join(resolved, rel)
		}
		if dir == filepath.Dir(dir) {
			return abs
		}
	}
}

// SanitizeFilename reduces an arbitrary identifier to a name safe to embed
// in output file paths. Runs of characters outside [A-Za-z0-9._-] collapse
// to a single underscore, the result is capped at 128 characters, and a name
// with nothing left becomes "unknown".
func SanitizeFilename(s string) string {
	const maxLen = 128

	out := make([]rune, 0, len(s))
	pendingGap := false
	for _, r := range s {
		if len(out) >= maxLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			out = append(out, r)
			pendingGap = false
		default:
			if !pendingGap {
				out = append(out, '_')
				pendingGap = true
			}
		}
	}

	name := strings.Trim(string(out), "._")
	if name == "" {
		return "unknown"
	}
	return name
}
