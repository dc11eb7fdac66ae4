package utils

import (
	"path/filepath"
	"strings"
)

// IsWithin reports whether path is dir itself or lies beneath it.
// Both arguments are cleaned before comparison.
func IsWithin(path, dir string) bool {
	if dir == "" {
		return false
	}

	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// HasExtension reports whether path ends in one of exts (case-insensitive).
func HasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}

	return false
}

// ResolveUnder returns p as an absolute path, joining it onto root when relative.
func ResolveUnder(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}

	return filepath.Join(root, p)
}
