// Package paths normalizes filesystem paths to database-root-relative form
// and back. The index stores only root-relative paths, so a corpus can be
// relocated by moving the root directory.
package paths

import (
	"path/filepath"
	"strings"

	xerrors "github.com/xapers/xapers/internal/errors"
)

// Relative resolves path to its canonical root-relative form.
//
// A relative path is cleaned and returned as-is. An absolute path must have
// root as a strict prefix; the remainder after the root is returned. An
// absolute path outside root fails with an illegal-import-path error.
//
// The canonical form never carries a leading separator, so the relative and
// absolute spellings of the same file resolve identically.
func Relative(root, path string) (string, error) {
	if path == "" {
		return "", xerrors.IllegalImportPath(path)
	}

	if !filepath.IsAbs(path) {
		rel := filepath.Clean(path)
		if rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
			return "", xerrors.IllegalImportPath(path)
		}
		return rel, nil
	}

	root = filepath.Clean(root)
	abs := filepath.Clean(path)
	sep := string(filepath.Separator)

	// a root of "/" already ends in the separator
	prefix := root + sep
	if strings.HasSuffix(root, sep) {
		prefix = root
	}
	if abs == root || !strings.HasPrefix(abs, prefix) {
		return "", xerrors.IllegalImportPath(path)
	}
	return strings.TrimPrefix(abs[len(root):], sep), nil
}

// Full joins a root-relative path back to an absolute path for file access.
func Full(root, rel string) string {
	return filepath.Join(root, strings.TrimPrefix(rel, string(filepath.Separator)))
}
