// Package resolver maps request targets onto files below a document root.
package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/searchktools/fast-static/core/http"
)

// IndexFile is served for directory targets
const IndexFile = "index.html"

// encoded dot-dot spellings rejected before touching the filesystem
var encodedTraversal = []string{"%2e%2e", "%2e.", ".%2e"}

// Resolver confines targets to a canonical document root
type Resolver struct {
	root string
}

// New returns a resolver for root, which must already be canonical
// (absolute, symlinks resolved) and name a directory.
func New(root string) *Resolver {
	return &Resolver{root: root}
}

// Resolve returns the canonical path of the regular file target names.
// Errors wrap http.ErrBadRequest, http.ErrForbidden, http.ErrNotFound or
// http.ErrInternal.
func (r *Resolver) Resolve(target string) (string, error) {
	if !strings.HasPrefix(target, "/") {
		return "", fmt.Errorf("%w: target %q is not absolute", http.ErrBadRequest, target)
	}

	p := StripQuery(target)
	if p == "" {
		return "", fmt.Errorf("%w: empty path", http.ErrBadRequest)
	}

	if ContainsTraversal(p) {
		return "", fmt.Errorf("%w: traversal in %q", http.ErrForbidden, p)
	}

	if strings.HasSuffix(p, "/") {
		p += IndexFile
	}

	canonical, err := filepath.EvalSymlinks(r.root + filepath.FromSlash(p))
	if err != nil {
		return "", Classify(err)
	}
	if !Within(r.root, canonical) {
		return "", fmt.Errorf("%w: %q escapes the document root", http.ErrForbidden, target)
	}

	fi, err := os.Stat(canonical)
	if err != nil {
		return "", Classify(err)
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q is not a regular file", http.ErrForbidden, target)
	}

	return canonical, nil
}

// StripQuery drops the query string and fragment from target
func StripQuery(target string) string {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		return target[:i]
	}
	return target
}

// ContainsTraversal reports whether p looks like a traversal attempt
func ContainsTraversal(p string) bool {
	if strings.ContainsRune(p, '\\') {
		return true
	}
	if p == "/.." || strings.Contains(p, "/../") || strings.HasSuffix(p, "/..") {
		return true
	}
	lower := strings.ToLower(p)
	for _, enc := range encodedTraversal {
		if strings.Contains(lower, enc) {
			return true
		}
	}
	return false
}

// Within reports whether path equals root or lies below it
func Within(root, path string) bool {
	if !strings.HasPrefix(path, root) {
		return false
	}
	if len(path) == len(root) || strings.HasSuffix(root, string(filepath.Separator)) {
		return true
	}
	return path[len(root)] == filepath.Separator
}

// Classify maps a filesystem error onto a request failure
func Classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%w: %v", http.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", http.ErrForbidden, err)
	default:
		return fmt.Errorf("%w: %v", http.ErrInternal, err)
	}
}
