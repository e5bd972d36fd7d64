package boxfs

import (
	"fmt"
	"strings"

	"github.com/feuerwagen/go-boxfs/errors"
)

const separator = "/"

// splitPath splits p into its non-empty segments.
// Empty and "." segments are dropped, so leading, trailing and doubled separators are harmless.
func splitPath(p string) (parts []string, err error) {
	for _, s := range strings.Split(p, separator) {
		if s == ".." {
			return nil, errors.Wrap(errors.ErrInvalidPath, fmt.Sprintf("relative path components are not allowed: %q", p), nil)
		}
		if s == "" || s == "." {
			continue
		}
		parts = append(parts, s)
	}
	return parts, nil
}

// joinPath builds the normalized form of the given segments: "/" for none, "/a/b" otherwise.
func joinPath(parts ...string) string {
	return separator + strings.Join(parts, separator)
}

// normalizePath returns p in normalized form.
func normalizePath(p string) (string, error) {
	parts, err := splitPath(p)
	if err != nil {
		return "", err
	}
	return joinPath(parts...), nil
}

// parentAndLeaf splits a normalized path into its parent folder and final segment.
// The parent of a top-level item is the root separator.
func parentAndLeaf(p string) (parent, leaf string) {
	i := strings.LastIndex(p, separator)
	if i < 0 {
		return separator, p
	}
	parent, leaf = p[:i], p[i+1:]
	if parent == "" {
		parent = separator
	}
	return parent, leaf
}

func basename(p string) string {
	_, leaf := parentAndLeaf(strings.TrimRight(p, separator))
	return leaf
}

// prefixer maps caller paths into the index key space by prepending a fixed root.
type prefixer struct {
	prefix []string
}

func newPrefixer(prefix string) (prefixer, error) {
	parts, err := splitPath(prefix)
	if err != nil {
		return prefixer{}, err
	}
	return prefixer{prefix: parts}, nil
}

// root is the normalized path of the prefix itself.
func (p prefixer) root() string {
	return joinPath(p.prefix...)
}

func (p prefixer) prefixPath(path string) (string, error) {
	parts, err := splitPath(path)
	if err != nil {
		return "", err
	}
	return joinPath(append(append([]string{}, p.prefix...), parts...)...), nil
}

// stripPrefix turns a normalized, prefixed path back into a caller-relative path without
// a leading separator, as reported in listings.
func (p prefixer) stripPrefix(path string) string {
	rel := strings.TrimPrefix(path, p.root())
	return strings.Trim(rel, separator)
}
