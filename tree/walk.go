// Package tree walks resource trees and mirrors files into output trees.
package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExclude lists the version-control and OS metadata entries that are
// never converted, copied or audited.
var DefaultExclude = []string{
	"**/.git",
	"**/.hg",
	"**/.svn",
	"**/.DS_Store",
}

// Filter selects the entries of a tree. Patterns use doublestar syntax and
// are matched against slash-separated paths relative to the walk root.
type Filter struct {
	// Exclude drops any file or directory matching one of the patterns.
	Exclude []string
	// Include restricts the walk to top-level directories whose name matches
	// one of the patterns. Empty means everything.
	Include []string
}

// Validate checks every pattern.
func (f Filter) Validate() error {
	for _, p := range f.Exclude {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	for _, p := range f.Include {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid include pattern %q", p)
		}
	}
	return nil
}

// Excluded reports whether rel matches an exclude pattern.
func (f Filter) Excluded(rel string) bool {
	for _, p := range f.Exclude {
		if doublestar.MatchUnvalidated(p, rel) {
			return true
		}
	}
	return false
}

// Included reports whether rel lies under an included top-level directory.
// Files directly under the root belong to no product and are only included
// when Include is empty.
func (f Filter) Included(rel string) bool {
	if len(f.Include) == 0 {
		return true
	}
	top, _, nested := strings.Cut(rel, "/")
	if !nested {
		return false
	}
	for _, p := range f.Include {
		if doublestar.MatchUnvalidated(p, top) {
			return true
		}
	}
	return false
}

// includesDir is Included for a directory path: a top-level directory is
// kept when its own name matches.
func (f Filter) includesDir(rel string) bool {
	if len(f.Include) == 0 || strings.Contains(rel, "/") {
		return true
	}
	return f.Included(rel + "/")
}

// Entry is a regular file found by Walk.
type Entry struct {
	// Path is the file path as seen from the caller (root joined with Rel).
	Path string
	// Rel is the slash-separated path relative to the walk root.
	Rel  string
	Info fs.FileInfo
}

// Walker visits the regular files of a tree in lexical order.
type Walker struct {
	Filter Filter
	Logger *slog.Logger
}

// Walk calls fn for every regular file under root that passes the filter.
// Unreadable subdirectories are logged and skipped; an error from fn stops
// the walk and is returned.
func (w *Walker) Walk(root string, fn func(Entry) error) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("Skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if w.Filter.Excluded(rel) {
				logger.Debug("Directory skipped", "path", path)
				return filepath.SkipDir
			}
			if !w.Filter.includesDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if w.Filter.Excluded(rel) || !w.Filter.Included(rel) {
			return nil
		}

		// Symlinks count when they point at a regular file.
		fi, err := os.Stat(path)
		if err != nil {
			logger.Warn("Skipping unreadable file", "path", path, "error", err)
			return nil
		}
		if !fi.Mode().IsRegular() {
			return nil
		}

		return fn(Entry{Path: path, Rel: rel, Info: fi})
	})
}

// Recreate removes dir and everything below it, then creates it empty.
func Recreate(dir string) error {
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
