package dialect

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupported is returned for files whose extension maps to no dialect.
var ErrUnsupported = errors.New("unsupported dialect")

// Registry maps file extensions to dialects.
type Registry struct {
	mu       sync.RWMutex
	dialects map[string]*Dialect // keyed by lower-case extension
}

// DefaultRegistry holds the builtin dialects.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a registry with the builtin dialects.
func NewRegistry() *Registry {
	r := &Registry{
		dialects: make(map[string]*Dialect),
	}
	for _, d := range Builtin() {
		r.Register(d)
	}
	return r
}

// Register adds a dialect under each of its extensions, replacing any
// previous registration.
func (r *Registry) Register(d *Dialect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range d.Extensions {
		r.dialects[strings.ToLower(ext)] = d
	}
}

// ForExtension returns the dialect for ext (with its leading dot).
func (r *Registry) ForExtension(ext string) (*Dialect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.dialects[strings.ToLower(ext)]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
}

// ForPath returns the dialect for a file based on its extension.
func (r *Registry) ForPath(path string) (*Dialect, error) {
	return r.ForExtension(filepath.Ext(path))
}

// IsText reports whether path has a registered dialect extension.
func (r *Registry) IsText(path string) bool {
	_, err := r.ForPath(path)
	return err == nil
}

// IsAuditable reports whether path belongs to a dialect the proofreader checks.
func (r *Registry) IsAuditable(path string) bool {
	d, err := r.ForPath(path)
	return err == nil && d.Auditable
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.dialects))
	for ext := range r.dialects {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
