package proofreader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/l10nkit/tree"
)

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Root is the l10n root; the watcher covers <Root>/<Locale>.
	Root   string
	Locale string

	// DebounceDelay is how long changes accumulate before they are audited.
	DebounceDelay time.Duration

	Logger *slog.Logger
}

// WatchOperation is the kind of change behind a WatchEvent.
type WatchOperation string

const (
	OpCreate WatchOperation = "create"
	OpModify WatchOperation = "modify"
	OpDelete WatchOperation = "delete"
)

// WatchEvent carries the re-audit of one changed file.
type WatchEvent struct {
	// Path is relative to the locale directory, slash separated.
	Path      string
	Operation WatchOperation
	// Report is nil for deletions and failed audits.
	Report *FileReport
	Err    error
}

// Watcher re-audits auditable files under a locale tree as they change.
// Audits run one at a time on the watcher's goroutine.
type Watcher struct {
	config  WatcherConfig
	dir     string
	proof   *Proofreader
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op // path → most recent operation

	// Content hashes of audited files, so a touch without a change does not
	// produce an event.
	hashes map[string]string

	events chan WatchEvent
}

// NewWatcher creates a watcher that audits with p.
func NewWatcher(p *Proofreader, config WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = p.logger
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = 200 * time.Millisecond
	}

	return &Watcher{
		config:  config,
		dir:     filepath.Join(config.Root, config.Locale),
		proof:   p,
		watcher: fsw,
		logger:  logger,
		pending: make(map[string]fsnotify.Op),
		hashes:  make(map[string]string),
		events:  make(chan WatchEvent, 100),
	}, nil
}

// Events returns the channel of re-audit results.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Start adds watches for every directory of the locale tree and begins
// processing changes until ctx is done. The events channel is closed when
// processing stops.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addWatchesRecursive(w.dir); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Watching for changes",
		"root", w.dir,
		"debounce", w.config.DebounceDelay)
	return nil
}

// Stop releases the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// Prime records the current content of every auditable file so the first
// change to each is reported as a modification.
func (w *Watcher) Prime() error {
	return w.proof.walker.Walk(w.dir, func(e tree.Entry) error {
		if !w.proof.registry.IsAuditable(e.Path) {
			return nil
		}
		if h, err := hashFile(e.Path); err == nil {
			w.hashes[e.Rel] = h
		}
		return nil
	})
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.excluded(path) {
			return filepath.SkipDir
		}
		w.addWatch(path)
		return nil
	})
}

func (w *Watcher) addWatch(path string) {
	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		return
	}
	w.logger.Debug("Watching directory", "path", path)
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) excluded(path string) bool {
	rel := w.rel(path)
	return rel != "." && w.proof.walker.Filter.Excluded(rel)
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name
	if w.excluded(path) {
		return
	}

	if !w.proof.registry.IsAuditable(path) {
		// New directories need their own watch.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.addWatch(path)
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("File change detected", "path", w.rel(path), "op", event.Op.String())
}

func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	paths := make([]string, 0, len(toProcess))
	for p := range toProcess {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		rel := w.rel(path)
		event := WatchEvent{Path: rel}

		// Existence decides: a rename or remove followed by a re-create
		// within one debounce window is an update.
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			delete(w.hashes, rel)
			event.Operation = OpDelete
			w.sendEvent(event)
			continue
		}

		hash, err := hashFile(path)
		if err != nil {
			event.Err = err
			w.sendEvent(event)
			continue
		}
		old, known := w.hashes[rel]
		if known && old == hash {
			continue
		}
		w.hashes[rel] = hash

		event.Operation = OpModify
		if !known {
			event.Operation = OpCreate
		}
		event.Report, event.Err = w.proof.AuditFile(path, w.config.Locale)
		w.sendEvent(event)
	}
}

func (w *Watcher) sendEvent(event WatchEvent) {
	select {
	case w.events <- event:
		w.logger.Debug("Sent watch event", "path", event.Path, "op", event.Operation)
	default:
		w.logger.Warn("Event channel full, dropping event", "path", event.Path)
	}
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
