package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/logging"
)

// DefaultDebounce groups editor save bursts into one signal.
const DefaultDebounce = 250 * time.Millisecond

// ErrNoPaths is returned when there is nothing to watch.
var ErrNoPaths = errors.New("no nginx configuration paths to watch")

// Watcher monitors nginx configuration directories for changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	files     map[string]struct{}
	roots     []string
	delay     time.Duration
	logger    *slog.Logger
	events    chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
	debounce  *time.Timer
	mu        sync.Mutex
	closed    bool
}

// New watches the directories containing files. A non-positive delay uses
// DefaultDebounce.
func New(files []string, delay time.Duration, logger *slog.Logger) (*Watcher, error) {
	if len(files) == 0 {
		return nil, ErrNoPaths
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsw,
		files:     make(map[string]struct{}, len(files)),
		delay:     delay,
		logger:    logging.NewComponentLogger(logger, "watch"),
		events:    make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}

	roots := make(map[string]struct{}, len(files))
	for _, file := range files {
		clean := filepath.Clean(file)
		w.files[clean] = struct{}{}
		roots[filepath.Dir(clean)] = struct{}{}
	}
	for root := range roots {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
		w.roots = append(w.roots, root)
	}

	go w.run()
	return w, nil
}

// addRecursive adds a directory and all its subdirectories to the watcher.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Relevant reports whether a change to name can alter the parsed config:
// any path under a watched root except hidden entries and editor temp files.
// Include targets such as sites-enabled/example.com carry no fixed extension.
func (w *Watcher) Relevant(name string) bool {
	clean := filepath.Clean(name)
	if _, ok := w.files[clean]; ok {
		return true
	}
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, clean)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			if strings.HasPrefix(part, ".") {
				return false
			}
		}
		return !isEditorTemp(filepath.Base(clean))
	}
	return false
}

func isEditorTemp(base string) bool {
	switch {
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"),
		base == "4913":
		return true
	}
	return false
}

// run processes file system events.
func (w *Watcher) run() {
	defer func() {
		w.mu.Lock()
		w.closed = true
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.mu.Unlock()
		close(w.events)
	}()

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			// Watch newly created directories (recursively in case of mkdir -p).
			// The create itself signals, covering files written before the add.
			newDir := false
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
					newDir = !strings.HasPrefix(filepath.Base(event.Name), ".")
				}
			}
			if !newDir && !w.Relevant(event.Name) {
				continue
			}
			w.logger.Debug("nginx config changed",
				logging.String("path", event.Name),
				logging.String("op", event.Op.String()),
			)

			w.mu.Lock()
			if w.debounce != nil {
				w.debounce.Stop()
			}
			w.debounce = time.AfterFunc(w.delay, func() {
				w.mu.Lock()
				defer w.mu.Unlock()

				if w.closed {
					return
				}

				select {
				case w.events <- struct{}{}:
				default:
				}
			})
			w.mu.Unlock()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watch error", logging.Error(err))
		}
	}
}

// Events returns a channel that signals when the configuration changed.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Stop shuts down the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.fsWatcher.Close()
	})
}

// Handler reacts to one debounced change.
type Handler func(ctx context.Context) error

// Run calls handler for every change signal until ctx ends or the watcher
// stops. Handler errors are logged and do not stop the loop.
func Run(ctx context.Context, w *Watcher, handler Handler) error {
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Events():
			if !ok {
				return nil
			}
			if err := handler(ctx); err != nil {
				logging.WarnWithContext(w.logger, "config change handler failed", "watch_handler_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "status rows may be stale until the next change or TTL"),
				)
			}
		}
	}
}
