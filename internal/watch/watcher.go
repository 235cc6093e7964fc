// Package watch reports edits to grammar files.
//
// Editors often save by writing a temporary file and renaming it over the
// original, so the watcher observes each file's parent directory and filters
// events by name. Bursts of events are coalesced into one Change after a
// quiet period.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before a Change is emitted.
const DefaultDebounce = 200 * time.Millisecond

var (
	// ErrWatcherFailed indicates the filesystem watcher failed to initialize
	ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

	// ErrNoFiles indicates nothing was given to watch
	ErrNoFiles = errors.New("no files to watch")
)

// Change is a batch of edits to watched files.
type Change struct {
	// Paths lists the edited files, sorted and absolute.
	Paths []string

	// Timestamp is when the batch was emitted.
	Timestamp time.Time
}

// Watcher watches a fixed set of files.
type Watcher struct {
	files    map[string]struct{}
	dirs     []string
	watcher  *fsnotify.Watcher
	changes  chan Change
	stop     chan struct{}
	done     chan struct{}
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher for paths. The files need not exist yet but their
// directories must.
func New(paths []string, opts ...Option) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	w := &Watcher{
		files:    make(map[string]struct{}, len(paths)),
		changes:  make(chan Change, 4),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		w.files[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	w.watcher = watcher
	return w, nil
}

// Start begins watching in a background goroutine. Changes are delivered on
// Changes() until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return errors.New("watcher already started")
	}
	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	w.started = true
	go w.processEvents(ctx)
	w.logger.Debug("watching grammar files", zap.Int("files", len(w.files)), zap.Strings("dirs", w.dirs))
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit. The Changes
// channel is closed once the goroutine is gone. Stop is idempotent.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.done
	}
}

// Changes returns the channel of coalesced edits.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	defer close(w.changes)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			pending[filepath.Clean(event.Name)] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			change := Change{Paths: drain(pending), Timestamp: time.Now()}
			w.logger.Debug("grammar files changed", zap.Strings("paths", change.Paths))
			select {
			case w.changes <- change:
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	_, ok := w.files[filepath.Clean(event.Name)]
	return ok
}

func drain(pending map[string]struct{}) []string {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	clear(pending)
	slices.Sort(paths)
	return paths
}
