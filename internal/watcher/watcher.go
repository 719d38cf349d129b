// Package watcher keeps the stored proposal set in step with directories of approved
// proposals, using fsnotify with per-file debouncing and a coalesced corpus rebuild.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/internal/vectorize"
	"github.com/hyperjump/fypmatch/pkg/utils"
	"go.uber.org/zap"
)

const (
	defaultDebounce     = 400 * time.Millisecond
	defaultRebuildDelay = 2 * time.Second
)

// Sink applies file changes to storage and rebuilds the corpus.
// *vectorize.Vectorizer satisfies it.
type Sink interface {
	IngestFile(ctx context.Context, path string, status models.ProposalStatus) (bool, error)
	RemoveFile(ctx context.Context, path string) error
	Prune(ctx context.Context) (int, error)
	Rebuild(ctx context.Context) (vectorize.Stats, error)
}

// Watcher watches directories of approved proposals.
type Watcher struct {
	roots        []string
	extensions   []string
	recursive    bool
	sink         Sink
	debounce     time.Duration
	rebuildDelay time.Duration
	logger       *zap.Logger

	mu          sync.Mutex
	ctx         context.Context
	watcher     *fsnotify.Watcher
	debounceMap map[string]*time.Timer
	rebuild     *time.Timer
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDelays overrides the per-file debounce and the rebuild coalescing delay.
func WithDelays(debounce, rebuild time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = debounce
		w.rebuildDelay = rebuild
	}
}

// New creates a watcher over roots. extensions filter which files are ingested (empty = all).
func New(roots, extensions []string, recursive bool, sink Sink, opts ...Option) *Watcher {
	w := &Watcher{
		roots:        cleanRoots(roots),
		extensions:   extensions,
		recursive:    recursive,
		sink:         sink,
		debounce:     defaultDebounce,
		rebuildDelay: defaultRebuildDelay,
		debounceMap:  make(map[string]*time.Timer),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = utils.LoggerOrNop(w.logger)
	return w
}

func cleanRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			r = abs
		}
		out = append(out, filepath.Clean(r))
	}
	return out
}

// Directories returns the watched root directories.
func (w *Watcher) Directories() []string {
	return append([]string(nil), w.roots...)
}

// Start begins watching. Missing roots are created. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range w.roots {
		if err := w.addRoot(fw, root); err != nil {
			_ = fw.Close()
			return err
		}
	}
	w.watcher = fw
	w.ctx = ctx
	w.started = true
	w.logger.Info("watcher started",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) addRoot(fw *fsnotify.Watcher, root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	if !w.recursive {
		return fw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if ev.Has(fsnotify.Create) && w.recursive {
				w.handleNewDirectory(fw, path)
			}
			return
		}
		if matchExtension(path, w.extensions) {
			w.debounceIngest(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelDebounce(path)
		if !matchExtension(path, w.extensions) {
			return
		}
		if err := w.sink.RemoveFile(w.context(), path); err != nil {
			w.logger.Warn("watcher remove failed", zap.String("path", path), zap.Error(err))
			return
		}
		w.scheduleRebuild()
	}
}

// handleNewDirectory watches a directory created under a root and ingests what it already holds.
func (w *Watcher) handleNewDirectory(fw *fsnotify.Watcher, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fw.Add(path); err != nil {
				w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		if matchExtension(path, w.extensions) {
			w.debounceIngest(path)
		}
		return nil
	})
}

func (w *Watcher) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

func (w *Watcher) underRoot(path string) bool {
	for _, root := range w.roots {
		if root == path || inDir(root, path) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceIngest(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		changed, err := w.sink.IngestFile(w.context(), path, models.StatusApproved)
		if err != nil {
			w.logger.Warn("watcher ingest failed", zap.String("path", path), zap.Error(err))
			return
		}
		if changed {
			w.scheduleRebuild()
		}
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// scheduleRebuild coalesces bursts of changes into one corpus rebuild.
func (w *Watcher) scheduleRebuild() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.rebuild != nil {
		w.rebuild.Stop()
	}
	w.rebuild = time.AfterFunc(w.rebuildDelay, func() {
		if _, err := w.sink.Rebuild(w.context()); err != nil {
			w.logger.Error("watcher corpus rebuild failed", zap.Error(err))
		}
	})
}

// Sync ingests every matching file already present under the roots, drops proposals
// whose files are gone and rebuilds the corpus once if anything changed.
// It returns the number of files written.
func (w *Watcher) Sync(ctx context.Context) (int, error) {
	n := 0
	for _, root := range w.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && !w.recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if !matchExtension(path, w.extensions) {
				return nil
			}
			changed, err := w.sink.IngestFile(ctx, path, models.StatusApproved)
			if err != nil {
				w.logger.Warn("watcher sync ingest failed", zap.String("path", path), zap.Error(err))
				return nil
			}
			if changed {
				n++
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return n, err
		}
	}
	pruned, err := w.sink.Prune(ctx)
	if err != nil {
		return n, err
	}
	if n > 0 || pruned > 0 {
		if _, err := w.sink.Rebuild(ctx); err != nil {
			return n, err
		}
	}
	w.logger.Info("watcher sync complete", zap.Int("ingested", n), zap.Int("pruned", pruned))
	return n, nil
}

// Stop stops the watcher and cancels pending work.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	if w.rebuild != nil {
		w.rebuild.Stop()
		w.rebuild = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
