package monitoring

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// ArtifactWatcher reports when the model file changes after it was loaded.
// It never reloads anything: the running model stays as loaded.
type ArtifactWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	stale   atomic.Bool
	changes chan fsnotify.Event
}

// NewArtifactWatcher watches the directory holding path, so atomic
// rename-over replacements are seen too.
func NewArtifactWatcher(path string, logger *zap.Logger) (*ArtifactWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactWatcher{
		path:    abs,
		watcher: watcher,
		logger:  logger,
		changes: make(chan fsnotify.Event, 1),
	}, nil
}

// Run blocks until ctx is done or the watcher is closed.
func (w *ArtifactWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&changeOps == 0 {
				continue
			}
			if !w.stale.Swap(true) {
				w.logger.Warn("model artifact changed on disk; restart to serve it",
					zap.String("path", w.path),
					zap.String("op", event.Op.String()),
				)
			}
			select {
			case w.changes <- event:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("artifact watcher error", zap.Error(err))
		}
	}
}

// Stale reports whether the file changed since startup.
func (w *ArtifactWatcher) Stale() bool {
	if w == nil {
		return false
	}
	return w.stale.Load()
}

// Changes delivers the most recent unread change event.
func (w *ArtifactWatcher) Changes() <-chan fsnotify.Event {
	return w.changes
}
