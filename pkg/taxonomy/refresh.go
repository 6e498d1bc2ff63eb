package taxonomy

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sigi-k/vogdbAPI/logger"
)

// Reloader is implemented by sources that can reread their backing data.
type Reloader interface {
	Reload() error
}

// Refresher drops the cache (and reloads the source when it can) on a cron
// schedule and, optionally, whenever the taxonomy file changes.
type Refresher struct {
	cache *Cache
	src   Source
	cron  *cron.Cron

	mu sync.Mutex // one refresh at a time
}

func NewRefresher(cache *Cache, src Source, schedule string) (*Refresher, error) {
	r := &Refresher{cache: cache, src: src, cron: cron.New()}
	if schedule != "" {
		if _, err := r.cron.AddFunc(schedule, r.Refresh); err != nil {
			return nil, fmt.Errorf("invalid taxonomy refresh schedule %q: %w", schedule, err)
		}
	}
	return r, nil
}

// Refresh keeps the old tree when a reload fails, the cache is still purged
// so a fixed file is picked up on the next refresh.
func (r *Refresher) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rl, ok := r.src.(Reloader); ok {
		if err := rl.Reload(); err != nil {
			logger.Error("Taxonomy reload failed, keeping the loaded tree", zap.Error(err))
		}
	}
	n := r.cache.Len()
	r.cache.Purge()
	logger.Info("Taxonomy cache purged", zap.Int("entries", n))
}

func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// Watch refreshes whenever path is written or replaced, until ctx is done.
// The parent directory is watched so that atomic renames are seen.
func (r *Refresher) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fail to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("fail to watch %s: %w", path, err)
	}

	target := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) == target && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					logger.Info("Taxonomy file changed", zap.String("path", event.Name))
					r.Refresh()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Taxonomy watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
