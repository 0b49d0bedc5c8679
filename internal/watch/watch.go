// Package watch triggers reconciliation when the storage roots change
// on disk. Events are debounced: downloads touch a file many times per
// second, and reconciliation is idempotent, so coalescing a burst into
// one pass is always safe.
package watch

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/modelkeep/modelkeep/internal/scan"
	"github.com/modelkeep/modelkeep/pkg/logger"
)

// DefaultDebounce is used when no debounce interval is configured.
const DefaultDebounce = 500 * time.Millisecond

// Watch observes the storage roots and calls onChange after each
// debounced burst of relevant events, until ctx is cancelled.
// Directories created at runtime (a category subdir appearing, say)
// are added to the watch list.
func Watch(ctx context.Context, roots []scan.Root, debounce time.Duration, onChange func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	watched := 0
	for _, root := range roots {
		for _, dir := range root.Dirs() {
			if err := w.Add(dir); err != nil {
				// A missing root yields zero candidates on scan; same
				// posture here.
				logger.Debug("watch: skipping absent dir", logger.String("dir", dir), logger.Err(err))
				continue
			}
			watched++
		}
	}
	logger.Info("watch: started", logger.Int("dirs", watched))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case <-fire:
			onChange()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			// New directories (e.g. a category subdir appearing under
			// the store) join the watch list.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := w.Add(ev.Name); addErr != nil {
						logger.Warn("watch: add new dir failed",
							logger.String("dir", ev.Name), logger.Err(addErr))
					}
					schedule()
					continue
				}
			}

			if !relevant(ev.Name) {
				continue
			}
			logger.Debug("watch: event", logger.String("op", ev.Op.String()), logger.String("path", ev.Name))
			schedule()

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: watcher error", logger.Err(werr))
		}
	}
}

// relevant filters events down to asset-shaped file names.
func relevant(path string) bool {
	return strings.HasSuffix(path, scan.AssetSuffix) || strings.HasSuffix(path, scan.InFlightName)
}
