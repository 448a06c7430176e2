package indexing

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events an editor or a copy produces.
const DefaultDebounce = 500 * time.Millisecond

// Watch re-indexes path every time it changes until ctx is done. The parent
// directory is watched so files replaced by rename are still seen. onIndexed
// receives every run's outcome; a failed run does not stop watching.
func (s *Service) Watch(
	ctx context.Context, path string, debounce time.Duration, onIndexed func(Report, error),
) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	s.logger.Info("watching document", zap.String("path", abs))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			rep, err := s.Index(ctx, abs)
			if err != nil {
				s.logger.Error("re-index failed", zap.String("path", abs), zap.Error(err))
			}
			if onIndexed != nil {
				onIndexed(rep, err)
			}
		}
	}
}
