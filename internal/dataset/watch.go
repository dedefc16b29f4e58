package dataset

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/acadworld/internal/checksum"
	"github.com/starford/acadworld/internal/models"
)

const debounce = 200 * time.Millisecond

// ApplyFunc loads a freshly parsed dataset.
type ApplyFunc func(ctx context.Context, ds *models.Dataset) error

// AppliedCallback is called after a reload succeeded.
type AppliedCallback func(sum string)

// Watch re-applies the dataset at path whenever it changes, until ctx is
// cancelled. lastSum is the checksum of the content already applied; a
// change event whose content hashes to the last applied checksum is skipped.
//
// The parent directory is watched rather than the file, so editors that
// replace the file on save are handled. Bursts of events are debounced.
func Watch(ctx context.Context, path, lastSum string, apply ApplyFunc, logger *slog.Logger, cb AppliedCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("dataset watcher: started", slog.String("path", abs))

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
			logger.Info("dataset watcher: stopped")
			return nil

		case <-fire:
			sum, ok := reload(ctx, abs, lastSum, apply, logger)
			if ok {
				lastSum = sum
				if cb != nil {
					cb(sum)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("dataset watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reload reads and applies the file. It reports the new checksum and
// whether anything was applied.
func reload(ctx context.Context, path, lastSum string, apply ApplyFunc, logger *slog.Logger) (string, bool) {
	data, sum, err := checksum.ReadFile(path)
	if err != nil {
		logger.Warn("dataset watcher: read failed", slog.String("error", err.Error()))
		return "", false
	}
	if sum == lastSum {
		logger.Debug("dataset watcher: unchanged", slog.String("checksum", sum))
		return "", false
	}
	ds, err := Parse(data)
	if err != nil {
		logger.Warn("dataset watcher: invalid dataset", slog.String("error", err.Error()))
		return "", false
	}
	if err := apply(ctx, ds); err != nil {
		logger.Warn("dataset watcher: apply failed", slog.String("error", err.Error()))
		return "", false
	}
	logger.Info("dataset watcher: applied", slog.String("checksum", sum))
	return sum, true
}
