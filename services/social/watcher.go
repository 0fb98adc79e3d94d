// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package social

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before an external edit triggers
// a reload.
const DefaultDebounce = 300 * time.Millisecond

// ErrNotWatchable is returned when the service store has no data file.
var ErrNotWatchable = errors.New("store is not file backed")

// DataWatcher reloads a Service when its data file is edited outside the
// process.
//
// The parent directory is watched rather than the file, because editors
// and our own atomic saves replace the file by rename. Events for other
// names in the directory are ignored. Bursts of events are collapsed by
// a debounce window, then the service reloads only if the file content
// differs from what it last wrote.
//
// Thread Safety: Start and Stop are safe to call concurrently.
type DataWatcher struct {
	svc      *Service
	path     string
	name     string
	debounce time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	events  chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	stopOnce sync.Once
	mu       sync.Mutex
	watching bool

	// onReload is called after each reload attempt. Tests use it.
	onReload func(reloaded bool, err error)
}

// NewDataWatcher creates a watcher for svc's data file.
//
// Outputs:
//
//	*DataWatcher - Call Start to begin watching.
//	error - ErrNotWatchable for stores without a file, or fsnotify failure.
func NewDataWatcher(svc *Service, debounce time.Duration, logger *slog.Logger) (*DataWatcher, error) {
	path, ok := svc.Watchable()
	if !ok {
		return nil, ErrNotWatchable
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &DataWatcher{
		svc:      svc,
		path:     abs,
		name:     filepath.Base(abs),
		debounce: debounce,
		logger:   logger.With("component", "watcher", "path", abs),
		watcher:  watcher,
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. It returns once the watch is registered.
func (w *DataWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	w.logger.Info("Watching data file")
	return nil
}

// Stop stops watching and waits for the goroutines to exit.
func (w *DataWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
		w.wg.Wait()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// processEvents forwards events for the data file to the debouncer.
func (w *DataWatcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			select {
			case w.events <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

// debounceLoop reloads after the debounce window passes without events.
func (w *DataWatcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.events:
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			w.reload(ctx)
		}
	}
}

func (w *DataWatcher) reload(ctx context.Context) {
	reloaded, err := w.svc.ReloadIfChanged(ctx)
	switch {
	case err != nil:
		w.logger.Error("Reload after external edit failed", "error", err)
		recordReload(ctx, false)
	case reloaded:
		w.logger.Info("Reloaded after external edit")
		recordReload(ctx, true)
	default:
		w.logger.Debug("Ignoring event for our own write")
	}
	if w.onReload != nil {
		w.onReload(reloaded, err)
	}
}
