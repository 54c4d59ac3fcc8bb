// Copyright 2025 Glimpse Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package reload

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/glimpse-dev/glimpse/pkg/config"
)

// Watcher watches the served directory tree and reports file changes,
// coalescing bursts of events into a single notification. Editors tend to
// write, truncate and rename in quick succession; without the quiet
// period every save would trigger several page reloads.
type Watcher struct {
	// root is the directory tree being watched
	root string

	// extensions filters which files count as a change. Empty means all.
	extensions map[string]struct{}

	// notify is invoked once per coalesced burst of changes
	notify func()

	// debounced schedules notify after the quiet period
	debounced func(func())

	// debounceDelay is the quiet period between the last event and notify
	debounceDelay time.Duration

	// watcher is the fsnotify file watcher
	watcher *fsnotify.Watcher

	logger zerolog.Logger
}

// NewWatcher creates a watcher for the directory tree rooted at root.
// notify runs on a timer goroutine after each coalesced burst.
func NewWatcher(root string, cfg config.ReloadConfig, notify func(), logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	exts := make(map[string]struct{}, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	quiet := cfg.Debounce
	if quiet <= 0 {
		quiet = 250 * time.Millisecond
	}

	return &Watcher{
		root:          root,
		extensions:    exts,
		notify:        notify,
		debounced:     debounce.New(quiet),
		debounceDelay: quiet,
		watcher:       fsw,
		logger:        logger.With().Str("component", "reload.watcher").Logger(),
	}, nil
}

// Start begins watching the directory tree for changes.
//
// This method blocks until the context is canceled. It should be run
// in a separate goroutine:
//
//	go watcher.Start(ctx)
//
// New subdirectories are picked up as they appear. Hidden files and
// directories are ignored.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		w.logger.Error().
			Err(err).
			Str("dir", w.root).
			Msg("Failed to watch directory")
		return err
	}

	w.logger.Info().
		Str("dir", w.root).
		Dur("debounce", w.debounceDelay).
		Msg("Started watching for changes")

	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Error closing watcher")
		}
		w.logger.Info().Msg("Stopped watching for changes")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				// Watcher closed
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				// Watcher closed
				return nil
			}
			w.logger.Warn().
				Err(err).
				Msg("File watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	// New directories join the watch set but are not changes themselves.
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn().
					Err(err).
					Str("dir", event.Name).
					Msg("Failed to watch new directory")
			}
			return
		}
	}

	// Ignore chmod; every other op means the page content may differ.
	const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	if event.Op&changeOps == 0 {
		return
	}

	if !w.matches(event.Name) {
		return
	}

	w.logger.Debug().
		Str("op", event.Op.String()).
		Str("file", event.Name).
		Msg("Detected file change")

	w.debounced(w.notify)
}

func (w *Watcher) matches(name string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// addRecursive registers root and every non-hidden directory below it.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(filepath.Base(path), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
