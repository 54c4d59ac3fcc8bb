// Copyright 2025 Glimpse Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package reload

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/glimpse-dev/glimpse/pkg/config"
)

func testReloadConfig(extensions ...string) config.ReloadConfig {
	return config.ReloadConfig{
		Enabled:    true,
		Extensions: extensions,
		Debounce:   50 * time.Millisecond,
	}
}

// startWatcher runs a watcher over dir and returns a hit counter for the
// notify callback plus the Start error channel.
func startWatcher(t *testing.T, dir string, cfg config.ReloadConfig) (*atomic.Int64, chan error, context.CancelFunc) {
	t.Helper()

	var hits atomic.Int64
	watcher, err := NewWatcher(dir, cfg, func() { hits.Add(1) }, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- watcher.Start(ctx)
	}()
	t.Cleanup(cancel)

	// Give the watcher a moment to register the directory tree.
	time.Sleep(50 * time.Millisecond)

	return &hits, errChan, cancel
}

// TestNewWatcher_Success verifies construction and the debounce default.
func TestNewWatcher_Success(t *testing.T) {
	watcher, err := NewWatcher(t.TempDir(), config.ReloadConfig{}, func() {}, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, watcher)
	require.Equal(t, 250*time.Millisecond, watcher.debounceDelay)
	require.Empty(t, watcher.extensions)

	require.NoError(t, watcher.Close())
}

// TestWatcher_DetectsFileChange verifies that writing a file under the
// watched root triggers a notification.
func TestWatcher_DetectsFileChange(t *testing.T) {
	dir := t.TempDir()
	hits, _, _ := startWatcher(t, dir, testReloadConfig())

	err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hits.Load() >= 1 },
		2*time.Second, 20*time.Millisecond, "file change was not reported")
}

// TestWatcher_CoalescesBurst verifies that a burst of writes produces a
// single notification.
func TestWatcher_CoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	cfg := testReloadConfig()
	cfg.Debounce = 100 * time.Millisecond
	hits, _, _ := startWatcher(t, dir, cfg)

	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, "page.html")
		require.NoError(t, os.WriteFile(name, []byte("v"), 0o644))
	}

	// Wait past the quiet period plus slack.
	time.Sleep(400 * time.Millisecond)

	require.Equal(t, int64(1), hits.Load(), "burst should coalesce into one notification")
}

// TestWatcher_ExtensionFilter verifies that only configured extensions
// count as changes.
func TestWatcher_ExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	hits, _, _ := startWatcher(t, dir, testReloadConfig(".html"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, int64(0), hits.Load(), "filtered extension must not notify")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return hits.Load() >= 1 },
		2*time.Second, 20*time.Millisecond)
}

// TestWatcher_IgnoresHiddenFiles verifies that dotfiles never notify.
func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	hits, _, _ := startWatcher(t, dir, testReloadConfig())

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".page.html.swp"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)

	require.Equal(t, int64(0), hits.Load())
}

// TestWatcher_WatchesNewSubdirectories verifies that directories created
// after Start are watched too.
func TestWatcher_WatchesNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	hits, _, _ := startWatcher(t, dir, testReloadConfig())

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// Let the create event register the new directory.
	time.Sleep(150 * time.Millisecond)
	before := hits.Load()

	require.NoError(t, os.WriteFile(filepath.Join(sub, "new.html"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return hits.Load() > before },
		2*time.Second, 20*time.Millisecond, "change in new subdirectory was not reported")
}

// TestWatcher_ContextCancellation verifies that the watcher stops
// gracefully when the context is canceled.
func TestWatcher_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	_, errChan, cancel := startWatcher(t, dir, testReloadConfig())

	cancel()

	select {
	case err := <-errChan:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Watcher did not stop in time")
	}
}

// TestWatcher_MissingRoot verifies that a nonexistent root fails Start.
func TestWatcher_MissingRoot(t *testing.T) {
	watcher, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), testReloadConfig(), func() {}, zerolog.Nop())
	require.NoError(t, err)
	defer watcher.Close()

	err = watcher.Start(context.Background())
	require.Error(t, err)
}
