package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func runWatcherUntilChange(t *testing.T, w *Watcher, write func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register before touching the file.
	time.Sleep(200 * time.Millisecond)
	write()

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatcher_NotifiesOnAtomicSave(t *testing.T) {
	s := NewFileStore(t.TempDir(), FormatYAML)
	require.NoError(t, s.Save(context.Background(), "support", sampleSet()))

	runWatcherUntilChange(t, &Watcher{Path: s.Path("support")}, func() {
		require.NoError(t, s.Save(context.Background(), "support", sampleSet()[:1]))
	})
}

func TestWatcher_PollingFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "support.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))

	w := &Watcher{Path: path, PollInterval: 20 * time.Millisecond, forcePoll: true}
	runWatcherUntilChange(t, w, func() {
		require.NoError(t, os.WriteFile(path, []byte("changed"), 0644))
	})
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "support.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	called := false
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644)
	}()
	require.NoError(t, Watch(ctx, path, nil, func() { called = true }))
	require.False(t, called)
}
