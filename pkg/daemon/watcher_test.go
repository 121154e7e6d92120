package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dir string) <-chan struct{} {
	t.Helper()

	w, err := NewWatcher(dir, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	settled := make(chan struct{}, 8)
	go w.Run(ctx, func() { settled <- struct{}{} })

	// Give the watch loop a moment to start before events fly.
	time.Sleep(20 * time.Millisecond)
	return settled
}

func TestWatcherFiresOnDescriptorChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settled := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.metadata"), []byte("{}"), 0o644))

	select {
	case <-settled:
	case <-time.After(3 * time.Second):
		t.Fatal("no settle signal after descriptor write")
	}
}

func TestWatcherIgnoresPayloadChurn(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settled := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.epub"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.content"), []byte("{}"), 0o644))

	select {
	case <-settled:
		t.Fatal("settle fired for non-descriptor writes")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherCoalescesBurst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settled := startWatcher(t, dir)

	for _, name := range []string{"a.metadata", "b.metadata", "c.metadata"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}

	select {
	case <-settled:
	case <-time.After(3 * time.Second):
		t.Fatal("no settle signal after burst")
	}

	select {
	case <-settled:
		t.Fatal("burst produced more than one settle signal")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherCloseIdempotent(t *testing.T) {
	t.Parallel()

	w, err := NewWatcher(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestWatcherMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
