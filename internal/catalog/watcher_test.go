package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o644))

	var calls atomic.Int32
	w, err := NewWatcher(path, 50*time.Millisecond, func() { calls.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	for range 5 {
		require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o644))
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o644))

	var calls atomic.Int32
	w, err := NewWatcher(path, 20*time.Millisecond, func() { calls.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1"), 0o644))
	time.Sleep(150 * time.Millisecond)
	require.Zero(t, calls.Load())

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
