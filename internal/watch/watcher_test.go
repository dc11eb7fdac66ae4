package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/extpack/internal/cache"
)

func newTestWatcher(t *testing.T, root string, rebuild func(context.Context) error) *Watcher {
	t.Helper()

	if rebuild == nil {
		rebuild = func(context.Context) error { return nil }
	}

	w, err := New(root, "out", rebuild, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	return w
}

func TestWatcher_Ignored(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, nil)
	defer w.watcher.Close()

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "src", "extension.ts"), false},
		{filepath.Join(root, "package.json"), false},
		{filepath.Join(root, "out", "extension.js"), true},
		{filepath.Join(root, "node_modules", "dep", "index.js"), true},
		{filepath.Join(root, ".git", "HEAD"), true},
		{filepath.Join(root, "output", "a.ts"), false},
		{filepath.Join(root, ".vscode", "settings.json"), false},
		{filepath.Join(root, ".config", "tsconfig.base.json"), false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, w.ignored(tt.path))
		})
	}
}

func TestWatcher_Relevant(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, nil)
	defer w.watcher.Close()

	src := filepath.Join(root, "src")
	w.watched[src] = true

	assert.True(t, w.relevant(fsnotify.Event{Name: filepath.Join(root, "a.ts"), Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: filepath.Join(root, "a.ts"), Op: fsnotify.Chmod}))
	assert.False(t, w.relevant(fsnotify.Event{Name: filepath.Join(root, "icon.png"), Op: fsnotify.Create}))
	assert.True(t, w.relevant(fsnotify.Event{Name: src, Op: fsnotify.Remove}))
}

func TestWatcher_HandleCollapsesTriggers(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, nil)
	defer w.watcher.Close()

	for i := 0; i < 5; i++ {
		w.handle(fsnotify.Event{Name: filepath.Join(root, "a.ts"), Op: fsnotify.Write})
	}

	assert.Len(t, w.trigger, 1)

	// Changes in the output directory never trigger
	<-w.trigger
	w.handle(fsnotify.Event{Name: filepath.Join(root, "out", "extension.js"), Op: fsnotify.Write})
	assert.Len(t, w.trigger, 0)
}

// Every file that can change the fingerprint must be able to trigger a rebuild
func TestWatcher_CoversFingerprintedFiles(t *testing.T) {
	root := t.TempDir()
	settings := filepath.Join(root, ".vscode", "settings.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(settings), 0o755))
	require.NoError(t, os.WriteFile(settings, []byte(`{}`), 0o644))

	before, err := cache.Fingerprint(root, "out")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(settings, []byte(`{"a":1}`), 0o644))
	after, err := cache.Fingerprint(root, "out")
	require.NoError(t, err)
	require.NotEqual(t, before, after)

	w := newTestWatcher(t, root, nil)
	defer w.watcher.Close()

	require.NoError(t, w.addTree(root))
	assert.True(t, w.watched[filepath.Dir(settings)])

	w.handle(fsnotify.Event{Name: settings, Op: fsnotify.Write})
	assert.Len(t, w.trigger, 1)
}

func TestWatcher_RebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "out"), 0o755))

	var rebuilds atomic.Int32
	w := newTestWatcher(t, root, func(context.Context) error {
		rebuilds.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Wait until the tree is registered
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.watched[filepath.Join(root, "src")]
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "out", "extension.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "extension.ts"), []byte("export {}"), 0o644))

	require.Eventually(t, func() bool { return rebuilds.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
