package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func nextChange(t *testing.T, w *Watcher) Change {
	t.Helper()
	select {
	case c, ok := <-w.Changes():
		require.True(t, ok, "changes channel closed")
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
		return Change{}
	}
}

func TestNew_NoFiles(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestWatcher_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grammar.yaml")
	writeFile(t, path, "name: a\n")

	w, err := New([]string{path}, WithDebounce(20*time.Millisecond), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	writeFile(t, path, "name: b\n")
	c := nextChange(t, w)
	assert.Equal(t, []string{path}, c.Paths)
	assert.False(t, c.Timestamp.IsZero())
}

func TestWatcher_Debounce(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")

	w, err := New([]string{a, b}, WithDebounce(200*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	writeFile(t, a, "1")
	writeFile(t, b, "1")
	writeFile(t, a, "2")

	c := nextChange(t, w)
	assert.Equal(t, []string{a, b}, c.Paths)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grammar.yaml")

	w, err := New([]string{path}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	select {
	case c := <-w.Changes():
		t.Fatalf("unexpected change: %v", c.Paths)
	case <-time.After(150 * time.Millisecond):
	}

	writeFile(t, path, "x")
	assert.Equal(t, []string{path}, nextChange(t, w).Paths)
}

func TestWatcher_Rename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grammar.yaml")
	writeFile(t, path, "old")

	w, err := New([]string{path}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	tmp := filepath.Join(dir, ".grammar.yaml.swp")
	writeFile(t, tmp, "new")
	require.NoError(t, os.Rename(tmp, path))

	assert.Equal(t, []string{path}, nextChange(t, w).Paths)
}

func TestWatcher_Stop(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "g.yaml")})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()

	_, ok := <-w.Changes()
	assert.False(t, ok)
}

func TestWatcher_ContextCancel(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "g.yaml")})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	select {
	case _, ok := <-w.Changes():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("changes channel not closed after cancel")
	}
	w.Stop()
}

func TestWatcher_StartTwice(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "g.yaml")})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "g.yaml")})
	require.NoError(t, err)
	w.Stop()
}
