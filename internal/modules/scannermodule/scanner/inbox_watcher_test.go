package scanner

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *batchRecorder) flush(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, paths)
}

func (r *batchRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *batchRecorder) all() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.batches...)
}

func TestWatcherBatchesEventsIntoOneFlush(t *testing.T) {
	dir := t.TempDir()
	recorder := &batchRecorder{}

	w := NewInboxWatcher(dir, 100*time.Millisecond, recorder.flush)
	require.NoError(t, w.Start())
	defer w.Stop()

	for _, name := range []string{"a.mp3", "b.flac", "c.ogg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}

	// One debounce window after the last write, all three arrive together
	require.Eventually(t, func() bool { return recorder.count() > 0 },
		2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	batches := recorder.all()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)
}

func TestWatcherIgnoresNonAudioFiles(t *testing.T) {
	dir := t.TempDir()
	recorder := &batchRecorder{}

	w := NewInboxWatcher(dir, 50*time.Millisecond, recorder.flush)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("img"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("txt"), 0644))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, recorder.count())
}

func TestWatcherIgnoresDotfiles(t *testing.T) {
	dir := t.TempDir()
	recorder := &batchRecorder{}

	w := NewInboxWatcher(dir, 50*time.Millisecond, recorder.flush)
	require.NoError(t, w.Start())
	defer w.Stop()

	// In-progress rsync/Finder copies look like dotted audio files
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".partial.mp3"), []byte("half"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "._song.flac"), []byte("meta"), 0644))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, recorder.count())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "song.mp3"), []byte("whole"), 0644))
	require.Eventually(t, func() bool { return recorder.count() == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{filepath.Join(dir, "song.mp3")}, recorder.all()[0])
}

func TestWatcherHoldsGrowingFiles(t *testing.T) {
	dir := t.TempDir()
	recorder := &batchRecorder{}

	w := NewInboxWatcher(dir, 100*time.Millisecond, recorder.flush)
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(dir, "growing.mp3")
	require.NoError(t, os.WriteFile(path, []byte("part1"), 0644))

	// Grow the file right before the flush fires so the size check holds it
	// for another window
	time.Sleep(80 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("part2")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return recorder.count() == 1 },
		2*time.Second, 10*time.Millisecond)

	batches := recorder.all()
	assert.Equal(t, []string{path}, batches[0])
}

func TestWatcherStopFlushesPending(t *testing.T) {
	dir := t.TempDir()
	recorder := &batchRecorder{}

	// Long debounce so the timer cannot fire before Stop
	w := NewInboxWatcher(dir, time.Hour, recorder.flush)
	require.NoError(t, w.Start())

	path := filepath.Join(dir, "pending.mp3")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0644))

	// Wait for the fsnotify event to land in the pending set
	require.Eventually(t, func() bool {
		return w.Status()["pending_files"].(int) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())

	batches := recorder.all()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{path}, batches[0])
}

func TestWatcherStartStopLifecycle(t *testing.T) {
	dir := t.TempDir()
	w := NewInboxWatcher(dir, 50*time.Millisecond, func([]string) {})

	assert.False(t, w.Running())
	assert.ErrorIs(t, w.Stop(), ErrWatcherNotRunning)

	require.NoError(t, w.Start())
	assert.True(t, w.Running())
	assert.ErrorIs(t, w.Start(), ErrWatcherRunning)

	require.NoError(t, w.Stop())
	assert.False(t, w.Running())
}
