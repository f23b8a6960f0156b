package scanner

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"chorus/internal/database"
	"chorus/internal/events"
	"chorus/internal/metadata"
	"chorus/internal/modules/mediamodule"
	"chorus/internal/scanerrors"
	"chorus/internal/utils"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&database.Artist{},
		&database.Album{},
		&database.Track{},
		&database.ScanRun{},
		&database.Setting{},
	))
	return db
}

func setupBus(t *testing.T) events.EventBus {
	t.Helper()
	bus := events.NewEventBus(100)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { bus.Stop(context.Background()) })
	return bus
}

// id3v2Frame builds one ID3v2.3 text frame with ISO-8859-1 encoding
func id3v2Frame(id, value string) []byte {
	payload := append([]byte{0}, []byte(value)...)
	frame := make([]byte, 10+len(payload))
	copy(frame, id)
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[10:], payload)
	return frame
}

// writeTaggedMP3 writes a minimal ID3v2.3 tagged file. The filler bytes
// stand in for audio data and keep content hashes distinct between files.
func writeTaggedMP3(t *testing.T, path, title, artist, album, filler string) {
	t.Helper()

	var frames []byte
	frames = append(frames, id3v2Frame("TIT2", title)...)
	frames = append(frames, id3v2Frame("TPE1", artist)...)
	frames = append(frames, id3v2Frame("TALB", album)...)

	size := len(frames)
	header := []byte{
		'I', 'D', '3', 3, 0, 0,
		byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f),
		byte(size >> 7 & 0x7f), byte(size & 0x7f),
	}

	data := append(header, frames...)
	data = append(data, []byte(filler)...)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func newTestScanner(t *testing.T, db *gorm.DB, libraryRoot string) (*LibraryScanner, *mediamodule.Catalog) {
	t.Helper()
	catalog := mediamodule.NewCatalog(db)
	// Point ffprobe at a path that cannot exist so technical info
	// extraction is skipped deterministically
	tagReader := metadata.NewTagReader(filepath.Join(t.TempDir(), "no-ffprobe"))
	return NewLibraryScanner(db, catalog, setupBus(t), tagReader, libraryRoot), catalog
}

func TestScanLibraryImportsAndCountsErrors(t *testing.T) {
	db := setupDB(t)
	dir := t.TempDir()
	s, catalog := newTestScanner(t, db, dir)

	writeTaggedMP3(t, filepath.Join(dir, "one.mp3"), "One", "Artist", "Album", "aaaa")
	writeTaggedMP3(t, filepath.Join(dir, "two.mp3"), "Two", "Artist", "Album", "bbbb")
	writeTaggedMP3(t, filepath.Join(dir, "three.mp3"), "Three", "Artist", "Album", "cccc")
	// Empty file, unreadable metadata
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.mp3"), nil, 0644))

	run, err := utils.CreateScanRun(db)
	require.NoError(t, err)
	require.NoError(t, s.ScanLibrary(run.ID, []string{dir}))

	reloaded, err := utils.GetScanRun(db, run.ID)
	require.NoError(t, err)
	assert.Equal(t, string(utils.StatusCompleted), reloaded.Status)
	assert.Equal(t, 4, reloaded.TotalFiles)
	assert.Equal(t, 3, reloaded.ProcessedFiles)
	assert.Equal(t, 1, reloaded.ErrorCount)
	assert.NotNil(t, reloaded.CompletedAt)

	_, _, tracks, err := catalog.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), tracks)
}

func TestScanLibraryIsIdempotent(t *testing.T) {
	db := setupDB(t)
	dir := t.TempDir()
	s, catalog := newTestScanner(t, db, dir)

	writeTaggedMP3(t, filepath.Join(dir, "one.mp3"), "One", "Artist", "Album", "aaaa")
	writeTaggedMP3(t, filepath.Join(dir, "two.mp3"), "Two", "Artist", "Album", "bbbb")

	for i := 0; i < 2; i++ {
		run, err := utils.CreateScanRun(db)
		require.NoError(t, err)
		require.NoError(t, s.ScanLibrary(run.ID, []string{dir}))

		reloaded, err := utils.GetScanRun(db, run.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, reloaded.ProcessedFiles)
		assert.Equal(t, 0, reloaded.ErrorCount)
	}

	artists, albums, tracks, err := catalog.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), artists)
	assert.Equal(t, int64(1), albums)
	assert.Equal(t, int64(2), tracks)
}

func TestImportFileDeduplicatesByContent(t *testing.T) {
	db := setupDB(t)
	dir := t.TempDir()
	s, _ := newTestScanner(t, db, dir)

	original := filepath.Join(dir, "song.mp3")
	writeTaggedMP3(t, original, "Song", "Artist", "Album", "payload")

	data, err := os.ReadFile(original)
	require.NoError(t, err)
	copyPath := filepath.Join(dir, "copy of song.mp3")
	require.NoError(t, os.WriteFile(copyPath, data, 0644))

	first, err := s.ImportFile(original)
	require.NoError(t, err)
	assert.False(t, first.Skipped)

	second, err := s.ImportFile(copyPath)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.Track.ID, second.Track.ID)
}

func TestImportFileOrganizesIntoLibraryLayout(t *testing.T) {
	db := setupDB(t)
	libraryRoot := t.TempDir()
	inbox := t.TempDir()
	s, catalog := newTestScanner(t, db, libraryRoot)
	require.NoError(t, catalog.SetAutoOrganize(true))

	src := filepath.Join(inbox, "victoria.mp3")
	writeTaggedMP3(t, src, "Victoria", "The Foo", "Bar", "payload")

	result, err := s.ImportFile(src)
	require.NoError(t, err)

	want := filepath.Join(libraryRoot, "foo", "bar", "victoria.mp3")
	assert.Equal(t, want, result.Track.Path)
	assert.FileExists(t, want)
	assert.NoFileExists(t, src)
}

func TestImportFileNeverOverwritesOnOrganize(t *testing.T) {
	db := setupDB(t)
	libraryRoot := t.TempDir()
	inbox := t.TempDir()
	s, catalog := newTestScanner(t, db, libraryRoot)
	require.NoError(t, catalog.SetAutoOrganize(true))

	occupied := filepath.Join(libraryRoot, "foo", "bar", "song.mp3")
	require.NoError(t, os.MkdirAll(filepath.Dir(occupied), 0755))
	require.NoError(t, os.WriteFile(occupied, []byte("unrelated"), 0644))

	src := filepath.Join(inbox, "song.mp3")
	writeTaggedMP3(t, src, "Song", "The Foo", "Bar", "payload")

	result, err := s.ImportFile(src)
	require.NoError(t, err)

	want := filepath.Join(libraryRoot, "foo", "bar", "song (1).mp3")
	assert.Equal(t, want, result.Track.Path)
	assert.FileExists(t, want)
	assert.Equal(t, []byte("unrelated"), readFile(t, occupied))
}

func TestImportFileKeepsOriginalPathWhenOrganizeOff(t *testing.T) {
	db := setupDB(t)
	dir := t.TempDir()
	s, _ := newTestScanner(t, db, t.TempDir())

	src := filepath.Join(dir, "song.mp3")
	writeTaggedMP3(t, src, "Song", "Artist", "Album", "payload")

	result, err := s.ImportFile(src)
	require.NoError(t, err)
	assert.Equal(t, src, result.Track.Path)
	assert.FileExists(t, src)
}

func TestScanLibraryPublishesProgressEvents(t *testing.T) {
	db := setupDB(t)
	dir := t.TempDir()
	catalog := mediamodule.NewCatalog(db)
	bus := setupBus(t)
	tagReader := metadata.NewTagReader(filepath.Join(t.TempDir(), "no-ffprobe"))
	s := NewLibraryScanner(db, catalog, bus, tagReader, dir)

	var mu sync.Mutex
	var progress []float64
	bus.Subscribe(func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		if p, ok := e.Data["progress"].(float64); ok {
			progress = append(progress, p)
		}
	}, events.EventScanProgress)

	writeTaggedMP3(t, filepath.Join(dir, "one.mp3"), "One", "Artist", "Album", "aaaa")
	writeTaggedMP3(t, filepath.Join(dir, "two.mp3"), "Two", "Artist", "Album", "bbbb")

	run, err := utils.CreateScanRun(db)
	require.NoError(t, err)
	require.NoError(t, s.ScanLibrary(run.ID, []string{dir}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(progress) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []float64{50, 100}, progress)
}

func TestScanLibraryOverEmptyDirectoryCompletesAtFullProgress(t *testing.T) {
	db := setupDB(t)
	s, _ := newTestScanner(t, db, t.TempDir())

	run, err := utils.CreateScanRun(db)
	require.NoError(t, err)
	require.NoError(t, s.ScanLibrary(run.ID, []string{t.TempDir()}))

	reloaded, err := utils.GetScanRun(db, run.ID)
	require.NoError(t, err)
	assert.Equal(t, string(utils.StatusCompleted), reloaded.Status)
	assert.Equal(t, 0, reloaded.TotalFiles)
	assert.Equal(t, float64(100), reloaded.Progress)
	assert.Empty(t, reloaded.CurrentFile)
}

func TestImportFileClassifiesFailures(t *testing.T) {
	db := setupDB(t)
	dir := t.TempDir()
	s, _ := newTestScanner(t, db, t.TempDir())

	// A directory with an audio extension cannot be hashed
	unreadable := filepath.Join(dir, "fake.mp3")
	require.NoError(t, os.Mkdir(unreadable, 0755))
	_, err := s.ImportFile(unreadable)
	assert.ErrorIs(t, err, scanerrors.ErrFileUnreadable)

	// A recognized container with a mangled header cannot be parsed
	corrupt := filepath.Join(dir, "corrupt.mp3")
	data := append([]byte("ID3"), 0xff, 0xff, 0x00, 0x00, 0x00, 0x00, 0x10)
	data = append(data, bytes.Repeat([]byte{0xaa}, 256)...)
	require.NoError(t, os.WriteFile(corrupt, data, 0644))
	_, err = s.ImportFile(corrupt)
	assert.ErrorIs(t, err, scanerrors.ErrMetadataUnreadable)
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
