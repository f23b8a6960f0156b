package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAudioFile(t *testing.T) {
	assert.True(t, IsAudioFile("/music/song.mp3"))
	assert.True(t, IsAudioFile("/music/song.FLAC"))
	assert.True(t, IsAudioFile("song.m4a"))
	assert.True(t, IsAudioFile("song.ogg"))
	assert.True(t, IsAudioFile("song.wav"))

	assert.False(t, IsAudioFile("/music/cover.jpg"))
	assert.False(t, IsAudioFile("/music/notes.txt"))
	assert.False(t, IsAudioFile("/music/song"))
}

func TestHashFileIsContentAddressed(t *testing.T) {
	dir := t.TempDir()

	pathA := filepath.Join(dir, "a.mp3")
	pathB := filepath.Join(dir, "b was renamed.mp3")
	pathC := filepath.Join(dir, "c.mp3")

	require.NoError(t, os.WriteFile(pathA, []byte("identical audio bytes"), 0644))
	require.NoError(t, os.WriteFile(pathB, []byte("identical audio bytes"), 0644))
	require.NoError(t, os.WriteFile(pathC, []byte("different audio bytes"), 0644))

	hashA, err := HashFile(pathA)
	require.NoError(t, err)
	hashB, err := HashFile(pathB)
	require.NoError(t, err)
	hashC, err := HashFile(pathC)
	require.NoError(t, err)

	// Same content hashes the same regardless of name; content changes it
	assert.Equal(t, hashA, hashB)
	assert.NotEqual(t, hashA, hashC)
	assert.Len(t, hashA, 64)
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope.mp3"))
	assert.Error(t, err)
}

func TestSanitizePathComponent(t *testing.T) {
	assert.Equal(t, "acdc", SanitizePathComponent(`AC/DC`))
	assert.Equal(t, "what is this", SanitizePathComponent(`What? Is: This*`))
	assert.Equal(t, "hidden", SanitizePathComponent("...hidden"))
	assert.Equal(t, "unknown", SanitizePathComponent(""))
	assert.Equal(t, "unknown", SanitizePathComponent(`///`))
	assert.Equal(t, "spaced out", SanitizePathComponent("  Spaced    Out  "))
}

func TestSortName(t *testing.T) {
	assert.Equal(t, "foo", SortName("The Foo"))
	assert.Equal(t, "clockwork orange", SortName("A Clockwork Orange"))
	assert.Equal(t, "american band", SortName("An American Band"))
	assert.Equal(t, "theory", SortName("Theory"))
	assert.Equal(t, "the", SortName("The"))
}

func TestGetContentType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", GetContentType("song.mp3"))
	assert.Equal(t, "audio/flac", GetContentType("song.flac"))
	assert.Equal(t, "audio/ogg", GetContentType("song.ogg"))
	assert.Equal(t, "application/octet-stream", GetContentType("song.xyz"))
}
