// Package metadata extracts normalized track metadata from audio files.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"chorus/internal/logger"
	"chorus/internal/scanerrors"
)

// ErrUnreadable indicates the audio container could not be parsed at all.
// Missing or malformed individual tag frames are not an error; absent
// fields simply fall back to defaults.
var ErrUnreadable = scanerrors.ErrMetadataUnreadable

// Fallback values for files without usable tags
const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

// TrackMetadata holds the normalized fields extracted from an audio file
type TrackMetadata struct {
	Title           string
	Artist          string
	Album           string
	Year            int
	TrackNumber     *int
	DiscNumber      *int
	DurationSeconds int
	Bitrate         *int // bits per second, nil when unknown
	Format          string
}

// TagReader extracts metadata from audio files using dhowden/tag, with
// ffprobe supplying technical info (duration, bitrate) when available.
type TagReader struct {
	ffprobePath string
}

// NewTagReader creates a new tag reader. ffprobePath may be empty to use
// the binary from PATH.
func NewTagReader(ffprobePath string) *TagReader {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &TagReader{ffprobePath: ffprobePath}
}

// Read extracts normalized metadata from the file at path. Absent tags fall
// back to defaults derived from the filename; a file that cannot be read at
// all yields an error, and an empty file yields ErrUnreadable.
func (tr *TagReader) Read(path string) (*TrackMetadata, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("%w: file is empty: %s", ErrUnreadable, path)
	}

	meta := &TrackMetadata{
		Title:  titleFromFilename(path),
		Artist: UnknownArtist,
		Album:  UnknownAlbum,
		Format: formatFromPath(path),
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	tagMetadata, tagErr := tag.ReadFrom(file)
	switch {
	case tagErr == nil:
		if tagMetadata != nil {
			applyTags(meta, tagMetadata)
		}
	case errors.Is(tagErr, tag.ErrNoTagsFound):
		// No tag container at all; keep the filename-derived defaults
		// rather than failing the import.
		logger.Debug("No tags in %s, using filename defaults", path)
	default:
		// A container was recognized but could not be parsed; the file
		// is corrupt, not merely untagged.
		return nil, fmt.Errorf("%w: parsing tags in %s: %v", ErrUnreadable, path, tagErr)
	}

	if IsFFProbeAvailable(tr.ffprobePath) {
		if info, err := ExtractTechnicalInfo(tr.ffprobePath, path); err != nil {
			logger.Debug("ffprobe extraction failed for %s: %v", path, err)
		} else {
			meta.DurationSeconds = int(info.Duration)
			if info.Bitrate > 0 {
				bitrate := info.Bitrate
				meta.Bitrate = &bitrate
			}
		}
	}

	return meta, nil
}

func applyTags(meta *TrackMetadata, t tag.Metadata) {
	if title := cleanString(t.Title()); title != "" {
		meta.Title = title
	}
	if artist := cleanString(t.Artist()); artist != "" {
		meta.Artist = artist
	}
	if album := cleanString(t.Album()); album != "" {
		meta.Album = album
	}
	if year := t.Year(); year != 0 {
		meta.Year = year
	}
	if track, _ := t.Track(); track != 0 {
		meta.TrackNumber = &track
	}
	if disc, _ := t.Disc(); disc != 0 {
		meta.DiscNumber = &disc
	}
}

// titleFromFilename returns the base filename without its extension
func titleFromFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// formatFromPath returns the file extension, lower-cased, without the dot
func formatFromPath(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// cleanString trims and collapses whitespace
func cleanString(s string) string {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return cleaned
	}
	return strings.Join(strings.Fields(cleaned), " ")
}
