// Package scanerrors defines the sentinel errors shared across the
// ingestion and playback pipeline. Callers wrap these with %w so handlers
// can classify failures with errors.Is regardless of which stage produced
// them.
package scanerrors

import "errors"

var (
	// ErrFileUnreadable indicates a source file could not be opened,
	// statted, or hashed.
	ErrFileUnreadable = errors.New("file unreadable")

	// ErrMetadataUnreadable indicates the audio container was recognized
	// but could not be parsed.
	ErrMetadataUnreadable = errors.New("metadata unreadable")

	// ErrCatalogWriteFailed indicates the catalog transaction for an
	// import did not commit.
	ErrCatalogWriteFailed = errors.New("catalog write failed")

	// ErrOrganizeMoveFailed indicates an imported file could not be moved
	// into the canonical library layout.
	ErrOrganizeMoveFailed = errors.New("failed to move file into library layout")

	// ErrJobExhausted indicates a job failed on its final attempt and was
	// dropped from the queue.
	ErrJobExhausted = errors.New("job retries exhausted")

	// ErrUnsupportedFormat indicates a transcode request named an output
	// format outside the supported set.
	ErrUnsupportedFormat = errors.New("unsupported transcode format")

	// ErrBitrateOutOfRange indicates a transcode bitrate outside the
	// allowed bounds.
	ErrBitrateOutOfRange = errors.New("bitrate out of range")

	// ErrFileMissing indicates a cataloged track's file is gone from disk.
	ErrFileMissing = errors.New("track file not found on disk")
)
