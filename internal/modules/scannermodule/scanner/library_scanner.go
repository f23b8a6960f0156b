// Package scanner implements library scanning, single-file imports, and the
// inbox watcher that feeds them.
package scanner

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gorm.io/gorm"

	"chorus/internal/database"
	"chorus/internal/events"
	"chorus/internal/logger"
	"chorus/internal/metadata"
	"chorus/internal/modules/mediamodule"
	"chorus/internal/scanerrors"
	"chorus/internal/utils"
)

// ImportResult reports the outcome of a single-file import
type ImportResult struct {
	Track   *database.Track
	Skipped bool // true when the file's content hash is already cataloged
}

// LibraryScanner walks directories and imports audio files one at a time.
// Files are processed sequentially so catalog writes never race.
type LibraryScanner struct {
	db          *gorm.DB
	catalog     *mediamodule.Catalog
	eventBus    events.EventBus
	tagReader   *metadata.TagReader
	libraryRoot string
}

// NewLibraryScanner creates a scanner writing into the given catalog
func NewLibraryScanner(db *gorm.DB, catalog *mediamodule.Catalog, eventBus events.EventBus, tagReader *metadata.TagReader, libraryRoot string) *LibraryScanner {
	return &LibraryScanner{
		db:          db,
		catalog:     catalog,
		eventBus:    eventBus,
		tagReader:   tagReader,
		libraryRoot: libraryRoot,
	}
}

// ScanLibrary enumerates audio files under the given paths and imports each
// in turn, recording progress on the scan run. Per-file failures are counted
// and skipped; only enumeration failures abort the scan.
func (s *LibraryScanner) ScanLibrary(scanRunID string, paths []string) error {
	if err := utils.UpdateScanRunStatus(s.db, scanRunID, utils.StatusProcessing, ""); err != nil {
		return err
	}

	files, err := s.enumerateAudioFiles(paths)
	if err != nil {
		utils.UpdateScanRunStatus(s.db, scanRunID, utils.StatusFailed, err.Error())
		s.publishScanEvent(events.EventScanFailed, scanRunID, err.Error())
		return err
	}

	logger.Info("Scan %s: found %d audio files under %v", scanRunID, len(files), paths)

	if err := s.db.Model(&database.ScanRun{}).Where("id = ?", scanRunID).
		Update("total_files", len(files)).Error; err != nil {
		return err
	}

	s.publishScanEvent(events.EventScanStarted, scanRunID,
		fmt.Sprintf("Scanning %d files", len(files)))

	processed := 0
	errorCount := 0
	for i, file := range files {
		result, importErr := s.ImportFile(file)
		if importErr != nil {
			errorCount++
			logger.Warn("Scan %s: failed to import %s: %v", scanRunID, file, importErr)
			s.eventBus.PublishAsync(events.Event{
				Type:    events.EventImportFailed,
				Source:  "scanner",
				Title:   "Import failed",
				Message: importErr.Error(),
				Data:    map[string]interface{}{"path": file, "scan_run_id": scanRunID},
			})
		} else {
			processed++
			s.publishImportResult(scanRunID, file, result)
		}

		progress := float64(i+1) / float64(len(files)) * 100
		s.db.Model(&database.ScanRun{}).Where("id = ?", scanRunID).Updates(map[string]interface{}{
			"processed_files": processed,
			"error_count":     errorCount,
			"progress":        progress,
			"current_file":    file,
		})

		s.eventBus.PublishAsync(events.Event{
			Type:    events.EventScanProgress,
			Source:  "scanner",
			Title:   "Scan progress",
			Message: file,
			Data: map[string]interface{}{
				"scan_run_id": scanRunID,
				"progress":    progress,
				"processed":   processed,
				"errors":      errorCount,
			},
			Timestamp: time.Now(),
		})
	}

	if err := utils.UpdateScanRunStatus(s.db, scanRunID, utils.StatusCompleted, ""); err != nil {
		return err
	}
	// A scan over zero files still finishes at 100%
	s.db.Model(&database.ScanRun{}).Where("id = ?", scanRunID).Updates(map[string]interface{}{
		"progress":     100.0,
		"current_file": "",
	})

	s.publishScanEvent(events.EventScanCompleted, scanRunID,
		fmt.Sprintf("Imported %d of %d files (%d errors)", processed, len(files), errorCount))
	logger.Info("Scan %s completed: %d/%d files, %d errors", scanRunID, processed, len(files), errorCount)
	return nil
}

// ImportFile runs the full import pipeline for one audio file: hash,
// dedupe check, metadata extraction, catalog insert, and optional
// relocation into the library layout.
func (s *LibraryScanner) ImportFile(path string) (*ImportResult, error) {
	hash, err := utils.HashFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: hashing %s: %v", scanerrors.ErrFileUnreadable, path, err)
	}

	existing, err := s.catalog.TrackByContentHash(hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Debug("Skipping %s: content already cataloged as track %d", path, existing.ID)
		return &ImportResult{Track: existing, Skipped: true}, nil
	}

	meta, err := s.tagReader.Read(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scanerrors.ErrFileUnreadable, err)
	}

	track, err := s.catalog.ImportTrack(mediamodule.ImportInput{
		Meta:          *meta,
		Path:          path,
		ContentHash:   hash,
		FileSizeBytes: info.Size(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scanerrors.ErrCatalogWriteFailed, err)
	}

	if s.catalog.AutoOrganizeEnabled() {
		if newPath, moveErr := s.organize(track, meta); moveErr != nil {
			// The track stays cataloged at its original path
			logger.Warn("Failed to organize %s: %v", path, moveErr)
		} else if newPath != track.Path {
			if err := s.catalog.UpdateTrackPath(track.ID, newPath); err != nil {
				return nil, err
			}
			track.Path = newPath
		}
	}

	return &ImportResult{Track: track}, nil
}

// organize moves a file to {library_root}/{artist}/{album}/{filename} and
// returns the destination path. Existing destinations are never overwritten;
// a numeric suffix is appended instead.
func (s *LibraryScanner) organize(track *database.Track, meta *metadata.TrackMetadata) (string, error) {
	dir := filepath.Join(
		s.libraryRoot,
		utils.SanitizePathComponent(utils.SortName(meta.Artist)),
		utils.SanitizePathComponent(utils.SortName(meta.Album)),
	)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrOrganizeMoveFailed, err)
	}

	dest := filepath.Join(dir, filepath.Base(track.Path))
	if dest == track.Path {
		return dest, nil
	}
	dest = uniqueDestination(dest)

	if err := moveFile(track.Path, dest); err != nil {
		return "", fmt.Errorf("%w: %v", ErrOrganizeMoveFailed, err)
	}

	logger.Debug("Organized %s -> %s", track.Path, dest)
	return dest, nil
}

// uniqueDestination appends " (n)" before the extension until the path does
// not exist
func uniqueDestination(dest string) string {
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest
	}
	ext := filepath.Ext(dest)
	base := dest[:len(dest)-len(ext)]
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// moveFile renames when possible and falls back to copy-and-remove for
// cross-device moves
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return err
	}

	return os.Remove(src)
}

// enumerateAudioFiles walks each path and collects audio files in sorted
// order. A path may be a single file.
func (s *LibraryScanner) enumerateAudioFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("cannot access scan path %s: %w", root, err)
		}

		if !info.IsDir() {
			if utils.IsAudioFile(root) && !seen[root] {
				seen[root] = true
				files = append(files, root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !utils.IsAudioFile(path) {
				return nil
			}
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func (s *LibraryScanner) publishScanEvent(eventType events.EventType, scanRunID, message string) {
	s.eventBus.PublishAsync(events.Event{
		Type:      eventType,
		Source:    "scanner",
		Title:     string(eventType),
		Message:   message,
		Data:      map[string]interface{}{"scan_run_id": scanRunID},
		Timestamp: time.Now(),
	})
}

func (s *LibraryScanner) publishImportResult(scanRunID, path string, result *ImportResult) {
	eventType := events.EventImportCompleted
	message := "File imported"
	if result.Skipped {
		eventType = events.EventImportSkipped
		message = "Duplicate content, file skipped"
	}
	s.eventBus.PublishAsync(events.Event{
		Type:    eventType,
		Source:  "scanner",
		Title:   string(eventType),
		Message: message,
		Data: map[string]interface{}{
			"path":        path,
			"scan_run_id": scanRunID,
			"track_id":    result.Track.ID,
		},
	})
}
