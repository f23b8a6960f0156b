package scanner

import (
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"chorus/internal/config"
	"chorus/internal/database"
	"chorus/internal/events"
	"chorus/internal/jobs"
	"chorus/internal/logger"
	"chorus/internal/metadata"
	"chorus/internal/modules/mediamodule"
	"chorus/internal/utils"
)

// Manager owns the job queue, the library scanner, and the inbox watcher.
// All scan and import work funnels through its single-worker queue.
type Manager struct {
	db       *gorm.DB
	catalog  *mediamodule.Catalog
	eventBus events.EventBus
	cfg      *config.Config

	queue   *jobs.Queue
	scanner *LibraryScanner
	watcher *InboxWatcher

	// watchRunID is the scan run collecting the current watch session's
	// imports; empty when not watching or before the first settled batch
	mu         sync.Mutex
	watchRunID string
}

// NewManager creates a scanner manager and starts its job queue worker
func NewManager(db *gorm.DB, catalog *mediamodule.Catalog, eventBus events.EventBus, cfg *config.Config) *Manager {
	m := &Manager{
		db:       db,
		catalog:  catalog,
		eventBus: eventBus,
		cfg:      cfg,
	}

	m.scanner = NewLibraryScanner(db, catalog, eventBus,
		metadata.NewTagReader(cfg.Transcoding.FFprobePath), cfg.Library.RootDir)

	m.queue = jobs.NewQueue(jobs.Options{
		MaxAttempts: cfg.Scanner.MaxAttempts,
		OnExhausted: m.handleExhausted,
	})
	m.queue.Handle(jobs.TypeScanLibrary, m.handleScanJob)
	m.queue.Handle(jobs.TypeImportFile, m.handleImportJob)

	m.watcher = NewInboxWatcher(cfg.Library.InboxDir, cfg.DebounceWindow(), m.submitBatch)

	return m
}

// StartScan creates a scan run over the given paths and enqueues the scan
// job. When no paths are given the configured library root is scanned.
func (m *Manager) StartScan(paths []string) (*database.ScanRun, error) {
	if len(paths) == 0 {
		paths = []string{m.cfg.Library.RootDir}
	}

	run, err := utils.CreateScanRun(m.db)
	if err != nil {
		return nil, err
	}

	_, err = m.queue.Enqueue(jobs.TypeScanLibrary, jobs.Payload{
		ScanRunID: run.ID,
		Paths:     paths,
	})
	if err != nil {
		utils.UpdateScanRunStatus(m.db, run.ID, utils.StatusFailed, err.Error())
		return nil, err
	}

	logger.Info("Scan %s queued for %v", run.ID, paths)
	return run, nil
}

// GetScanStatus returns the scan run record for the given ID
func (m *Manager) GetScanStatus(runID string) (*database.ScanRun, error) {
	return utils.GetScanRun(m.db, runID)
}

// ListScans returns recent scan runs, newest first
func (m *Manager) ListScans(limit int) ([]database.ScanRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []database.ScanRun
	err := m.db.Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// StartWatching activates the inbox watcher
func (m *Manager) StartWatching() error {
	if err := m.watcher.Start(); err != nil {
		return err
	}
	m.eventBus.PublishAsync(events.NewSystemEvent(events.EventWatchStarted,
		"Inbox watch started", m.cfg.Library.InboxDir))
	return nil
}

// StopWatching deactivates the inbox watcher, flushing pending files first,
// and closes out the session's scan run
func (m *Manager) StopWatching() error {
	if err := m.watcher.Stop(); err != nil {
		return err
	}

	m.mu.Lock()
	runID := m.watchRunID
	m.watchRunID = ""
	m.mu.Unlock()
	if runID != "" {
		m.maybeCompleteWatchRun(runID)
	}

	m.eventBus.PublishAsync(events.NewSystemEvent(events.EventWatchStopped,
		"Inbox watch stopped", m.cfg.Library.InboxDir))
	return nil
}

// WatchStatus returns the watcher state
func (m *Manager) WatchStatus() map[string]interface{} {
	return m.watcher.Status()
}

// Scanner exposes the library scanner for direct use in tests
func (m *Manager) Scanner() *LibraryScanner {
	return m.scanner
}

// Shutdown stops the watcher and drains the job queue
func (m *Manager) Shutdown() {
	if m.watcher.Running() {
		if err := m.StopWatching(); err != nil && !errors.Is(err, ErrWatcherNotRunning) {
			logger.Warn("Failed to stop inbox watcher: %v", err)
		}
	}
	m.queue.Close()
}

// submitBatch enqueues one import job per settled inbox file against the
// watch session's scan run. Called by the watcher after its debounce window.
func (m *Manager) submitBatch(paths []string) {
	runID, err := m.activeWatchRun()
	if err != nil {
		logger.Error("Failed to create scan run for inbox batch: %v", err)
		return
	}

	m.db.Model(&database.ScanRun{}).Where("id = ?", runID).
		Update("total_files", gorm.Expr("total_files + ?", len(paths)))

	for _, path := range paths {
		_, err := m.queue.Enqueue(jobs.TypeImportFile, jobs.Payload{
			ScanRunID: runID,
			FilePath:  path,
		})
		if err != nil {
			logger.Warn("Failed to enqueue import of %s: %v", path, err)
			m.noteImportOutcome(runID, false)
		}
	}
}

// activeWatchRun returns the scan run collecting this watch session's
// imports, creating it on the first settled batch
func (m *Manager) activeWatchRun() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watchRunID != "" {
		return m.watchRunID, nil
	}

	run, err := utils.CreateScanRun(m.db)
	if err != nil {
		return "", err
	}
	utils.UpdateScanRunStatus(m.db, run.ID, utils.StatusProcessing, "")
	m.watchRunID = run.ID
	return run.ID, nil
}

func (m *Manager) handleScanJob(job *jobs.Job) error {
	return m.scanner.ScanLibrary(job.Payload.ScanRunID, job.Payload.Paths)
}

// handleImportJob imports a single watched file. A returned error makes the
// queue retry with backoff; the scan run is only charged an error once the
// job is exhausted.
func (m *Manager) handleImportJob(job *jobs.Job) error {
	result, err := m.scanner.ImportFile(job.Payload.FilePath)
	if err != nil {
		return err
	}

	m.scanner.publishImportResult(job.Payload.ScanRunID, job.Payload.FilePath, result)
	m.noteImportOutcome(job.Payload.ScanRunID, true)
	return nil
}

// handleExhausted records permanently failed jobs against their scan run
func (m *Manager) handleExhausted(job *jobs.Job, err error) {
	m.eventBus.PublishAsync(events.Event{
		Type:    events.EventJobExhausted,
		Source:  "scanner",
		Title:   "Job retries exhausted",
		Message: err.Error(),
		Data: map[string]interface{}{
			"job_id":      job.ID,
			"job_type":    string(job.Type),
			"scan_run_id": job.Payload.ScanRunID,
			"file_path":   job.Payload.FilePath,
		},
	})

	switch job.Type {
	case jobs.TypeScanLibrary:
		utils.UpdateScanRunStatus(m.db, job.Payload.ScanRunID, utils.StatusFailed, err.Error())
	case jobs.TypeImportFile:
		m.noteImportOutcome(job.Payload.ScanRunID, false)
	}
}

// noteImportOutcome advances an import-driven scan run. A run belonging to
// an active watch session stays open for further batches; anything else
// completes once every file is accounted for.
func (m *Manager) noteImportOutcome(runID string, success bool) {
	column := "error_count"
	if success {
		column = "processed_files"
	}
	if err := m.db.Model(&database.ScanRun{}).Where("id = ?", runID).
		Update(column, gorm.Expr(column+" + 1")).Error; err != nil {
		logger.Warn("Failed to update scan run %s: %v", runID, err)
		return
	}

	run, err := utils.GetScanRun(m.db, runID)
	if err != nil {
		return
	}

	m.mu.Lock()
	sessionOpen := m.watchRunID == runID
	m.mu.Unlock()

	if !sessionOpen && run.TotalFiles > 0 && run.ProcessedFiles+run.ErrorCount >= run.TotalFiles {
		utils.UpdateScanRunStatus(m.db, runID, utils.StatusCompleted, "")
		m.db.Model(&database.ScanRun{}).Where("id = ?", runID).
			Update("progress", 100.0)
		logger.Info("Inbox run %s completed: %d imported, %d errors",
			runID, run.ProcessedFiles, run.ErrorCount)
	} else if run.TotalFiles > 0 {
		progress := float64(run.ProcessedFiles+run.ErrorCount) / float64(run.TotalFiles) * 100
		m.db.Model(&database.ScanRun{}).Where("id = ?", runID).
			Update("progress", progress)
	}
}

// maybeCompleteWatchRun closes out a watch session's run when every queued
// import has already finished; otherwise the final import completes it
func (m *Manager) maybeCompleteWatchRun(runID string) {
	run, err := utils.GetScanRun(m.db, runID)
	if err != nil {
		return
	}
	if run.ProcessedFiles+run.ErrorCount >= run.TotalFiles {
		utils.UpdateScanRunStatus(m.db, runID, utils.StatusCompleted, "")
		m.db.Model(&database.ScanRun{}).Where("id = ?", runID).
			Update("progress", 100.0)
		logger.Info("Watch session run %s completed: %d imported, %d errors",
			runID, run.ProcessedFiles, run.ErrorCount)
	}
}

// QueueDepth reports the number of queued jobs, used by the status endpoint
func (m *Manager) QueueDepth() int {
	return m.queue.Len()
}

// EnqueueImport queues a one-off import of a single file
func (m *Manager) EnqueueImport(runID, path string) error {
	if !utils.IsAudioFile(path) {
		return fmt.Errorf("%s is not a recognized audio file", path)
	}
	_, err := m.queue.Enqueue(jobs.TypeImportFile, jobs.Payload{
		ScanRunID: runID,
		FilePath:  path,
	})
	return err
}
