package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chorus/internal/database"
)

// ScanRunStatus represents the possible states of a scan run
type ScanRunStatus string

const (
	StatusPending    ScanRunStatus = "pending"
	StatusProcessing ScanRunStatus = "processing"
	StatusCompleted  ScanRunStatus = "completed"
	StatusFailed     ScanRunStatus = "failed"
)

// CreateScanRun creates a new pending scan run record
func CreateScanRun(db *gorm.DB) (*database.ScanRun, error) {
	run := database.ScanRun{
		ID:     uuid.NewString(),
		Status: string(StatusPending),
	}

	if err := db.Create(&run).Error; err != nil {
		return nil, fmt.Errorf("failed to create scan run: %w", err)
	}

	return &run, nil
}

// UpdateScanRunStatus updates the status of a scan run, stamping started
// and completed timestamps as appropriate.
func UpdateScanRunStatus(db *gorm.DB, runID string, status ScanRunStatus, errorMsg string) error {
	updates := map[string]interface{}{
		"status": string(status),
	}

	if errorMsg != "" {
		updates["error_message"] = errorMsg
	}

	now := time.Now()
	switch status {
	case StatusProcessing:
		updates["started_at"] = &now
	case StatusCompleted, StatusFailed:
		updates["completed_at"] = &now
	}

	return db.Model(&database.ScanRun{}).Where("id = ?", runID).Updates(updates).Error
}

// GetScanRun loads a scan run by id
func GetScanRun(db *gorm.DB, runID string) (*database.ScanRun, error) {
	var run database.ScanRun
	if err := db.First(&run, "id = ?", runID).Error; err != nil {
		return nil, fmt.Errorf("scan run not found: %w", err)
	}
	return &run, nil
}
