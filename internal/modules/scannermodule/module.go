// Package scannermodule exposes library scanning and inbox watching as an
// application module.
package scannermodule

import (
	"gorm.io/gorm"

	"chorus/internal/config"
	"chorus/internal/database"
	"chorus/internal/events"
	"chorus/internal/logger"
	"chorus/internal/modules/mediamodule"
	"chorus/internal/modules/scannermodule/scanner"
)

const (
	ModuleID   = "system.scanner"
	ModuleName = "Library Scanner"
)

// Module manages scanning and importing of audio files
type Module struct {
	db       *gorm.DB
	eventBus events.EventBus
	cfg      *config.Config
	catalog  *mediamodule.Catalog
	manager  *scanner.Manager
}

// NewModule creates the scanner module
func NewModule(db *gorm.DB, eventBus events.EventBus, cfg *config.Config, catalog *mediamodule.Catalog) *Module {
	return &Module{
		db:       db,
		eventBus: eventBus,
		cfg:      cfg,
		catalog:  catalog,
	}
}

func (m *Module) ID() string   { return ModuleID }
func (m *Module) Name() string { return ModuleName }
func (m *Module) Core() bool   { return true }

// Migrate creates the scan run table
func (m *Module) Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&database.ScanRun{})
}

// Init builds the scan manager, seeds the auto-organize default, and starts
// the inbox watcher when one is configured
func (m *Module) Init() error {
	if err := m.catalog.SeedAutoOrganize(m.cfg.Library.AutoOrganize); err != nil {
		return err
	}

	m.manager = scanner.NewManager(m.db, m.catalog, m.eventBus, m.cfg)

	if m.cfg.Library.InboxDir != "" {
		if err := m.manager.StartWatching(); err != nil {
			logger.Warn("Inbox watcher not started: %v", err)
		}
	}

	logger.Info("Scanner module initialized")
	return nil
}

// Shutdown stops the watcher and drains the job queue
func (m *Module) Shutdown() {
	if m.manager != nil {
		m.manager.Shutdown()
	}
}

// Manager exposes the scan manager to other modules
func (m *Module) Manager() *scanner.Manager {
	return m.manager
}
