// Package mediamodule owns the music catalog: artists, albums, tracks, and
// the browse API over them.
package mediamodule

import (
	"gorm.io/gorm"

	"chorus/internal/database"
	"chorus/internal/events"
	"chorus/internal/logger"
)

const (
	ModuleID   = "system.media"
	ModuleName = "Media Catalog"
)

// Module manages the media catalog
type Module struct {
	db       *gorm.DB
	eventBus events.EventBus
	catalog  *Catalog
}

// NewModule creates the media catalog module
func NewModule(db *gorm.DB, eventBus events.EventBus) *Module {
	return &Module{
		db:       db,
		eventBus: eventBus,
		catalog:  NewCatalog(db),
	}
}

func (m *Module) ID() string   { return ModuleID }
func (m *Module) Name() string { return ModuleName }
func (m *Module) Core() bool   { return true }

// Migrate creates the catalog tables
func (m *Module) Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&database.Artist{},
		&database.Album{},
		&database.Track{},
		&database.Setting{},
	)
}

// Init initializes the media module
func (m *Module) Init() error {
	logger.Info("Media module initialized")
	return nil
}

// Catalog exposes the storage layer to other modules
func (m *Module) Catalog() *Catalog {
	return m.catalog
}
