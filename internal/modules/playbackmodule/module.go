package playbackmodule

import (
	"gorm.io/gorm"

	"chorus/internal/config"
	"chorus/internal/events"
	"chorus/internal/logger"
	"chorus/internal/modules/mediamodule"
)

const (
	ModuleID   = "system.playback"
	ModuleName = "Playback"
)

// Module serves audio streaming, download, and transcode endpoints
type Module struct {
	db         *gorm.DB
	eventBus   events.EventBus
	catalog    *mediamodule.Catalog
	streamer   *Streamer
	transcoder *Transcoder
}

// NewModule creates the playback module
func NewModule(db *gorm.DB, eventBus events.EventBus, cfg *config.Config, catalog *mediamodule.Catalog) *Module {
	return &Module{
		db:         db,
		eventBus:   eventBus,
		catalog:    catalog,
		streamer:   NewStreamer(),
		transcoder: NewTranscoder(cfg.Transcoding.FFmpegPath),
	}
}

func (m *Module) ID() string   { return ModuleID }
func (m *Module) Name() string { return ModuleName }
func (m *Module) Core() bool   { return false }

// Migrate is a no-op; playback reads the catalog tables owned by the media
// module
func (m *Module) Migrate(db *gorm.DB) error {
	return nil
}

// Init initializes the playback module
func (m *Module) Init() error {
	if !m.transcoder.Available() {
		logger.Warn("ffmpeg not found; transcode endpoint will fail until it is installed")
	}
	logger.Info("Playback module initialized")
	return nil
}
