package database

import (
	"time"
)

// Artist represents a music artist in the catalog
type Artist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	SortName  string    `gorm:"index" json:"sort_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Album represents an album owned by exactly one artist.
// (title, artist_id) is the natural dedup key used by find-or-create.
type Album struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"not null;uniqueIndex:idx_albums_title_artist" json:"title"`
	SortTitle    string    `gorm:"index" json:"sort_title"`
	ArtistID     uint      `gorm:"not null;uniqueIndex:idx_albums_title_artist" json:"artist_id"`
	Artist       Artist    `gorm:"foreignKey:ArtistID" json:"artist,omitempty"`
	Year         int       `json:"year"`
	CoverArtPath string    `json:"cover_art_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Track represents a single audio file in the catalog. ContentHash is the
// deduplication invariant: no two tracks may share a hash.
type Track struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"not null" json:"title"`
	SortTitle       string    `gorm:"index" json:"sort_title"`
	AlbumID         uint      `gorm:"not null;index" json:"album_id"`
	Album           Album     `gorm:"foreignKey:AlbumID" json:"album,omitempty"`
	ArtistID        uint      `gorm:"not null;index" json:"artist_id"`
	Artist          Artist    `gorm:"foreignKey:ArtistID" json:"artist,omitempty"`
	TrackNumber     *int      `json:"track_number,omitempty"`
	DiscNumber      *int      `json:"disc_number,omitempty"`
	DurationSeconds int       `json:"duration_seconds"`
	Path            string    `gorm:"not null" json:"path"`
	Format          string    `json:"format"`
	Bitrate         *int      `json:"bitrate,omitempty"`
	FileSizeBytes   int64     `json:"file_size_bytes"`
	ContentHash     string    `gorm:"uniqueIndex;not null" json:"content_hash"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ScanRun is a tracked, pollable execution of a library scan. It outlives
// the transient queue job that drives it.
type ScanRun struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	Status         string     `gorm:"index;not null" json:"status"`
	Progress       float64    `json:"progress"`
	CurrentFile    string     `json:"current_file,omitempty"`
	TotalFiles     int        `json:"total_files"`
	ProcessedFiles int        `json:"processed_files"`
	ErrorCount     int        `json:"error_count"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Setting is a simple key/value application setting
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingAutoOrganize is the settings key for the auto-organize toggle
const SettingAutoOrganize = "auto_organize"
