package mediamodule

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chorus/internal/database"
	"chorus/internal/metadata"
	"chorus/internal/utils"
)

// ErrTrackNotFound is returned when a track lookup by ID finds nothing
var ErrTrackNotFound = errors.New("track not found")

// Catalog is the storage layer for artists, albums, and tracks. All writes
// for a single file go through one transaction so a failed import leaves no
// orphan rows.
type Catalog struct {
	db *gorm.DB
}

// NewCatalog creates a catalog backed by the given database
func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// ImportInput carries everything needed to record one audio file
type ImportInput struct {
	Meta          metadata.TrackMetadata
	Path          string
	ContentHash   string
	FileSizeBytes int64
}

// ImportTrack records a track and its artist and album in a single
// transaction. Artist and album rows are reused when they already exist, so
// importing many tracks of one album yields one artist row and one album row.
func (c *Catalog) ImportTrack(in ImportInput) (*database.Track, error) {
	var track *database.Track

	err := c.db.Transaction(func(tx *gorm.DB) error {
		artist, err := findOrCreateArtist(tx, in.Meta.Artist)
		if err != nil {
			return err
		}

		album, err := findOrCreateAlbum(tx, artist.ID, in.Meta.Album, in.Meta.Year)
		if err != nil {
			return err
		}

		track = &database.Track{
			Title:           in.Meta.Title,
			SortTitle:       utils.SortName(in.Meta.Title),
			AlbumID:         album.ID,
			ArtistID:        artist.ID,
			TrackNumber:     in.Meta.TrackNumber,
			DiscNumber:      in.Meta.DiscNumber,
			DurationSeconds: in.Meta.DurationSeconds,
			Path:            in.Path,
			Format:          in.Meta.Format,
			Bitrate:         in.Meta.Bitrate,
			FileSizeBytes:   in.FileSizeBytes,
			ContentHash:     in.ContentHash,
		}
		if err := tx.Create(track).Error; err != nil {
			return fmt.Errorf("failed to create track: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return track, nil
}

func findOrCreateArtist(tx *gorm.DB, name string) (*database.Artist, error) {
	var artist database.Artist
	err := tx.Where(&database.Artist{Name: name}).
		Attrs(&database.Artist{SortName: utils.SortName(name)}).
		FirstOrCreate(&artist).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find or create artist %q: %w", name, err)
	}
	return &artist, nil
}

func findOrCreateAlbum(tx *gorm.DB, artistID uint, title string, year int) (*database.Album, error) {
	var album database.Album
	err := tx.Where(&database.Album{Title: title, ArtistID: artistID}).
		Attrs(&database.Album{SortTitle: utils.SortName(title), Year: year}).
		FirstOrCreate(&album).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find or create album %q: %w", title, err)
	}
	return &album, nil
}

// TrackByContentHash returns the track with the given content hash, or nil
// when no track has it
func (c *Catalog) TrackByContentHash(hash string) (*database.Track, error) {
	var track database.Track
	err := c.db.Where("content_hash = ?", hash).First(&track).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// TrackByID returns a track by its primary key
func (c *Catalog) TrackByID(id uint) (*database.Track, error) {
	var track database.Track
	err := c.db.First(&track, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// UpdateTrackPath records a track's new location after the file was moved
func (c *Catalog) UpdateTrackPath(trackID uint, newPath string) error {
	return c.db.Model(&database.Track{}).
		Where("id = ?", trackID).
		Update("path", newPath).Error
}

// ListArtists returns all artists ordered by sort name
func (c *Catalog) ListArtists() ([]database.Artist, error) {
	var artists []database.Artist
	err := c.db.Order("sort_name").Find(&artists).Error
	return artists, err
}

// ListAlbums returns an artist's albums ordered by year then sort title
func (c *Catalog) ListAlbums(artistID uint) ([]database.Album, error) {
	var albums []database.Album
	err := c.db.Where("artist_id = ?", artistID).
		Order("year, sort_title").Find(&albums).Error
	return albums, err
}

// ListTracks returns an album's tracks in disc and track order
func (c *Catalog) ListTracks(albumID uint) ([]database.Track, error) {
	var tracks []database.Track
	err := c.db.Where("album_id = ?", albumID).
		Order("disc_number, track_number, sort_title").Find(&tracks).Error
	return tracks, err
}

// Stats returns row counts for the catalog overview endpoint
func (c *Catalog) Stats() (artists, albums, tracks int64, err error) {
	if err = c.db.Model(&database.Artist{}).Count(&artists).Error; err != nil {
		return
	}
	if err = c.db.Model(&database.Album{}).Count(&albums).Error; err != nil {
		return
	}
	err = c.db.Model(&database.Track{}).Count(&tracks).Error
	return
}

// AutoOrganizeEnabled reports whether imported files should be moved into
// the canonical library layout. Defaults to false when the setting is unset.
func (c *Catalog) AutoOrganizeEnabled() bool {
	var setting database.Setting
	err := c.db.First(&setting, "key = ?", database.SettingAutoOrganize).Error
	if err != nil {
		return false
	}
	return setting.Value == "true"
}

// SeedAutoOrganize writes the configured default when the settings table has
// no auto-organize value yet. An existing value is left alone.
func (c *Catalog) SeedAutoOrganize(enabled bool) error {
	var setting database.Setting
	err := c.db.First(&setting, "key = ?", database.SettingAutoOrganize).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.SetAutoOrganize(enabled)
	}
	return err
}

// SetAutoOrganize persists the auto-organize setting
func (c *Catalog) SetAutoOrganize(enabled bool) error {
	value := "false"
	if enabled {
		value = "true"
	}
	setting := database.Setting{Key: database.SettingAutoOrganize, Value: value}
	return c.db.Save(&setting).Error
}
