package playbackmodule

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"chorus/internal/config"
	"chorus/internal/database"
	"chorus/internal/events"
	"chorus/internal/modules/mediamodule"
	"chorus/internal/scanerrors"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest("mp3", 192))
	assert.NoError(t, ValidateRequest("ogg", MinBitrate))
	assert.NoError(t, ValidateRequest("opus", MaxBitrate))
	assert.NoError(t, ValidateRequest("aac", 128))

	assert.ErrorIs(t, ValidateRequest("wma", 192), scanerrors.ErrUnsupportedFormat)
	assert.ErrorIs(t, ValidateRequest("", 192), scanerrors.ErrUnsupportedFormat)
	assert.ErrorIs(t, ValidateRequest("mp3", MinBitrate-1), scanerrors.ErrBitrateOutOfRange)
	assert.ErrorIs(t, ValidateRequest("mp3", MaxBitrate+1), scanerrors.ErrBitrateOutOfRange)
	assert.ErrorIs(t, ValidateRequest("mp3", 0), scanerrors.ErrBitrateOutOfRange)
}

func TestTranscodeRejectsBadRequests(t *testing.T) {
	router, db := setupPlayback(t)
	track, _ := seedTrack(t, db, 256)

	base := "/api/playback/tracks/" + itoa(track.ID) + "/transcode"

	rec := get(router, base+"?format=wma", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(router, base+"?format=mp3&bitrate=32", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(router, base+"?format=mp3&bitrate=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(router, base+"?format=mp3&bitrate=512", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranscodeFailsWhenEncoderProducesNoOutput(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&database.Artist{}, &database.Album{}, &database.Track{}, &database.Setting{},
	))

	bus := events.NewEventBus(100)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { bus.Stop(context.Background()) })

	// /bin/true exits immediately without writing a byte
	cfg := config.Default()
	cfg.Transcoding.FFmpegPath = "true"

	module := NewModule(db, bus, cfg, mediamodule.NewCatalog(db))
	router := gin.New()
	module.RegisterRoutes(router)

	track, _ := seedTrack(t, db, 256)
	rec := get(router, "/api/playback/tracks/"+itoa(track.ID)+"/transcode?format=mp3", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTranscodeMissingTrack(t *testing.T) {
	router, _ := setupPlayback(t)

	rec := get(router, "/api/playback/tracks/404404/transcode?format=mp3", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
