package playbackmodule

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chorus/internal/database"
	"chorus/internal/events"
	"chorus/internal/modules/mediamodule"
)

// RegisterRoutes registers the playback endpoints
func (m *Module) RegisterRoutes(router *gin.Engine) {
	playback := router.Group("/api/playback")
	{
		playback.GET("/tracks/:id/stream", m.streamTrack)
		playback.GET("/tracks/:id/download", m.downloadTrack)
		playback.GET("/tracks/:id/transcode", m.transcodeTrack)
	}
}

func (m *Module) loadTrack(c *gin.Context) (*database.Track, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid track id"})
		return nil, false
	}

	track, err := m.catalog.TrackByID(uint(id))
	if err != nil {
		if errors.Is(err, mediamodule.ErrTrackNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "track not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load track"})
		return nil, false
	}
	return track, true
}

func (m *Module) streamTrack(c *gin.Context) {
	track, ok := m.loadTrack(c)
	if !ok {
		return
	}

	m.eventBus.PublishAsync(events.Event{
		Type:    events.EventPlaybackStarted,
		Source:  "playback",
		Title:   "Playback started",
		Message: track.Title,
		Data:    map[string]interface{}{"track_id": track.ID},
	})

	m.streamer.Stream(c, track)
}

func (m *Module) downloadTrack(c *gin.Context) {
	track, ok := m.loadTrack(c)
	if !ok {
		return
	}
	m.streamer.Download(c, track)
}

func (m *Module) transcodeTrack(c *gin.Context) {
	track, ok := m.loadTrack(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "mp3")
	bitrate := DefaultBitrate
	if raw := c.Query("bitrate"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bitrate"})
			return
		}
		bitrate = parsed
	}

	m.transcoder.Transcode(c, track, format, bitrate)
}
