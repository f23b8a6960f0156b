package mediamodule

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the catalog browse endpoints
func (m *Module) RegisterRoutes(router *gin.Engine) {
	media := router.Group("/api/media")
	{
		media.GET("/artists", m.listArtists)
		media.GET("/artists/:id/albums", m.listAlbums)
		media.GET("/albums/:id/tracks", m.listTracks)
		media.GET("/tracks/:id", m.getTrack)
		media.GET("/stats", m.getStats)
		media.GET("/settings/auto-organize", m.getAutoOrganize)
		media.PUT("/settings/auto-organize", m.setAutoOrganize)
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (m *Module) listArtists(c *gin.Context) {
	artists, err := m.catalog.ListArtists()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list artists"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"artists": artists})
}

func (m *Module) listAlbums(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	albums, err := m.catalog.ListAlbums(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list albums"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"albums": albums})
}

func (m *Module) listTracks(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tracks, err := m.catalog.ListTracks(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tracks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

func (m *Module) getTrack(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	track, err := m.catalog.TrackByID(id)
	if err != nil {
		if errors.Is(err, ErrTrackNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "track not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load track"})
		return
	}
	c.JSON(http.StatusOK, track)
}

func (m *Module) getStats(c *gin.Context) {
	artists, albums, tracks, err := m.catalog.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"artists": artists,
		"albums":  albums,
		"tracks":  tracks,
	})
}

func (m *Module) getAutoOrganize(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": m.catalog.AutoOrganizeEnabled()})
}

func (m *Module) setAutoOrganize(c *gin.Context) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := m.catalog.SetAutoOrganize(req.Enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save setting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": req.Enabled})
}
