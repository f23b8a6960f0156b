package scannermodule

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chorus/internal/modules/scannermodule/scanner"
)

// RegisterRoutes registers the scanner HTTP endpoints
func (m *Module) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/scanner")
	{
		api.POST("/scan", m.startScan)
		api.GET("/scans", m.listScans)
		api.GET("/scans/:id", m.getScanStatus)
		api.GET("/status", m.getStatus)
		api.POST("/watch/start", m.startWatch)
		api.POST("/watch/stop", m.stopWatch)
		api.GET("/watch/status", m.watchStatus)
	}
}

func (m *Module) startScan(c *gin.Context) {
	var req struct {
		Paths []string `json:"paths"`
	}
	// An empty body means "scan the configured library root"
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	run, err := m.manager.StartScan(req.Paths)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start scan"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"scan_run_id": run.ID,
		"status":      run.Status,
	})
}

func (m *Module) listScans(c *gin.Context) {
	runs, err := m.manager.ListScans(20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list scans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": runs})
}

func (m *Module) getScanStatus(c *gin.Context) {
	run, err := m.manager.GetScanStatus(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "scan run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load scan run"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (m *Module) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"queue_depth": m.manager.QueueDepth(),
		"watcher":     m.manager.WatchStatus(),
	})
}

func (m *Module) startWatch(c *gin.Context) {
	if err := m.manager.StartWatching(); err != nil {
		if errors.Is(err, scanner.ErrWatcherRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": "watcher already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "watching"})
}

func (m *Module) stopWatch(c *gin.Context) {
	if err := m.manager.StopWatching(); err != nil {
		if errors.Is(err, scanner.ErrWatcherNotRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": "watcher is not running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (m *Module) watchStatus(c *gin.Context) {
	c.JSON(http.StatusOK, m.manager.WatchStatus())
}
