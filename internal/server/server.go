// Package server builds the HTTP router and wires the feature modules
// together.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chorus/internal/config"
	"chorus/internal/events"
	"chorus/internal/logger"
	"chorus/internal/modules/mediamodule"
	"chorus/internal/modules/modulemanager"
	"chorus/internal/modules/playbackmodule"
	"chorus/internal/modules/scannermodule"
)

// SetupRouter constructs the modules, loads them through the registry, and
// returns the configured router
func SetupRouter(db *gorm.DB, eventBus events.EventBus, cfg *config.Config) (*gin.Engine, error) {
	r := gin.Default()

	// CORS middleware for development
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	media := mediamodule.NewModule(db, eventBus)
	modulemanager.Register(media)
	modulemanager.Register(scannermodule.NewModule(db, eventBus, cfg, media.Catalog()))
	modulemanager.Register(playbackmodule.NewModule(db, eventBus, cfg, media.Catalog()))

	if err := modulemanager.LoadAll(db); err != nil {
		return nil, err
	}

	registerSystemRoutes(r, eventBus)
	modulemanager.RegisterRoutes(r)

	logger.Info("Module system initialized with %d modules", len(modulemanager.ListModules()))
	return r, nil
}

// Shutdown stops all modules that hold background resources
func Shutdown() {
	modulemanager.ShutdownAll()
}

func registerSystemRoutes(r *gin.Engine, eventBus events.EventBus) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/api/events/recent", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"events": eventBus.GetRecent(50)})
	})

	r.GET("/api/modules", func(c *gin.Context) {
		modules := modulemanager.ListModules()
		list := make([]gin.H, 0, len(modules))
		for _, m := range modules {
			list = append(list, gin.H{
				"id":   m.ID(),
				"name": m.Name(),
				"core": m.Core(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"modules": list})
	})
}
