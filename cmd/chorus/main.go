package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chorus/internal/config"
	"chorus/internal/database"
	"chorus/internal/events"
	"chorus/internal/logger"
	"chorus/internal/server"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Initialize(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	eventBus := events.NewEventBus(1000)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start event bus: %v", err)
	}

	router, err := server.SetupRouter(db, eventBus, cfg)
	if err != nil {
		log.Fatalf("Failed to set up server: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("Starting chorus server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	eventBus.PublishAsync(events.NewSystemEvent(events.EventSystemStarted,
		"Server started", addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error: %v", err)
	}

	// Stops the inbox watcher and drains the job queue
	server.Shutdown()

	eventBus.PublishAsync(events.NewSystemEvent(events.EventSystemStopped,
		"Server stopped", addr))
	if err := eventBus.Stop(ctx); err != nil {
		logger.Error("Event bus shutdown error: %v", err)
	}

	logger.Info("Shutdown complete")
}
