package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adreel/composer/internal/api"
	"github.com/adreel/composer/internal/compile"
	"github.com/adreel/composer/internal/config"
	"github.com/adreel/composer/internal/db"
	"github.com/adreel/composer/internal/gate"
	"github.com/adreel/composer/internal/renderer"
	"github.com/adreel/composer/internal/storage"
)

func main() {
	log.Println("Starting AdReel composer API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to the redis-backed compile gate
	compileGate, err := gate.New(cfg.RedisURL, time.Duration(cfg.CompileGateTTLSeconds)*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to compile gate: %v", err)
	}
	defer compileGate.Close()
	log.Println("Connected to compile gate")

	// Load the music preset catalog
	catalog, err := config.LoadMusicCatalog(cfg.MusicCatalogPath)
	if err != nil {
		log.Fatalf("Failed to load music catalog: %v", err)
	}
	log.Printf("Loaded %d music presets", len(catalog.Presets()))

	// Initialize asset store and renderer clients
	stor := storage.New(cfg.StorageURL, cfg.StorageServiceKey, cfg.StorageBucket)
	render := renderer.NewClient(cfg.RendererURL, cfg.RendererAPIKey)

	// Wire the compile coordinator
	coord := compile.New(database, compileGate, render, stor, catalog)

	// Create API handler
	handler := api.NewHandler(database, coord, catalog, stor, compileGate)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
