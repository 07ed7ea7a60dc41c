package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis — backs the per-project compile gate
	RedisURL string

	// Asset store (Supabase-compatible storage API)
	StorageURL        string
	StorageServiceKey string
	StorageBucket     string

	// Renderer
	RendererURL    string
	RendererAPIKey string

	// Music preset catalog
	MusicCatalogPath string

	// Compile gate TTL in seconds — stale gates from crashed compiles expire
	// on their own instead of wedging the project.
	CompileGateTTLSeconds int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
		StorageURL:            getEnv("STORAGE_URL", ""),
		StorageServiceKey:     getEnv("STORAGE_SERVICE_KEY", ""),
		StorageBucket:         getEnv("STORAGE_BUCKET", "ad-videos"),
		RendererURL:           getEnv("RENDERER_URL", ""),
		RendererAPIKey:        getEnv("RENDERER_API_KEY", ""),
		MusicCatalogPath:      getEnv("MUSIC_CATALOG_PATH", "assets/music/presets.yaml"),
		// Must exceed the renderer's 10-minute poll ceiling, or a slow
		// render loses its gate mid-compile.
		CompileGateTTLSeconds: getEnvInt("COMPILE_GATE_TTL_SECONDS", 900),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RendererURL == "" {
		return nil, fmt.Errorf("RENDERER_URL is required")
	}

	if cfg.StorageURL == "" || cfg.StorageServiceKey == "" {
		return nil, fmt.Errorf("STORAGE_URL and STORAGE_SERVICE_KEY are required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
