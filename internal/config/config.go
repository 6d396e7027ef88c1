// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// APIConfig holds settings for the forum backend REST endpoint
type APIConfig struct {
	BaseURL        string
	EventsURL      string // websocket event feed, empty disables the listener
	RequestTimeout time.Duration
}

// CacheConfig holds settings for the per-post comment cache store
type CacheConfig struct {
	Backend  string // "memory" or "redis"
	RedisURL string
}

// SessionConfig holds settings for client-side token validation
type SessionConfig struct {
	JWTSecret string
}

// Config holds the complete client configuration
type Config struct {
	API     *APIConfig
	Cache   *CacheConfig
	Session *SessionConfig
	Debug   bool
}

// DefaultAPIConfig provides default backend endpoint settings
func DefaultAPIConfig() *APIConfig {
	return &APIConfig{
		BaseURL:        "http://localhost:8080",
		EventsURL:      "",
		RequestTimeout: 10 * time.Second,
	}
}

// DefaultCacheConfig provides default cache store settings
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Backend: "memory",
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Try to load .env file from multiple possible locations
	envLocations := []string{
		".env",       // Current directory
		"../../.env", // Project root when running from cmd/client
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		// Silent failure if no .env exists, which is fine
		_ = godotenv.Load()
	}

	apiConfig := DefaultAPIConfig()

	if baseURL := os.Getenv("API_BASE_URL"); baseURL != "" {
		apiConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}

	if eventsURL := os.Getenv("API_EVENTS_URL"); eventsURL != "" {
		apiConfig.EventsURL = eventsURL
	}

	if timeoutStr := os.Getenv("API_REQUEST_TIMEOUT_MS"); timeoutStr != "" {
		if ms, err := strconv.Atoi(timeoutStr); err == nil && ms > 0 {
			apiConfig.RequestTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	cacheConfig := DefaultCacheConfig()

	if backend := os.Getenv("CACHE_BACKEND"); backend != "" {
		cacheConfig.Backend = backend
	}

	switch cacheConfig.Backend {
	case "memory":
		// Nothing else to configure
	case "redis":
		cacheConfig.RedisURL = getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0")
	default:
		return nil, fmt.Errorf("unsupported CACHE_BACKEND %q (want \"memory\" or \"redis\")", cacheConfig.Backend)
	}

	sessionConfig := &SessionConfig{
		JWTSecret: os.Getenv("JWT_SECRET"),
	}
	if sessionConfig.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	config := &Config{
		API:     apiConfig,
		Cache:   cacheConfig,
		Session: sessionConfig,
		Debug:   false,
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		config.Debug = true
	}

	return config, nil
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
