// Package config loads settings from the environment, after applying any
// .env file found in the working directory.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	AuthorityURL string
	IdentityURL  string
	Token        string
	RedisURL     string // empty disables the snapshot cache
	SnapshotTTL  time.Duration
	Port         string
	JWTSecret    string
	CORSOrigin   string
}

// Load reads configuration from environment variables with defaults.
// Variables already set in the environment win over .env.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Could not read .env")
	}
	return &Config{
		AuthorityURL: envOrDefault("SALVO_AUTHORITY_URL", "http://localhost:8010"),
		IdentityURL:  envOrDefault("SALVO_IDENTITY_URL", ""),
		Token:        envOrDefault("SALVO_TOKEN", ""),
		RedisURL:     envOrDefault("REDIS_URL", ""),
		SnapshotTTL:  durationOrDefault("SNAPSHOT_TTL", 6*time.Hour),
		Port:         envOrDefault("DEVSERVER_PORT", "8010"),
		JWTSecret:    envOrDefault("JWT_SECRET", "dev-secret-change-me"),
		CORSOrigin:   envOrDefault("CORS_ORIGIN", "*"),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration, using default")
		return fallback
	}
	return d
}
