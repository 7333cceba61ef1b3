// Package config loads the server configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BlobBackendSQLite = "sqlite"
	BlobBackendOSS    = "oss"
)

// Config holds every runtime setting of the server.
type Config struct {
	Port         string
	DatabasePath string
	JWTSecret    string
	// CookieSecure defaults to true; disable only for local development.
	CookieSecure bool
	BcryptCost   int

	BlobBackend    string
	BlobPublicBase string // Base URL of blobs served from the database
	OSS            OSSConfig

	ToastDuration time.Duration
	ViewCacheSize int
	ViewCacheTTL  time.Duration

	// OrphanSweepSchedule is a cron spec; empty disables the sweep.
	OrphanSweepSchedule string
	OrphanSweepGrace    time.Duration
}

// OSSConfig holds the hosted object storage coordinates.
type OSSConfig struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	AccessKeySecret string
	PublicBase      string
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           envOrDefault("PORT", "8080"),
		DatabasePath:   envOrDefault("DATABASE_PATH", "pyq-archive.db"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		CookieSecure:   os.Getenv("COOKIE_SECURE") != "false",
		BlobBackend:    strings.ToLower(envOrDefault("BLOB_BACKEND", BlobBackendSQLite)),
		BlobPublicBase: envOrDefault("BLOB_PUBLIC_BASE", "/files"),
		OSS: OSSConfig{
			Endpoint:        os.Getenv("OSS_ENDPOINT"),
			Bucket:          os.Getenv("OSS_BUCKET"),
			AccessKeyID:     os.Getenv("OSS_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("OSS_ACCESS_KEY_SECRET"),
			PublicBase:      os.Getenv("OSS_PUBLIC_BASE"),
		},
		OrphanSweepSchedule: "@every 1h",
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}

	var err error
	cfg.BcryptCost, err = envInt("BCRYPT_COST", 12)
	if err != nil {
		return nil, err
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 14 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", cfg.BcryptCost)
	}

	switch cfg.BlobBackend {
	case BlobBackendSQLite:
	case BlobBackendOSS:
		if cfg.OSS.Endpoint == "" || cfg.OSS.Bucket == "" || cfg.OSS.AccessKeyID == "" || cfg.OSS.AccessKeySecret == "" {
			return nil, fmt.Errorf("BLOB_BACKEND=oss requires OSS_ENDPOINT, OSS_BUCKET, OSS_ACCESS_KEY_ID and OSS_ACCESS_KEY_SECRET")
		}
	default:
		return nil, fmt.Errorf("BLOB_BACKEND must be %q or %q, got %q", BlobBackendSQLite, BlobBackendOSS, cfg.BlobBackend)
	}

	if cfg.ToastDuration, err = envDuration("TOAST_DURATION", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.ViewCacheSize, err = envInt("VIEW_CACHE_SIZE", 1024); err != nil {
		return nil, err
	}
	if cfg.ViewCacheSize < 1 {
		return nil, fmt.Errorf("VIEW_CACHE_SIZE must be positive, got %d", cfg.ViewCacheSize)
	}
	if cfg.ViewCacheTTL, err = envDuration("VIEW_CACHE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv("ORPHAN_SWEEP_SCHEDULE"); ok {
		cfg.OrphanSweepSchedule = strings.TrimSpace(v)
	}
	if cfg.OrphanSweepGrace, err = envDuration("ORPHAN_SWEEP_GRACE", time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
