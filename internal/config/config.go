package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mikaelweill/audio-guide-sub001/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port            string
	DBPath          string
	CacheDir        string
	HandleDir       string
	ProbeURL        string
	LogLevel        string
	LogFormat       string
	StallTimeout    time.Duration
	MaxDownloadTime time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	home, _ := os.UserHomeDir()
	defaultData := filepath.Join(home, ".local/share/tourcache")

	return &Config{
		Port:            getEnv("PORT", constants.DefaultPort),
		DBPath:          getEnv("DB_PATH", filepath.Join(defaultData, constants.DefaultDBPath)),
		CacheDir:        getEnv("CACHE_DIR", filepath.Join(defaultData, constants.DefaultCacheDir)),
		HandleDir:       getEnv("HANDLE_DIR", filepath.Join(os.TempDir(), constants.DefaultHandleDir)),
		ProbeURL:        getEnv("PROBE_URL", constants.DefaultProbeURL),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		StallTimeout:    getEnvDuration("STALL_TIMEOUT", constants.DefaultStallTimeout),
		MaxDownloadTime: getEnvDuration("MAX_DOWNLOAD_TIME", constants.DefaultMaxDownload),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	// Validate Port
	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	// Validate DBPath
	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	// Validate CacheDir
	if c.CacheDir == "" {
		errors = append(errors, "CACHE_DIR cannot be empty")
	}

	// Validate HandleDir
	if c.HandleDir == "" {
		errors = append(errors, "HANDLE_DIR cannot be empty")
	}

	// Validate ProbeURL
	if c.ProbeURL == "" {
		errors = append(errors, "PROBE_URL cannot be empty")
	} else {
		if _, err := url.Parse(c.ProbeURL); err != nil {
			errors = append(errors, fmt.Sprintf("PROBE_URL is not a valid URL: %s", c.ProbeURL))
		}
	}

	// Validate LogLevel
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	// Validate LogFormat
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	// Validate timeouts
	if c.StallTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("STALL_TIMEOUT must be positive, got: %s", c.StallTimeout))
	}
	if c.MaxDownloadTime <= 0 {
		errors = append(errors, fmt.Sprintf("MAX_DOWNLOAD_TIME must be positive, got: %s", c.MaxDownloadTime))
	}
	if c.StallTimeout > 0 && c.MaxDownloadTime > 0 && c.StallTimeout >= c.MaxDownloadTime {
		errors = append(errors, fmt.Sprintf("STALL_TIMEOUT (%s) must be shorter than MAX_DOWNLOAD_TIME (%s)", c.StallTimeout, c.MaxDownloadTime))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvDuration retrieves a duration environment variable with a fallback default
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
