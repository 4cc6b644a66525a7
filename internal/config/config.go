// Package config provides configuration for the orchestrator.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the orchestrator runtime configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Persistence
	DatabaseURL string
	DataDir     string

	// Agent lifecycle
	StaleTimeout        time.Duration
	HealthCheckInterval time.Duration
	CleanupInterval     time.Duration
	ProbeTimeout        time.Duration

	// Synchronization
	SyncEnabled  bool
	SyncInterval time.Duration

	// Deployment
	DeployMode        string
	DeployStepTimeout time.Duration

	// Rate limiting
	RateLimitWindow time.Duration
	RateLimitMax    int

	ShutdownTimeout time.Duration

	// Business configuration file served by /config
	BusinessConfigPath string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:            getEnvInt("HTTP_PORT", 3000),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DataDir:             getEnv("DATA_DIR", "./data"),
		StaleTimeout:        getEnvDuration("STALE_TIMEOUT_MS", 5*time.Minute),
		HealthCheckInterval: getEnvDuration("HEALTH_CHECK_INTERVAL_MS", 30*time.Second),
		CleanupInterval:     getEnvDuration("CLEANUP_INTERVAL_MS", time.Minute),
		ProbeTimeout:        getEnvDuration("PROBE_TIMEOUT_MS", 5*time.Second),
		SyncEnabled:         getEnvBool("SYNC_ENABLED", false),
		SyncInterval:        getEnvDuration("SYNC_INTERVAL_MS", time.Minute),
		DeployMode:          getEnv("DEPLOY_MODE", "simulated"),
		DeployStepTimeout:   getEnvDuration("DEPLOY_STEP_TIMEOUT_MS", 30*time.Second),
		RateLimitWindow:     getEnvDuration("RATE_LIMIT_WINDOW_MS", 15*time.Minute),
		RateLimitMax:        getEnvInt("RATE_LIMIT_MAX", 1000),
		ShutdownTimeout:     getEnvDuration("SHUTDOWN_TIMEOUT_MS", 10*time.Second),
		BusinessConfigPath:  getEnv("BUSINESS_CONFIG_PATH", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
	}
}

// Default returns the configuration Load produces with an empty environment.
// Tests start from it and override fields.
func Default() *Config {
	return &Config{
		HTTPPort:            3000,
		DataDir:             "./data",
		StaleTimeout:        5 * time.Minute,
		HealthCheckInterval: 30 * time.Second,
		CleanupInterval:     time.Minute,
		ProbeTimeout:        5 * time.Second,
		SyncInterval:        time.Minute,
		DeployMode:          "simulated",
		DeployStepTimeout:   30 * time.Second,
		RateLimitWindow:     15 * time.Minute,
		RateLimitMax:        1000,
		ShutdownTimeout:     10 * time.Second,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// Validate checks that intervals and limits are usable.
func (c *Config) Validate() error {
	durations := map[string]time.Duration{
		"STALE_TIMEOUT_MS":         c.StaleTimeout,
		"HEALTH_CHECK_INTERVAL_MS": c.HealthCheckInterval,
		"CLEANUP_INTERVAL_MS":      c.CleanupInterval,
		"PROBE_TIMEOUT_MS":         c.ProbeTimeout,
		"SYNC_INTERVAL_MS":         c.SyncInterval,
		"DEPLOY_STEP_TIMEOUT_MS":   c.DeployStepTimeout,
		"RATE_LIMIT_WINDOW_MS":     c.RateLimitWindow,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.RateLimitMax <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT %d out of range", c.HTTPPort)
	}
	switch c.DeployMode {
	case "simulated", "http":
	default:
		return fmt.Errorf("DEPLOY_MODE must be simulated or http, got %q", c.DeployMode)
	}
	return nil
}

// Public returns the runtime settings that are safe to expose to agents.
func (c *Config) Public() map[string]interface{} {
	return map[string]interface{}{
		"staleTimeoutMs":        c.StaleTimeout.Milliseconds(),
		"healthCheckIntervalMs": c.HealthCheckInterval.Milliseconds(),
		"cleanupIntervalMs":     c.CleanupInterval.Milliseconds(),
		"syncEnabled":           c.SyncEnabled,
		"syncIntervalMs":        c.SyncInterval.Milliseconds(),
		"deployMode":            c.DeployMode,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return defaultVal
}
