// Package config loads application configuration from environment
// variables, with an optional .env file, and the camera inventory from
// YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"lapsecam/internal/backfill"
	"lapsecam/internal/logger"
	"lapsecam/internal/video"
)

// Config holds all configuration for the lapsecam binaries
type Config struct {
	// ArchiveURL is the base URL of the camera archive API
	ArchiveURL string
	// ArchiveToken is the bearer token for the archive API
	ArchiveToken string
	// CamerasFile is the path to the YAML camera inventory
	CamerasFile string
	// FramesDir is the root directory for stored frames, one
	// subdirectory per camera
	FramesDir string
	// VideosDir is the root directory for video artifacts
	VideosDir string
	// PollSpec is the capture daemon's evaluation cadence, a 5-field
	// cron expression
	PollSpec string
	// Backfill bounds a backfill run
	Backfill backfill.Limits
	// Video is the default encoding settings
	Video video.Settings
	// StateEnabled turns on the Redis state backend; without it the
	// frame store's newest file tracks the last capture
	StateEnabled bool
	// RedisURL is the Redis connection URL for the state backend
	RedisURL string
	// RunLockTTL is the per-camera run lock TTL
	RunLockTTL time.Duration
	// SummaryTTLSuccess is how long successful run summaries are kept
	SummaryTTLSuccess time.Duration
	// SummaryTTLFailure is how long failed run summaries are kept
	SummaryTTLFailure time.Duration
	// Logging configuration
	Logging *logger.Config
}

// LoadConfig loads configuration from environment variables with
// sensible defaults. A .env file in the working directory is applied
// first when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ArchiveURL:   getEnv("ARCHIVE_URL", "http://localhost:8080"),
		ArchiveToken: getEnv("ARCHIVE_TOKEN", ""),
		CamerasFile:  getEnv("CAMERAS_FILE", "cameras.yaml"),
		FramesDir:    getEnv("FRAMES_DIR", "./frames"),
		VideosDir:    getEnv("VIDEOS_DIR", "./videos"),
		PollSpec:     getEnv("POLL_SPEC", "*/15 * * * *"),
		Backfill: backfill.Limits{
			MaxDays:                    getEnvAsInt("BACKFILL_MAX_DAYS", 0),
			HardCeilingDays:            getEnvAsInt("BACKFILL_HARD_CEILING_DAYS", backfill.DefaultHardCeilingDays),
			StopAfterConsecutiveNoData: getEnvAsInt("BACKFILL_STOP_AFTER_NO_DATA", backfill.DefaultStopAfterConsecutiveNoData),
		},
		Video: video.Settings{
			FPS:         getEnvAsInt("VIDEO_FPS", 30),
			Quality:     getEnvAsInt("VIDEO_QUALITY", 3),
			Interpolate: getEnvAsBool("VIDEO_INTERPOLATE", false),
		},
		StateEnabled:      getEnvAsBool("STATE_ENABLED", false),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		RunLockTTL:        getEnvAsDuration("RUN_LOCK_TTL", 10*time.Minute),
		SummaryTTLSuccess: getEnvAsDuration("SUMMARY_TTL_SUCCESS", 1*time.Hour),
		SummaryTTLFailure: getEnvAsDuration("SUMMARY_TTL_FAILURE", 24*time.Hour),
		Logging:           loadLoggingConfig(),
	}

	if cfg.ArchiveURL == "" {
		return nil, fmt.Errorf("ARCHIVE_URL cannot be empty")
	}
	if cfg.CamerasFile == "" {
		return nil, fmt.Errorf("CAMERAS_FILE cannot be empty")
	}
	if cfg.Video.FPS < 1 {
		return nil, fmt.Errorf("VIDEO_FPS must be at least 1")
	}
	if cfg.Video.Quality < 1 || cfg.Video.Quality > 5 {
		return nil, fmt.Errorf("VIDEO_QUALITY must be between 1 and 5")
	}
	if cfg.Backfill.MaxDays < 0 {
		return nil, fmt.Errorf("BACKFILL_MAX_DAYS cannot be negative")
	}
	if cfg.StateEnabled && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL cannot be empty when STATE_ENABLED is set")
	}

	if err := cfg.Logging.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// loadLoggingConfig loads logging configuration from environment variables
func loadLoggingConfig() *logger.Config {
	cfg := logger.DefaultConfig()

	if level := getEnv("LOG_LEVEL", ""); level != "" {
		cfg.Level = logger.LogLevel(level)
	}
	if format := getEnv("LOG_FORMAT", ""); format != "" {
		cfg.Format = logger.LogFormat(format)
	}

	cfg.Console.Enabled = getEnvAsBool("LOG_CONSOLE_ENABLED", true)
	cfg.Console.Color = getEnvAsBool("LOG_COLOR", true)
	cfg.Console.BufferSize = getEnvAsInt("LOG_CONSOLE_BUFFER_SIZE", 65536)
	cfg.Console.FlushInterval = getEnvAsDuration("LOG_CONSOLE_FLUSH_INTERVAL", 100*time.Millisecond)

	cfg.File.Enabled = getEnvAsBool("LOG_FILE_ENABLED", false)
	cfg.File.Path = getEnv("LOG_FILE_PATH", "/var/log/lapsecam/lapsecam.log")
	cfg.File.MaxSizeMB = getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 100)
	cfg.File.MaxBackups = getEnvAsInt("LOG_FILE_MAX_BACKUPS", 5)
	cfg.File.MaxAgeDays = getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 30)
	cfg.File.Compress = getEnvAsBool("LOG_FILE_COMPRESS", true)
	cfg.File.BufferSize = getEnvAsInt("LOG_FILE_BUFFER_SIZE", 10000)
	cfg.File.BatchSize = getEnvAsInt("LOG_FILE_BATCH_SIZE", 100)
	cfg.File.BatchInterval = getEnvAsDuration("LOG_FILE_BATCH_INTERVAL", 100*time.Millisecond)

	return cfg
}
