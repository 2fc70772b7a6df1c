package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the reelproxy server
type Config struct {
	// HTTP server settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Resolution client settings
	Resolver ResolverConfig `yaml:"resolver" json:"resolver"`

	// Media fetcher settings
	Fetcher FetcherConfig `yaml:"fetcher" json:"fetcher"`

	// Crop/transcode settings
	Transform TransformConfig `yaml:"transform" json:"transform"`

	// Ephemeral storage settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	// DirectStream streams /api/download responses as attachments instead
	// of saving under the downloads directory and returning a serve URL.
	DirectStream bool `yaml:"direct_stream" json:"direct_stream"`
}

// ResolverConfig holds retry and fallback configuration for URL resolution
type ResolverConfig struct {
	MaxAttempts         int           `yaml:"max_attempts" json:"max_attempts"`
	BackoffStep         time.Duration `yaml:"backoff_step" json:"backoff_step"`
	BackoffCap          time.Duration `yaml:"backoff_cap" json:"backoff_cap"`
	RateLimitCooldown   time.Duration `yaml:"rate_limit_cooldown" json:"rate_limit_cooldown"`
	FirstAttemptJitter  time.Duration `yaml:"first_attempt_jitter" json:"first_attempt_jitter"`
	FallbackEnabled     bool          `yaml:"fallback_enabled" json:"fallback_enabled"`
	PrivateProbeEnabled bool          `yaml:"private_probe_enabled" json:"private_probe_enabled"`
	RequestsPerMinute   int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	ExtractorPath       string        `yaml:"extractor_path" json:"extractor_path"`
	ExtractTimeout      time.Duration `yaml:"extract_timeout" json:"extract_timeout"`
}

// FetcherConfig holds outbound media request configuration
type FetcherConfig struct {
	ProbeTimeout  time.Duration `yaml:"probe_timeout" json:"probe_timeout"`
	StreamTimeout time.Duration `yaml:"stream_timeout" json:"stream_timeout"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
}

// TransformConfig holds crop pipeline configuration
type TransformConfig struct {
	FFmpegPath    string        `yaml:"ffmpeg_path" json:"ffmpeg_path"`
	FFprobePath   string        `yaml:"ffprobe_path" json:"ffprobe_path"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	MaxUploadSize int64         `yaml:"max_upload_size" json:"max_upload_size"`
}

// StorageConfig holds ephemeral artifact directory configuration
type StorageConfig struct {
	BaseDirectory string        `yaml:"base_directory" json:"base_directory"`
	DownloadTTL   time.Duration `yaml:"download_ttl" json:"download_ttl"`
	ProcessedTTL  time.Duration `yaml:"processed_ttl" json:"processed_ttl"`
	CropCleanup   time.Duration `yaml:"crop_cleanup" json:"crop_cleanup"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3001,
			ShutdownTimeout: 15 * time.Second,
			DirectStream:    true,
		},
		Resolver: ResolverConfig{
			MaxAttempts:         3,
			BackoffStep:         2 * time.Second,
			BackoffCap:          8 * time.Second,
			RateLimitCooldown:   5 * time.Second,
			FirstAttemptJitter:  250 * time.Millisecond,
			FallbackEnabled:     true,
			PrivateProbeEnabled: true,
			RequestsPerMinute:   60,
			ExtractorPath:       "yt-dlp",
			ExtractTimeout:      30 * time.Second,
		},
		Fetcher: FetcherConfig{
			ProbeTimeout:  10 * time.Second,
			StreamTimeout: 30 * time.Second,
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		},
		Transform: TransformConfig{
			FFmpegPath:    "ffmpeg",
			FFprobePath:   "ffprobe",
			Timeout:       2 * time.Minute,
			MaxUploadSize: 100 * 1024 * 1024,
		},
		Storage: StorageConfig{
			BaseDirectory: "./data",
			DownloadTTL:   time.Hour,
			ProcessedTTL:  5 * time.Second,
			CropCleanup:   1 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if port := os.Getenv("REELPROXY_PORT"); port != "" {
		if val, err := strconv.Atoi(port); err == nil && val > 0 {
			c.Server.Port = val
		}
	}
	if direct := os.Getenv("REELPROXY_DIRECT_STREAM"); direct != "" {
		c.Server.DirectStream = strings.ToLower(direct) == "true"
	}
	if attempts := os.Getenv("REELPROXY_MAX_ATTEMPTS"); attempts != "" {
		if val, err := strconv.Atoi(attempts); err == nil && val > 0 {
			c.Resolver.MaxAttempts = val
		}
	}
	if fallback := os.Getenv("REELPROXY_FALLBACK_ENABLED"); fallback != "" {
		c.Resolver.FallbackEnabled = strings.ToLower(fallback) == "true"
	}
	if extractor := os.Getenv("REELPROXY_EXTRACTOR_PATH"); extractor != "" {
		c.Resolver.ExtractorPath = extractor
	}
	if ua := os.Getenv("REELPROXY_USER_AGENT"); ua != "" {
		c.Fetcher.UserAgent = ua
	}
	if ffmpeg := os.Getenv("REELPROXY_FFMPEG_PATH"); ffmpeg != "" {
		c.Transform.FFmpegPath = ffmpeg
	}
	if ffprobe := os.Getenv("REELPROXY_FFPROBE_PATH"); ffprobe != "" {
		c.Transform.FFprobePath = ffprobe
	}
	if baseDir := os.Getenv("REELPROXY_DATA_DIR"); baseDir != "" {
		c.Storage.BaseDirectory = baseDir
	}
	if logLevel := os.Getenv("REELPROXY_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".reelproxy.yaml",
		".reelproxy.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "reelproxy", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "reelproxy", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server port must be between 1 and 65535"))
	}

	if c.Resolver.MaxAttempts <= 0 {
		errs = append(errs, errors.New("resolver max attempts must be positive"))
	}
	if c.Resolver.BackoffStep <= 0 {
		errs = append(errs, errors.New("resolver backoff step must be positive"))
	}
	if c.Resolver.BackoffCap < c.Resolver.BackoffStep {
		errs = append(errs, errors.New("resolver backoff cap must be at least the backoff step"))
	}
	if c.Resolver.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("resolver requests per minute must be positive"))
	}
	if c.Resolver.ExtractorPath == "" {
		errs = append(errs, errors.New("extractor path is required"))
	}

	if c.Fetcher.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("probe timeout must be positive"))
	}
	if c.Fetcher.UserAgent == "" {
		errs = append(errs, errors.New("fetcher user agent is required"))
	}

	if c.Transform.FFmpegPath == "" {
		errs = append(errs, errors.New("ffmpeg path is required"))
	}
	if c.Transform.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("max upload size must be positive"))
	}

	if c.Storage.BaseDirectory == "" {
		errs = append(errs, errors.New("storage base directory is required"))
	}
	if c.Storage.DownloadTTL <= 0 || c.Storage.ProcessedTTL <= 0 {
		errs = append(errs, errors.New("storage retention windows must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Environment variables > .env file > Config file > Defaults
func Load(configPath string) (*Config, error) {
	// Try to load .env (don't fail if it doesn't exist)
	_ = godotenv.Load(".env")

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
