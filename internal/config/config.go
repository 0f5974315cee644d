// Package config loads the frame service configuration from a TOML file.
//
// A missing file is not an error: DefaultConfig is used instead, so the
// service runs out of the box with assets in ./assets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the config file looked up when no -config flag is given.
const DefaultPath = "frameapp.toml"

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Server holds HTTP listener and request limits.
	Server ServerConfig `toml:"server"`
	// Assets holds the frame and font locations.
	Assets AssetsConfig `toml:"assets"`
	// Greeting holds message selection settings.
	Greeting GreetingConfig `toml:"greeting"`
	// Output holds response encoding settings.
	Output OutputConfig `toml:"output"`
	// Fetch holds settings for composing from an image URL.
	Fetch FetchConfig `toml:"fetch"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// Addr is the listen address; the PORT environment variable overrides it.
	Addr string `toml:"addr"`
	// MaxUploadMB caps the size of an uploaded photo.
	MaxUploadMB int `toml:"max_upload_mb"`
	// RatePerSecond is the per-IP request rate for /api/compose (0 disables).
	RatePerSecond float64 `toml:"rate_per_second"`
	// RateBurst is the per-IP burst size.
	RateBurst int `toml:"rate_burst"`
	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `toml:"shutdown_timeout_seconds"`
}

// AssetsConfig holds the frame and font file names.
type AssetsConfig struct {
	// Dir is the directory the other paths are relative to.
	Dir string `toml:"dir"`
	// FramePortrait is the portrait (vertical) frame image.
	FramePortrait string `toml:"frame_portrait"`
	// FrameLandscape is the landscape (horizontal) frame image.
	FrameLandscape string `toml:"frame_landscape"`
	// Font is the caption font (TTF, OTF or WOFF2).
	Font string `toml:"font"`
	// FontFallbackGlobs are tried in order when Font cannot be loaded.
	FontFallbackGlobs []string `toml:"font_fallback_globs"`
	// Watch enables asset directory watching for the health endpoint.
	Watch bool `toml:"watch"`
	// RequireFrames refuses startup when either frame image is unreadable.
	// When false a missing frame surfaces per request and on /api/health.
	RequireFrames bool `toml:"require_frames"`
}

// GreetingConfig holds message selection settings.
type GreetingConfig struct {
	// Year anchors the Christmas countdown; 0 follows the current date.
	Year int `toml:"year"`
	// Locale is "zh-TW" or "en".
	Locale string `toml:"locale"`
}

// OutputConfig holds response encoding settings.
type OutputConfig struct {
	// Format is the default output format: "png" or "jpeg".
	Format string `toml:"format"`
	// JPEGQuality is used when Format is jpeg.
	JPEGQuality int `toml:"jpeg_quality"`
}

// FetchConfig holds remote image download settings.
type FetchConfig struct {
	// Enabled allows the image_url form field.
	Enabled bool `toml:"enabled"`
	// TimeoutSeconds is the per-attempt HTTP timeout.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// RetryMax is the number of retries after the first attempt.
	RetryMax int `toml:"retry_max"`
	// AllowPrivateNetworks lets image_url reach loopback, private and
	// link-local addresses. Leave off on anything reachable from outside.
	AllowPrivateNetworks bool `toml:"allow_private_networks"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// File is the log file path; empty logs to stderr.
	File string `toml:"file"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                   ":8080",
			MaxUploadMB:            10,
			RatePerSecond:          2,
			RateBurst:              5,
			ShutdownTimeoutSeconds: 10,
		},
		Assets: AssetsConfig{
			Dir:               "assets",
			FramePortrait:     "frame_vertical.png",
			FrameLandscape:    "frame_horizontal.png",
			Font:              "NotoSansTC-Regular.ttf",
			FontFallbackGlobs: []string{"fonts/**/*.{ttf,otf,woff2}"},
			Watch:             true,
			RequireFrames:     true,
		},
		Greeting: GreetingConfig{
			Year:   0,
			Locale: "zh-TW",
		},
		Output: OutputConfig{
			Format:      "png",
			JPEGQuality: 90,
		},
		Fetch: FetchConfig{
			Enabled:        true,
			TimeoutSeconds: 10,
			RetryMax:       2,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// Loading
// ///////////////////////////////////////////////

// Load reads and parses the configuration file at path. If the file doesn't
// exist, returns DefaultConfig. The PORT environment variable, when set,
// overrides Server.Addr.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be > 0, got %d", c.Server.MaxUploadMB)
	}
	if c.Server.RatePerSecond < 0 {
		return fmt.Errorf("server.rate_per_second must be >= 0, got %g", c.Server.RatePerSecond)
	}
	if c.Server.RatePerSecond > 0 && c.Server.RateBurst <= 0 {
		return fmt.Errorf("server.rate_burst must be > 0 when rate limiting, got %d", c.Server.RateBurst)
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("server.shutdown_timeout_seconds must be > 0, got %d", c.Server.ShutdownTimeoutSeconds)
	}

	if c.Assets.FramePortrait == "" || c.Assets.FrameLandscape == "" {
		return fmt.Errorf("assets.frame_portrait and assets.frame_landscape are required")
	}

	switch c.Greeting.Locale {
	case "zh-TW", "en":
	default:
		return fmt.Errorf("invalid greeting.locale %q: must be zh-TW or en", c.Greeting.Locale)
	}
	if c.Greeting.Year < 0 {
		return fmt.Errorf("greeting.year must be >= 0, got %d", c.Greeting.Year)
	}

	switch strings.ToLower(c.Output.Format) {
	case "png", "jpeg", "jpg":
	default:
		return fmt.Errorf("invalid output.format %q: must be png or jpeg", c.Output.Format)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be 1-100, got %d", c.Output.JPEGQuality)
	}

	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0, got %d", c.Fetch.TimeoutSeconds)
	}
	if c.Fetch.RetryMax < 0 {
		return fmt.Errorf("fetch.retry_max must be >= 0, got %d", c.Fetch.RetryMax)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}
	return nil
}

// ///////////////////////////////////////////////
// Resolved paths
// ///////////////////////////////////////////////

// AssetPath joins name onto the assets directory unless it is absolute.
func (c *Config) AssetPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Assets.Dir, name)
}

// FontGlobs returns the fallback font globs resolved against the assets
// directory.
func (c *Config) FontGlobs() []string {
	out := make([]string, 0, len(c.Assets.FontFallbackGlobs))
	for _, g := range c.Assets.FontFallbackGlobs {
		out = append(out, c.AssetPath(g))
	}
	return out
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}
