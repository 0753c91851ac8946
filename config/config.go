// Package config loads the application settings file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meigma/ultra/codec"
	"github.com/meigma/ultra/internal/atomicfile"
)

// FileName is the settings file name under the config directory.
const FileName = "config.yaml"

type Config struct {
	// Asset detection
	ModelExtensions   []string `yaml:"model_extensions"`
	TextureExtensions []string `yaml:"texture_extensions"`

	// Scene archives
	Compression      string `yaml:"compression"`
	CompressionLevel int    `yaml:"compression_level"`
	MaxResourceSize  uint64 `yaml:"max_resource_size"`

	// Previews
	PreviewSize int `yaml:"preview_size"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// UI Settings
	ColorTheme string `yaml:"color_theme"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ModelExtensions:   []string{".3ds", ".fbx", ".dae", ".x", ".stl", ".wrl", ".obj"},
		TextureExtensions: []string{".png", ".jpg", ".bmp", ".tga"},
		Compression:       "zstd",
		CompressionLevel:  3,
		MaxResourceSize:   256 << 20,
		PreviewSize:       128,
		LogLevel:          "info",
		LogFormat:         "text",
		ColorTheme:        "auto",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/ultra/config.yaml, or the
// platform's user config directory when XDG_CONFIG_HOME is unset.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate config directory: %w", err)
		}
	}
	return filepath.Join(dir, "ultra", FileName), nil
}

// Load reads configuration from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user-supplied config path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Empty lists fall back to the defaults.
	defaults := DefaultConfig()
	if len(cfg.ModelExtensions) == 0 {
		cfg.ModelExtensions = defaults.ModelExtensions
	}
	if len(cfg.TextureExtensions) == 0 {
		cfg.TextureExtensions = defaults.TextureExtensions
	}
	if cfg.Compression == "" {
		cfg.Compression = defaults.Compression
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaults.LogFormat
	}
	if cfg.ColorTheme == "" {
		cfg.ColorTheme = defaults.ColorTheme
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if _, err := codec.ParseAlgorithm(c.Compression); err != nil {
		errs = append(errs, err)
	}
	if c.PreviewSize <= 0 {
		errs = append(errs, fmt.Errorf("preview_size must be positive, got %d", c.PreviewSize))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	switch c.ColorTheme {
	case "auto", "light", "dark", "none":
	default:
		errs = append(errs, fmt.Errorf("color_theme must be auto, light, dark, or none, got %q", c.ColorTheme))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Algorithm returns the configured compression algorithm.
func (c *Config) Algorithm() codec.Algorithm {
	alg, err := codec.ParseAlgorithm(c.Compression)
	if err != nil {
		return codec.Zstd
	}
	return alg
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
