package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"calplan/internal/fsutil"
)

// DefaultTags is the preset label set offered by the event form.
var DefaultTags = []string{"Focus", "Health", "Family", "Deep Work", "Learning", "Personal"}

const (
	defaultListen     = "127.0.0.1:8080"
	defaultStorageKey = "calendar-app-events@v1"
	defaultBackupCron = "0 3 * * *"
	defaultBackupKeep = 14
	defaultWidth      = 1280
	defaultHeight     = 900
)

// StorageConfig selects the key/value backend holding the event collection.
type StorageConfig struct {
	// Driver is one of "file", "sqlite" or "memory".
	Driver string `yaml:"driver" json:"driver"`
	// Path is a directory for "file" and a database file for "sqlite".
	Path string `yaml:"path" json:"path"`
	// Key names the entry that holds the serialized collection.
	Key string `yaml:"key" json:"key"`
}

// BackupConfig controls the scheduled JSON snapshot job.
type BackupConfig struct {
	// Cron is a five-field schedule. Empty disables the job.
	Cron string `yaml:"cron" json:"cron"`
	Dir  string `yaml:"dir" json:"dir"`
	// Keep is how many snapshots survive pruning.
	Keep int `yaml:"keep" json:"keep"`
}

// CaptureConfig controls the month page screenshot.
type CaptureConfig struct {
	// Cron is optional; without it the preview is only captured on demand.
	Cron   string `yaml:"cron" json:"cron"`
	URL    string `yaml:"url" json:"url"`
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used to decide calendar days. Empty means local.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is "debug", "info" or "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Tags is the preset list; empty leaves the tag field free-form.
	Tags []string `yaml:"tags" json:"tags"`

	Backup  BackupConfig  `yaml:"backup" json:"backup"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultDir is the per-user directory holding config and data.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base = "."
	}
	return filepath.Join(base, "calplan")
}

// DefaultPath is where Load looks when no --config is given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns an in-memory default configuration rooted at dir.
func DefaultConfig(dir string) *Config {
	cfg := &Config{}
	cfg.normalize(dir)
	return cfg
}

// Normalize fills in missing/zero values with defaults rooted at
// DefaultDir, so partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	c.normalize(DefaultDir())
}

func (c *Config) normalize(dir string) {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = "info"
	}

	switch c.Storage.Driver {
	case "file", "sqlite", "memory":
	default:
		c.Storage.Driver = "file"
	}
	if c.Storage.Path == "" {
		if c.Storage.Driver == "sqlite" {
			c.Storage.Path = filepath.Join(dir, "calplan.db")
		} else {
			c.Storage.Path = filepath.Join(dir, "data")
		}
	}
	if c.Storage.Key == "" {
		c.Storage.Key = defaultStorageKey
	}

	if c.Tags == nil {
		c.Tags = append([]string(nil), DefaultTags...)
	}

	if c.Backup.Dir == "" {
		c.Backup.Dir = filepath.Join(dir, "backups")
		if c.Backup.Cron == "" {
			c.Backup.Cron = defaultBackupCron
		}
	}
	if c.Backup.Keep <= 0 {
		c.Backup.Keep = defaultBackupKeep
	}

	if c.Capture.URL == "" {
		c.Capture.URL = "http://" + c.Listen + "/"
	}
	if c.Capture.Output == "" {
		c.Capture.Output = filepath.Join(dir, "preview.png")
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = defaultWidth
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = defaultHeight
	}
}

// Location resolves Timezone, falling back to time.Local when empty.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config rooted next to it is
//     written with 0600 perms and returned.
//   - Otherwise the YAML is read and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	dir := filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig(dir)
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.normalize(dir)

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename, 0600).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fsutil.WriteFileAtomic(path, data, 0o600)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
