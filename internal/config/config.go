// ABOUTME: Trekr configuration management
// ABOUTME: JSON config with XDG paths, tracking thresholds, and sync settings

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bradwbu/Trekr/internal/ingest"
	"github.com/bradwbu/Trekr/internal/reconcile"
	"github.com/bradwbu/Trekr/internal/segment"
)

// Config stores trekr configuration.
type Config struct {
	// DataDir is the root directory for the local trip cache.
	// Supports ~ expansion. Defaults to ~/.local/share/trekr.
	DataDir string `json:"data_dir,omitempty"`

	// OwnerID identifies this device's user on trips it records.
	OwnerID string `json:"owner_id,omitempty"`

	// Timezone is the IANA zone used for calendar-day trip bucketing.
	// Defaults to the system zone.
	Timezone string `json:"timezone,omitempty"`

	// AccuracyCeilingMeters rejects samples with worse reported accuracy.
	AccuracyCeilingMeters float64 `json:"accuracy_ceiling_m,omitempty"`

	// SignificantDistanceMeters is the movement threshold in battery-saver
	// tracking mode.
	SignificantDistanceMeters float64 `json:"significant_distance_m,omitempty"`

	// InactivityGapMinutes is the quiet period that closes a trip.
	InactivityGapMinutes int `json:"inactivity_gap_minutes,omitempty"`

	// RemoteURL is the base URL of the remote trip store. Empty disables sync.
	RemoteURL string `json:"remote_url,omitempty"`

	// RemoteToken is the bearer token presented to the remote store.
	RemoteToken string `json:"remote_token,omitempty"`

	// SyncIntervalSeconds is the gap between background sync cycles.
	SyncIntervalSeconds int `json:"sync_interval_seconds,omitempty"`

	// Server holds settings for the bundled remote store server.
	Server ServerConfig `json:"server,omitempty"`
}

// ServerConfig configures `trekr serve`.
type ServerConfig struct {
	// Listen is the address the server binds to. Defaults to :8080.
	Listen string `json:"listen,omitempty"`

	// DBPath is the SQLite database path. Defaults to trips.db in DataDir.
	DBPath string `json:"db_path,omitempty"`

	// Token is the bearer token the server requires. Empty disables auth.
	Token string `json:"token,omitempty"`
}

// GetDataDir returns the configured data directory with ~ expanded.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return defaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetOwnerID returns the configured owner, defaulting to $USER.
func (c *Config) GetOwnerID() string {
	if c.OwnerID != "" {
		return c.OwnerID
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// GetLocation resolves the configured timezone, defaulting to the system
// zone when unset or unknown.
func (c *Config) GetLocation() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: unknown timezone %q, using system zone\n", c.Timezone)
		return time.Local
	}
	return loc
}

// GetAccuracyCeiling returns the accuracy ceiling in meters.
func (c *Config) GetAccuracyCeiling() float64 {
	if c.AccuracyCeilingMeters <= 0 {
		return ingest.DefaultAccuracyCeiling
	}
	return c.AccuracyCeilingMeters
}

// GetSignificantDistance returns the battery-saver movement threshold.
func (c *Config) GetSignificantDistance() float64 {
	if c.SignificantDistanceMeters <= 0 {
		return ingest.DefaultSignificantDistance
	}
	return c.SignificantDistanceMeters
}

// GetInactivityGap returns the trip-closing quiet period.
func (c *Config) GetInactivityGap() time.Duration {
	if c.InactivityGapMinutes <= 0 {
		return segment.DefaultInactivityGap
	}
	return time.Duration(c.InactivityGapMinutes) * time.Minute
}

// GetSyncInterval returns the background sync interval.
func (c *Config) GetSyncInterval() time.Duration {
	if c.SyncIntervalSeconds <= 0 {
		return reconcile.DefaultInterval
	}
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

// GetServerListen returns the serve address.
func (c *Config) GetServerListen() string {
	if c.Server.Listen == "" {
		return ":8080"
	}
	return c.Server.Listen
}

// GetServerDBPath returns the server database path.
func (c *Config) GetServerDBPath() string {
	if c.Server.DBPath == "" {
		return filepath.Join(c.GetDataDir(), "trips.db")
	}
	return ExpandPath(c.Server.DBPath)
}

// defaultDataDir returns the default XDG data directory for trekr.
func defaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "trekr")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "trekr", "config.json")
}

// Load reads config from disk, returning defaults when no file exists yet.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk via a temp-file rename so a crash mid-write
// never leaves a truncated config behind.
func (c *Config) Save() error {
	path := GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
