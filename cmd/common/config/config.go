// Package config provides configuration loading for aegis.
package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gigurra/aegis/cmd/common"
	"github.com/joho/godotenv"
)

// Config represents the aegis configuration file structure.
type Config struct {
	YouTube       *YouTubeConfig      `json:"youtube,omitempty"`
	Player        *PlayerConfig       `json:"player,omitempty"`
	Conference    *ConferenceConfig   `json:"conference,omitempty"`
	Notifications *NotificationConfig `json:"notifications,omitempty"`

	// MusicDir is the root that theme audio paths such as /music/tony.mp3
	// are resolved against.
	MusicDir string `json:"music_dir,omitempty"`
	// CatalogPath and RosterPath replace the embedded track catalog and team
	// roster when set.
	CatalogPath string `json:"catalog_path,omitempty"`
	RosterPath  string `json:"roster_path,omitempty"`
}

// YouTubeConfig holds settings for the video search API.
type YouTubeConfig struct {
	APIKey               string `json:"api_key,omitempty"`
	BaseURL              string `json:"base_url,omitempty"`
	SearchTimeoutSeconds int    `json:"search_timeout_seconds,omitempty"`
	MaxResults           int    `json:"max_results,omitempty"`
}

// PlayerConfig holds settings for the background music backends.
type PlayerConfig struct {
	Engine               string  `json:"engine,omitempty"`
	EngineTimeoutSeconds int     `json:"engine_timeout_seconds,omitempty"`
	SocketPath           string  `json:"socket_path,omitempty"`
	DefaultVolume        float64 `json:"default_volume,omitempty"`
}

// ConferenceConfig holds the event details shown by countdown and register.
type ConferenceConfig struct {
	Name            string    `json:"name,omitempty"`
	Start           time.Time `json:"start"`
	RegistrationURL string    `json:"registration_url,omitempty"`
}

// NotificationConfig controls how user-facing notices are delivered.
type NotificationConfig struct {
	Desktop bool `json:"desktop"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		YouTube: &YouTubeConfig{
			BaseURL:              "https://www.googleapis.com/youtube/v3",
			SearchTimeoutSeconds: 8,
			MaxResults:           5,
		},
		Player: &PlayerConfig{
			Engine:               "mpv",
			EngineTimeoutSeconds: 5,
			SocketPath:           filepath.Join(common.RuntimeDir(), "youtube-music-player.sock"),
			DefaultVolume:        0.5,
		},
		Conference: &ConferenceConfig{
			Name:            "AEGIS MUN",
			Start:           time.Date(2025, time.October, 4, 9, 0, 0, 0, time.Local),
			RegistrationURL: "https://linktr.ee/aegismun2025",
		},
		Notifications: &NotificationConfig{
			Desktop: false,
		},
		MusicDir: common.AppDir(),
	}
}

// ConfigPath returns the path to the config file (~/.aegis/config.json).
func ConfigPath() string {
	return filepath.Join(common.AppDir(), "config.json")
}

// Load loads the config from ~/.aegis/config.json.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom loads the config from path, filling in defaults for anything the
// file leaves out. AEGIS_YOUTUBE_API_KEY overrides the file's API key; it may
// also come from a .env file next to the config.
func LoadFrom(path string) (*Config, error) {
	config := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"))
	if key := os.Getenv("AEGIS_YOUTUBE_API_KEY"); key != "" {
		config.YouTube.APIKey = key
	}

	return config, nil
}

// loadDotEnv sets variables from path that the environment doesn't already have.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read env file", "path", path, "error", err)
	}
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.YouTube == nil {
		c.YouTube = defaults.YouTube
	} else {
		if c.YouTube.BaseURL == "" {
			c.YouTube.BaseURL = defaults.YouTube.BaseURL
		}
		if c.YouTube.SearchTimeoutSeconds == 0 {
			c.YouTube.SearchTimeoutSeconds = defaults.YouTube.SearchTimeoutSeconds
		}
		if c.YouTube.MaxResults == 0 {
			c.YouTube.MaxResults = defaults.YouTube.MaxResults
		}
	}

	if c.Player == nil {
		c.Player = defaults.Player
	} else {
		if c.Player.Engine == "" {
			c.Player.Engine = defaults.Player.Engine
		}
		if c.Player.EngineTimeoutSeconds == 0 {
			c.Player.EngineTimeoutSeconds = defaults.Player.EngineTimeoutSeconds
		}
		if c.Player.SocketPath == "" {
			c.Player.SocketPath = defaults.Player.SocketPath
		}
		if c.Player.DefaultVolume == 0 {
			c.Player.DefaultVolume = defaults.Player.DefaultVolume
		}
	}

	if c.Conference == nil {
		c.Conference = defaults.Conference
	} else {
		if c.Conference.Name == "" {
			c.Conference.Name = defaults.Conference.Name
		}
		if c.Conference.Start.IsZero() {
			c.Conference.Start = defaults.Conference.Start
		}
		if c.Conference.RegistrationURL == "" {
			c.Conference.RegistrationURL = defaults.Conference.RegistrationURL
		}
	}

	if c.Notifications == nil {
		c.Notifications = defaults.Notifications
	}

	if c.MusicDir == "" {
		c.MusicDir = defaults.MusicDir
	}
}

// SearchTimeout returns the search request timeout.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.YouTube.SearchTimeoutSeconds) * time.Second
}

// EngineTimeout returns the hard timeout for bringing up the primary player.
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Player.EngineTimeoutSeconds) * time.Second
}

// Save saves the config to ~/.aegis/config.json.
func Save(config *Config) error {
	dir := filepath.Dir(ConfigPath())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
