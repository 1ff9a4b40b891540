package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"somaradio/model"
)

const appDirName = "somaradio"

// Config is the persisted application configuration
type Config struct {
	LastStationID       string          `json:"last_station_id"`                 // station played last
	Volume              float64         `json:"volume"`                          // 0.0-1.0
	Muted               bool            `json:"muted"`
	PollIntervalSeconds int             `json:"poll_interval_seconds,omitempty"` // now-playing refresh
	HistorySize         int             `json:"history_size,omitempty"`          // feed entries kept, current included
	HealthCheckSeconds  int             `json:"health_check_seconds,omitempty"`
	LogLevel            string          `json:"log_level,omitempty"`
	FFmpegPath          string          `json:"ffmpeg_path,omitempty"` // empty: look up on PATH
	Stations            []model.Station `json:"stations,omitempty"`    // overrides the built-in catalog
}

// DefaultConfig returns the stock configuration
func DefaultConfig() Config {
	return Config{
		LastStationID:       model.DefaultStationID,
		Volume:              0.8,
		PollIntervalSeconds: 30,
		HistorySize:         10,
		HealthCheckSeconds:  60,
		LogLevel:            "info",
	}
}

// Dir returns the application config directory, creating it if needed
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}

	appConfigDir := filepath.Join(configDir, appDirName)
	if err := os.MkdirAll(appConfigDir, 0o755); err != nil {
		return "", err
	}
	return appConfigDir, nil
}

// Path returns the default config file path
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. A missing file yields the defaults.
func LoadFrom(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return DefaultConfig(), err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes cfg to the default path
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes cfg to path
func SaveTo(path string, cfg Config) error {
	cfg.normalize()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) normalize() {
	d := DefaultConfig()

	if c.Volume < 0 {
		c.Volume = 0
	} else if c.Volume > 1 {
		c.Volume = 1
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = d.PollIntervalSeconds
	}
	if c.HistorySize <= 0 {
		c.HistorySize = d.HistorySize
	}
	if c.HealthCheckSeconds <= 0 {
		c.HealthCheckSeconds = d.HealthCheckSeconds
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// StationList returns the configured catalog or the built-in one
func (c Config) StationList() []model.Station {
	if len(c.Stations) > 0 {
		return c.Stations
	}
	return model.DefaultStations
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c Config) HealthCheckInterval() time.Duration {
	return time.Duration(c.HealthCheckSeconds) * time.Second
}
