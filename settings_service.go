package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"simbridge/fgfs"
	"simbridge/tcas"
)

type LogSettings struct {
	Level string `yaml:"level"`
	// File is the rotating JSON log. Empty disables it.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type XPlaneSettings struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type RecorderSettings struct {
	DBPath string `yaml:"db_path"`
}

type MonitorSettings struct {
	// Addr is the listen address for /metrics, /ws and /healthz. Empty
	// disables the monitor.
	Addr string `yaml:"addr"`
}

type Settings struct {
	// SimType is "auto", "flightgear", "xplane" or "simconnect".
	SimType    string           `yaml:"sim_type"`
	Log        LogSettings      `yaml:"log"`
	FlightGear fgfs.Config      `yaml:"flightgear"`
	TCAS       tcas.Config      `yaml:"tcas"`
	XPlane     XPlaneSettings   `yaml:"xplane"`
	Recorder   RecorderSettings `yaml:"recorder"`
	Monitor    MonitorSettings  `yaml:"monitor"`
}

func defaultSettings(dir string) Settings {
	return Settings{
		SimType: "auto",
		Log: LogSettings{
			Level:      "info",
			File:       filepath.Join(dir, "simbridge.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		FlightGear: fgfs.DefaultConfig(),
		TCAS:       tcas.DefaultConfig(),
		XPlane: XPlaneSettings{
			Host: "127.0.0.1",
			Port: 49000,
		},
		Recorder: RecorderSettings{
			DBPath: filepath.Join(dir, "flight_data.db"),
		},
		Monitor: MonitorSettings{
			Addr: "127.0.0.1:9464",
		},
	}
}

type SettingsService struct {
	mu       sync.RWMutex
	settings Settings
	filePath string
}

func NewSettingsService() *SettingsService {
	configDir, _ := os.UserConfigDir()
	return newSettingsServiceAt(filepath.Join(configDir, "simbridge", "settings.yaml"))
}

// newSettingsServiceAt loads path over the defaults and writes the file
// out when it does not exist yet.
func newSettingsServiceAt(path string) *SettingsService {
	s := &SettingsService{
		filePath: path,
		settings: defaultSettings(filepath.Dir(path)),
	}
	if err := s.load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := s.save(); err != nil {
				slog.Warn("failed to write default settings", "path", path, "error", err)
			}
		} else {
			slog.Warn("failed to load settings, using defaults", "path", path, "error", err)
		}
	}
	return s
}

func (s *SettingsService) Path() string { return s.filePath }

func (s *SettingsService) GetSettings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *SettingsService) UpdateSettings(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return s.save()
}

func (s *SettingsService) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, &s.settings); err != nil {
		return fmt.Errorf("parse settings: %w", err)
	}
	return nil
}

func (s *SettingsService) save() error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(s.settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	return os.WriteFile(s.filePath, data, 0o644)
}
