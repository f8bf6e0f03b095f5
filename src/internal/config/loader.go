package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

// DefaultRoot is the SD card mount point on the device
const DefaultRoot = "/mnt/SDCARD"

const (
	DefaultListen     = "127.0.0.1:8380"
	DefaultGRPCListen = "127.0.0.1:8381"
)

// LoadConfig loads configuration from a YAML file. A missing file is not an
// error: the device ships without one and runs on defaults.
func LoadConfig(path string) (*models.Config, error) {
	var cfg models.Config
	seedDefaults(&cfg)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		log.Debugf("config file %s not found, using defaults", path)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Set defaults
	derivedDataDir := cfg.DataDir == ""
	setDefaults(&cfg)

	// Environment overrides
	if err := ApplyEnv(&cfg, EnvFilePath(&cfg)); err != nil {
		return nil, err
	}
	if derivedDataDir {
		cfg.DataDir = defaultDataDir(cfg.Root)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file exists
func Default() *models.Config {
	var cfg models.Config
	seedDefaults(&cfg)
	setDefaults(&cfg)
	return &cfg
}

// seedDefaults sets the values a zero check cannot restore. They are applied
// before parsing, so a file can still turn them off explicitly.
func seedDefaults(cfg *models.Config) {
	cfg.API.Enabled = true
	cfg.API.GRPCListen = DefaultGRPCListen
}

// setDefaults sets default values for configuration
func setDefaults(cfg *models.Config) {
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir(cfg.Root)
	}

	// Firmware defaults
	if cfg.Firmware.Repository == "" {
		cfg.Firmware.Repository = "LoveRetro/NextUI"
	}
	if cfg.Firmware.VersionFile == "" {
		cfg.Firmware.VersionFile = filepath.Join(".system", "version.txt")
	}
	if len(cfg.Firmware.QuickPaths) == 0 {
		cfg.Firmware.QuickPaths = []string{"MinUI.zip", "trimui"}
	}
	if cfg.Firmware.RomsDir == "" {
		cfg.Firmware.RomsDir = "Roms"
	}

	// Updater defaults
	if cfg.Updater.Repository == "" {
		cfg.Updater.Repository = "LanderN/nextui-updater-pak"
	}
	if cfg.Updater.BackupSuffix == "" {
		cfg.Updater.BackupSuffix = ".bak"
	}

	// GitHub defaults
	if cfg.GitHub.APIURL == "" {
		cfg.GitHub.APIURL = "https://api.github.com"
	}
	if cfg.GitHub.UserAgent == "" {
		cfg.GitHub.UserAgent = "NextUI Updater"
	}
	if cfg.GitHub.Timeout == 0 {
		cfg.GitHub.Timeout = 30 * time.Second
	}

	// API defaults
	if cfg.API.Listen == "" {
		cfg.API.Listen = DefaultListen
	}

	// Polling defaults
	if cfg.Poll.Interval == 0 {
		cfg.Poll.Interval = 6 * time.Hour
	}

	// Log defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "updater.log"
	}

	// Pause defaults
	if cfg.Pauses.SelfUpdate == 0 {
		cfg.Pauses.SelfUpdate = time.Second
	}
	if cfg.Pauses.Reboot == 0 {
		cfg.Pauses.Reboot = 2 * time.Second
	}

	if cfg.History.MaxRecords == 0 {
		cfg.History.MaxRecords = 100
	}
}

func defaultDataDir(root string) string {
	return filepath.Join(root, ".userdata", "shared", ".updater")
}

// validate validates the configuration
func validate(cfg *models.Config) error {
	if !filepath.IsAbs(cfg.Root) {
		return fmt.Errorf("root must be an absolute path, got %q", cfg.Root)
	}
	for name, repo := range map[string]string{
		"firmware.repository": cfg.Firmware.Repository,
		"updater.repository":  cfg.Updater.Repository,
	} {
		if parts := strings.Split(repo, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("%s must look like owner/name, got %q", name, repo)
		}
	}
	if filepath.IsAbs(cfg.Firmware.RomsDir) {
		return fmt.Errorf("firmware.roms_dir must be relative to root")
	}
	for i, p := range cfg.Firmware.QuickPaths {
		if p == "" {
			return fmt.Errorf("firmware.quick_paths[%d]: empty path", i)
		}
	}
	if cfg.Poll.Enabled && cfg.Poll.Interval < time.Minute {
		return fmt.Errorf("poll.interval must be at least 1m")
	}
	if cfg.Pauses.SelfUpdate < 0 || cfg.Pauses.Reboot < 0 {
		return fmt.Errorf("pauses must not be negative")
	}
	if cfg.History.MaxRecords < 0 {
		return fmt.Errorf("history.max_records must not be negative")
	}
	return nil
}
