package models

import "time"

// Config represents the main configuration for the updater
type Config struct {
	Root     string         `yaml:"root"`
	DataDir  string         `yaml:"data_dir"`
	Firmware FirmwareConfig `yaml:"firmware"`
	Updater  UpdaterConfig  `yaml:"updater"`
	GitHub   GitHubConfig   `yaml:"github"`
	API      APIConfig      `yaml:"api"`
	Poll     PollingConfig  `yaml:"poll"`
	Log      LogConfig      `yaml:"log"`
	Pauses   PauseConfig    `yaml:"pauses"`
	History  HistoryConfig  `yaml:"history"`
}

// FirmwareConfig describes the firmware distribution being kept up to date
type FirmwareConfig struct {
	Repository  string   `yaml:"repository"`
	VersionFile string   `yaml:"version_file"` // relative to root
	QuickPaths  []string `yaml:"quick_paths"`
	RomsDir     string   `yaml:"roms_dir"` // relative to root
}

// UpdaterConfig describes where the updater's own releases live
type UpdaterConfig struct {
	Repository     string `yaml:"repository"`
	BackupSuffix   string `yaml:"backup_suffix"`
	SkipSelfUpdate bool   `yaml:"skip_self_update"`
}

// GitHubConfig contains release host settings
type GitHubConfig struct {
	APIURL    string        `yaml:"api_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	Token     string        `yaml:"token,omitempty"`
}

// APIConfig contains the observer API settings
type APIConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Listen        string `yaml:"listen"`
	GRPCListen    string `yaml:"grpc_listen,omitempty"`
	WebhookSecret string `yaml:"webhook_secret,omitempty"`
}

// PollingConfig contains periodic re-check settings
type PollingConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // relative to data_dir unless absolute
}

// PauseConfig holds the pauses that let the user read a completion message
type PauseConfig struct {
	SelfUpdate time.Duration `yaml:"self_update"`
	Reboot     time.Duration `yaml:"reboot"`
}

// HistoryConfig contains update journal settings
type HistoryConfig struct {
	MaxRecords int `yaml:"max_records"`
}
