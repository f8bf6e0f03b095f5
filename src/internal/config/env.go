package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

// Environment keys that override the YAML configuration
const (
	EnvGitHubToken = "GITHUB_TOKEN"
	EnvRoot        = "UPDATER_ROOT"
	EnvLogLevel    = "UPDATER_LOG_LEVEL"
	EnvWebhookKey  = "UPDATER_WEBHOOK_SECRET"
)

// EnvFilePath returns the path of the optional env file in the data directory
func EnvFilePath(cfg *models.Config) string {
	return filepath.Join(cfg.DataDir, "updater.env")
}

// LoadEnvFile reads the env file at path. A missing file yields an empty map.
func LoadEnvFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return vars, nil
}

// ApplyEnv overrides cfg with values from the env file at path and from the
// process environment. The process environment wins.
func ApplyEnv(cfg *models.Config, path string) error {
	vars, err := LoadEnvFile(path)
	if err != nil {
		return err
	}
	for _, key := range []string{EnvGitHubToken, EnvRoot, EnvLogLevel, EnvWebhookKey} {
		if v, ok := os.LookupEnv(key); ok {
			vars[key] = v
		}
	}

	if v := vars[EnvGitHubToken]; v != "" {
		cfg.GitHub.Token = v
	}
	if v := vars[EnvRoot]; v != "" {
		log.Debugf("root overridden by %s: %s", EnvRoot, v)
		cfg.Root = v
	}
	if v := vars[EnvLogLevel]; v != "" {
		cfg.Log.Level = v
	}
	if v := vars[EnvWebhookKey]; v != "" {
		cfg.API.WebhookSecret = v
	}
	return nil
}

// SaveEnvValue sets key in the env file at path, keeping the other entries
func SaveEnvValue(path, key, value string) error {
	vars, err := LoadEnvFile(path)
	if err != nil {
		return err
	}

	if value == "" {
		delete(vars, key)
	} else {
		vars[key] = value
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := godotenv.Write(vars, path); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	return os.Chmod(path, 0600)
}
