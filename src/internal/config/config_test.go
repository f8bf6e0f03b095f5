package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvGitHubToken, EnvRoot, EnvLogLevel, EnvWebhookKey} {
		if v, ok := os.LookupEnv(key); ok {
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { os.Setenv(key, v) })
		}
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultRoot, cfg.Root)
	assert.Equal(t, "/mnt/SDCARD/.userdata/shared/.updater", cfg.DataDir)
	assert.Equal(t, "LoveRetro/NextUI", cfg.Firmware.Repository)
	assert.Equal(t, []string{"MinUI.zip", "trimui"}, cfg.Firmware.QuickPaths)
	assert.Equal(t, "LanderN/nextui-updater-pak", cfg.Updater.Repository)
	assert.Equal(t, ".bak", cfg.Updater.BackupSuffix)
	assert.Equal(t, "NextUI Updater", cfg.GitHub.UserAgent)
	assert.Equal(t, time.Second, cfg.Pauses.SelfUpdate)
	assert.Equal(t, 2*time.Second, cfg.Pauses.Reboot)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, "127.0.0.1:8380", cfg.API.Listen)
	assert.Equal(t, "127.0.0.1:8381", cfg.API.GRPCListen)
	assert.False(t, cfg.Poll.Enabled)

	assert.Equal(t, Default(), cfg)
}

func TestLoadConfigAPIDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	load := func(content string) *models.Config {
		t.Helper()
		path := filepath.Join(dir, "updater.yaml")
		require.NoError(t, os.WriteFile(path, []byte("root: "+dir+"\n"+content), 0o644))
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		return cfg
	}

	cfg := load("log:\n  level: debug\n")
	assert.True(t, cfg.API.Enabled, "a file without an api section keeps the API on")
	assert.Equal(t, DefaultGRPCListen, cfg.API.GRPCListen)

	cfg = load("api:\n  listen: 127.0.0.1:9000\n")
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.Listen)
	assert.Equal(t, DefaultGRPCListen, cfg.API.GRPCListen)

	cfg = load("api:\n  enabled: false\n  grpc_listen: \"\"\n")
	assert.False(t, cfg.API.Enabled)
	assert.Empty(t, cfg.API.GRPCListen)
}

func TestLoadConfigFromYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "updater.yaml")
	content := `
root: ` + dir + `
firmware:
  quick_paths: [MinUI.zip]
poll:
  enabled: true
  interval: 2h
pauses:
  reboot: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, filepath.Join(dir, ".userdata", "shared", ".updater"), cfg.DataDir)
	assert.Equal(t, []string{"MinUI.zip"}, cfg.Firmware.QuickPaths)
	assert.True(t, cfg.Poll.Enabled)
	assert.Equal(t, 2*time.Hour, cfg.Poll.Interval)
	assert.Equal(t, 5*time.Second, cfg.Pauses.Reboot)
	assert.Equal(t, time.Second, cfg.Pauses.SelfUpdate)
}

func TestLoadConfigValidation(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"relative root": "root: sdcard\n",
		"bad repo":      "firmware:\n  repository: NextUI\n",
		"absolute roms": "firmware:\n  roms_dir: /Roms\n",
		"fast polling":  "poll:\n  enabled: true\n  interval: 10s\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "updater.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := LoadConfig(path)
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: [unterminated"), 0o644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	envPath := filepath.Join(dataDir, "updater.env")

	require.NoError(t, SaveEnvValue(envPath, EnvGitHubToken, "from-file"))
	require.NoError(t, SaveEnvValue(envPath, EnvLogLevel, "debug"))

	info, err := os.Stat(envPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfgPath := filepath.Join(root, "updater.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("root: "+root+"\ndata_dir: "+dataDir+"\n"), 0o644))

	cfg, err := LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.GitHub.Token)
	assert.Equal(t, "debug", cfg.Log.Level)

	t.Setenv(EnvGitHubToken, "from-env")
	cfg, err = LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GitHub.Token)

	t.Setenv(EnvWebhookKey, "hook")
	cfg, err = LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "hook", cfg.API.WebhookSecret)

	require.NoError(t, SaveEnvValue(envPath, EnvGitHubToken, ""))
	vars, err := LoadEnvFile(envPath)
	require.NoError(t, err)
	assert.NotContains(t, vars, EnvGitHubToken)
	assert.Equal(t, "debug", vars[EnvLogLevel])
}

func TestEnvRootMovesDefaultDataDir(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	t.Setenv(EnvRoot, root)

	cfg, err := LoadConfig(filepath.Join(root, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, filepath.Join(root, ".userdata", "shared", ".updater"), cfg.DataDir)
}
