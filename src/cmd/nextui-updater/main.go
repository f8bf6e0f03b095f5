package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/config"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/internal/logging"
	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

// version is the updater's own semantic version, set at build time with
// -ldflags "-X main.version=x.y.z"
var version = "0.0.0-dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "nextui-updater",
	Short:         "Keeps a NextUI installation and this updater up to date",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the updater version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to configuration file")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// defaultConfigPath looks for updater.yaml next to the executable
func defaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "updater.yaml"
	}
	return filepath.Join(filepath.Dir(exe), "updater.yaml")
}

// setup loads the configuration and starts logging
func setup() (*models.Config, io.Closer, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	closer, err := logging.Setup(cfg.Log, cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	log.Infof("NextUI Updater %s (root %s)", version, cfg.Root)
	return cfg, closer, nil
}
