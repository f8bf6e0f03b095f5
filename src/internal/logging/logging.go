package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

// Setup parses the log level and sends output to stdout and, unless the file
// is "console", to a rotating file under dataDir. The returned closer flushes
// the file and is never nil.
func Setup(cfg models.LogConfig, dataDir string) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Failed parsing log-level %s: %s, using info", cfg.Level, err)
		level = log.InfoLevel
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(level)

	if cfg.File == "" || cfg.File == "console" {
		log.SetOutput(os.Stdout)
		return io.NopCloser(nil), nil
	}

	path := cfg.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(dataDir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return io.NopCloser(nil), fmt.Errorf("failed to create log directory: %w", err)
	}

	lumberjackLogger := &lumberjack.Logger{
		Filename:   filepath.ToSlash(path),
		MaxSize:    5, // MB
		MaxBackups: 3,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, lumberjackLogger))
	return lumberjackLogger, nil
}
