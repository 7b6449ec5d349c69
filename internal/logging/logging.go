package logging

import (
	"io"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/azizikri/coupon-registry/internal/config"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the standard logrus logger from cfg. When LogFile is set,
// output is written to stdout and to a rotated file.
func Setup(cfg *config.Config) error {
	return Configure(log.StandardLogger(), cfg)
}

func Configure(logger *log.Logger, cfg *config.Config) error {
	level, err := log.ParseLevel(strings.TrimSpace(cfg.LogLevel))
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(strings.TrimSpace(cfg.LogFormat), "json") {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	if path := strings.TrimSpace(cfg.LogFile); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		})
	}
	logger.SetOutput(out)
	return nil
}
