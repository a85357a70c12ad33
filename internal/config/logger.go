package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// InitLogger configures logrus's standard logger from cfg.Log, exactly the
// teacher's level/format/output switch, generalized with a "both" output
// that tees stdout and a rotated file.
func InitLogger(cfg *Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logrus.Warnf("invalid log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	default:
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	}

	switch strings.ToLower(cfg.Log.Output) {
	case "file":
		rotator, err := newRotator(cfg.Log)
		if err != nil {
			return err
		}
		logrus.SetOutput(rotator)
	case "both":
		rotator, err := newRotator(cfg.Log)
		if err != nil {
			return err
		}
		logrus.SetOutput(io.MultiWriter(os.Stdout, rotator))
	default:
		logrus.SetOutput(os.Stdout)
	}

	logrus.Infof("logger initialized - level: %s, format: %s, output: %s", cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	return nil
}

func newRotator(lc LogConfig) (*lumberjack.Logger, error) {
	if dir := filepath.Dir(lc.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &lumberjack.Logger{
		Filename:   lc.FilePath,
		MaxSize:    lc.MaxSize,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAge,
		Compress:   lc.Compress,
		LocalTime:  true,
	}, nil
}
