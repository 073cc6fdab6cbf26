// Package logger builds the structured logrus logger shared by every
// component.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/task-tracker/internal/model"
)

// New returns a logger configured from cfg. LOG_LEVEL overrides the
// configured level. When cfg.File is set, output goes to that file and the
// returned closer closes it; otherwise output goes to stderr.
func New(cfg model.LogConfig, service string) (*logrus.Entry, io.Closer, error) {
	l := logrus.New()

	var closer io.Closer = io.NopCloser(nil)
	l.SetOutput(os.Stderr)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file %s: %w", cfg.File, err)
		}
		l.SetOutput(f)
		closer = f
	}

	if strings.EqualFold(cfg.Format, "text") {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "ts",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	level := cfg.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	l.SetLevel(logrus.InfoLevel)
	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing log level %q: %w", level, err)
		}
		l.SetLevel(lvl)
	}

	return l.WithField("service", service), closer, nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// WithRequestID adds a request id field when one is present.
func WithRequestID(entry *logrus.Entry, requestID string) *logrus.Entry {
	if requestID == "" {
		return entry
	}
	return entry.WithField("request_id", requestID)
}
