// Package logging builds the logrus logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Field names used by the JSON formatter. logtail parses the same keys.
const (
	KeyTime  = "timestamp"
	KeyLevel = "severity"
	KeyMsg   = "message"
)

// Options select where and how the logger writes.
type Options struct {
	// Path is the log file. Empty writes to stderr.
	Path string
	// Format is "json" or "console"; empty reads LOG_FORMAT.
	Format string
	// Level is a logrus level name; empty reads LOG_LEVEL, then info.
	Level string
}

// New returns a JSON logger unless console output is requested. The returned
// closer releases the log file and is never nil.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()

	level := firstNonEmpty(opts.Level, os.Getenv("LOG_LEVEL"), "info")
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nopCloser{}, fmt.Errorf("parse log level: %w", err)
	}
	log.SetLevel(lvl)

	if strings.EqualFold(firstNonEmpty(opts.Format, os.Getenv("LOG_FORMAT")), "console") {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  KeyTime,
				logrus.FieldKeyLevel: KeyLevel,
				logrus.FieldKeyMsg:   KeyMsg,
			},
			TimestampFormat: time.RFC3339Nano,
		})
	}

	if strings.TrimSpace(opts.Path) == "" {
		log.SetOutput(os.Stderr)
		return log, nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, nopCloser{}, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nopCloser{}, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(file)
	return log, file, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
