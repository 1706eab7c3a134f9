package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a text logger writing to out at the given level
// ("debug", "info", "warn", "error").
func NewLogger(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return l, nil
}

// mustLogger is NewLogger for stderr, falling back to info on a bad level.
func mustLogger(level string) *logrus.Logger {
	l, err := NewLogger(level, os.Stderr)
	if err != nil {
		l, _ = NewLogger("info", os.Stderr)
		l.WithError(err).Warn("unknown log level, using info")
	}
	return l
}

// discardLogger is used by tests and library callers that want silence.
func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
