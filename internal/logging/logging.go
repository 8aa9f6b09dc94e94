package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields carries structured key/value pairs attached to a log entry.
type Fields = logrus.Fields

var base = newBase(os.Stdout)

func newBase(out io.Writer) *logrus.Logger {
	return &logrus.Logger{
		Out:       out,
		Formatter: &logrus.TextFormatter{DisableLevelTruncation: true, FullTimestamp: true},
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.InfoLevel,
		ExitFunc:  os.Exit,
	}
}

// Configure sets the level ("debug", "info", ...) and format ("text" or "json")
// shared by every component logger.
func Configure(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	base.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		base.SetFormatter(&logrus.TextFormatter{DisableLevelTruncation: true, FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}

// SetOutput redirects all log output. Tests use it to silence or capture logs.
func SetOutput(out io.Writer) {
	base.SetOutput(out)
}

// Logger is a component-scoped structured logger.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger returns a logger tagging every entry with the component name.
func NewLogger(component string) *Logger {
	return &Logger{entry: base.WithField("component", component)}
}

// With returns a child logger that always carries fields.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.withFields(fields).Debug(msg)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.withFields(fields).Info(msg)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.withFields(fields).Warn(msg)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.withFields(fields).Error(msg)
}

// Fatal logs and exits the process.
func (l *Logger) Fatal(msg string, fields ...Fields) {
	l.withFields(fields).Fatal(msg)
}

func (l *Logger) withFields(fields []Fields) *logrus.Entry {
	entry := l.entry
	for _, f := range fields {
		entry = entry.WithFields(f)
	}
	return entry
}
