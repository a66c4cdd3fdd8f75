// Package logger provides a centralized logging facility with configurable
// verbosity levels, backed by logrus.
//
// Verbosity levels (in increasing order):
//
//	Error < Info < Debug < Trace
//
// Example usage:
//
//	logger.SetVerbosity(2) // Debug
//	logger.Infof("building surface for %s", ticker)
//	logger.WithFields(logrus.Fields{"strike": k}).Debugf("quote skipped: %v", err)
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level represents a logging verbosity level.
// Higher values mean more verbose logging.
type Level int

const (
	Error Level = iota // Error logs only critical failures.
	Info               // Info logs high-level application progress.
	Debug              // Debug logs detailed diagnostic information.
	Trace              // Trace logs very fine-grained execution details.
)

var std = logrus.New()

func init() {
	std.SetOutput(os.Stderr)
	std.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	SetVerbosity(int(Info))
}

// SetVerbosity sets the global logging verbosity.
// Out-of-range values are clamped to Error or Trace.
func SetVerbosity(v int) {
	switch l := Level(v); {
	case l <= Error:
		std.SetLevel(logrus.ErrorLevel)
	case l == Info:
		std.SetLevel(logrus.InfoLevel)
	case l == Debug:
		std.SetLevel(logrus.DebugLevel)
	default:
		std.SetLevel(logrus.TraceLevel)
	}
}

// Verbosity reports the active verbosity level.
func Verbosity() Level {
	switch std.GetLevel() {
	case logrus.TraceLevel:
		return Trace
	case logrus.DebugLevel:
		return Debug
	case logrus.InfoLevel, logrus.WarnLevel:
		return Info
	default:
		return Error
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return std.WithFields(fields)
}

// Errorf logs an error-level message.
func Errorf(format string, args ...any) {
	std.Errorf(format, args...)
}

// Warnf logs a warning. Shown from Info verbosity upwards.
func Warnf(format string, args ...any) {
	std.Warnf(format, args...)
}

// Infof logs an informational message.
func Infof(format string, args ...any) {
	std.Infof(format, args...)
}

// Debugf logs debugging information.
func Debugf(format string, args ...any) {
	std.Debugf(format, args...)
}

// Tracef logs very detailed execution traces.
func Tracef(format string, args ...any) {
	std.Tracef(format, args...)
}
