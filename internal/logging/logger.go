package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	// LogLevelQuiet suppresses all output except critical errors
	LogLevelQuiet LogLevel = "quiet"
	// LogLevelNormal shows standard operational messages
	LogLevelNormal LogLevel = "normal"
	// LogLevelVerbose shows detailed operational information
	LogLevelVerbose LogLevel = "verbose"
	// LogLevelDebug shows all debug information
	LogLevelDebug LogLevel = "debug"
)

// Logger provides structured logging capabilities
type Logger struct {
	logger *logrus.Logger
	level  LogLevel
}

// Config holds logger configuration
type Config struct {
	Level   LogLevel
	Output  io.Writer
	Format  string // "text" or "json"
	LogFile string
}

// NewLogger creates a new logger with the specified configuration
func NewLogger(config Config) (*Logger, error) {
	logger := logrus.New()

	if config.Output != nil {
		logger.SetOutput(config.Output)
	} else {
		logger.SetOutput(os.Stdout)
	}

	switch config.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	switch config.Level {
	case LogLevelQuiet:
		logger.SetLevel(logrus.ErrorLevel)
	case LogLevelNormal:
		logger.SetLevel(logrus.InfoLevel)
	case LogLevelVerbose:
		logger.SetLevel(logrus.DebugLevel)
	case LogLevelDebug:
		logger.SetLevel(logrus.TraceLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if config.LogFile != "" {
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.LogFile, err)
		}

		if config.Output == nil {
			logger.SetOutput(io.MultiWriter(os.Stdout, file))
		} else {
			logger.SetOutput(io.MultiWriter(config.Output, file))
		}
	}

	return &Logger{
		logger: logger,
		level:  config.Level,
	}, nil
}

// NewDefaultLogger creates a logger with default configuration
func NewDefaultLogger() *Logger {
	logger, _ := NewLogger(Config{
		Level:  LogLevelNormal,
		Output: os.Stdout,
		Format: "text",
	})
	return logger
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// WithFields returns a logger entry with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.logger.WithFields(fields)
}

// WithField returns a logger entry with a single additional field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.logger.WithField(key, value)
}

// Debug logs a debug message
func (l *Logger) Debug(args ...interface{}) {
	l.logger.Debug(args...)
}

// Info logs an informational message
func (l *Logger) Info(args ...interface{}) {
	l.logger.Info(args...)
}

// Warn logs a warning message
func (l *Logger) Warn(args ...interface{}) {
	l.logger.Warn(args...)
}

// Error logs an error message
func (l *Logger) Error(args ...interface{}) {
	l.logger.Error(args...)
}

// Backup domain logging helpers

// LogBackupOperation logs the outcome of a backup subsystem operation.
func (l *Logger) LogBackupOperation(operation, organizationID string, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation":       operation,
		"organization_id": organizationID,
		"duration":        duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Error("Backup operation failed")
	} else {
		l.logger.WithFields(fields).Info("Backup operation completed")
	}
}

// LogTableOperation logs a single table-scoped step during export or restore.
// Table-scoped failures are non-fatal; they are logged here and then skipped.
func (l *Logger) LogTableOperation(operation string, table string, rows int, err error) {
	fields := logrus.Fields{
		"operation": operation,
		"table":     table,
		"rows":      rows,
	}

	if err != nil {
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Warn("Table operation failed, continuing")
	} else {
		l.logger.WithFields(fields).Debug("Table operation completed")
	}
}

// LogStorageOperation logs a blob storage interaction.
func (l *Logger) LogStorageOperation(provider, operation, key string, size int64, err error) {
	fields := logrus.Fields{
		"provider":  provider,
		"operation": operation,
		"key":       key,
		"bytes":     size,
	}

	if err != nil {
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Error("Storage operation failed")
	} else {
		l.logger.WithFields(fields).Debug("Storage operation completed")
	}
}

// SetOutput redirects log output, primarily for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}
