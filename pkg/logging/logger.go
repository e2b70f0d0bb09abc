/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Structured logging for fieldlens. Wraps logrus with a validated config,
optional timestamped log files in an output directory, text/json/custom formats, and
analysis-specific helpers for chain fixing, rejected values, failed fields and run
statistics.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON   LogFormat = "json"
	LogFormatText   LogFormat = "text"
	LogFormatCustom LogFormat = "custom"
)

// filePrefix names log files written to the output directory
const filePrefix = "fieldlens_"

// LoggerConfig holds the configuration for the logger
type LoggerConfig struct {
	Level     LogLevel  `json:"level" mapstructure:"level"`
	Format    LogFormat `json:"format" mapstructure:"format"`
	OutputDir string    `json:"output_dir" mapstructure:"output_dir"` // Empty means console only
	MaxFiles  int       `json:"max_files" mapstructure:"max_files"`   // Old log files kept on Close
	Timestamp bool      `json:"timestamp" mapstructure:"timestamp"`
	Caller    bool      `json:"caller" mapstructure:"caller"`
	Colors    bool      `json:"colors" mapstructure:"colors"`
}

// DefaultLoggerConfig logs text at info level to the console
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:     LogLevelInfo,
		Format:    LogFormatText,
		MaxFiles:  10,
		Timestamp: true,
		Colors:    true,
	}
}

// Validate checks the LoggerConfig for invalid or missing values
func (c *LoggerConfig) Validate() error {
	if c.OutputDir != "" && c.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive when output_dir is set")
	}
	switch c.Format {
	case LogFormatJSON, LogFormatText, LogFormatCustom:
	default:
		return fmt.Errorf("unsupported log format: %s", c.Format)
	}
	switch c.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
	default:
		return fmt.Errorf("unsupported log level: %s", c.Level)
	}
	return nil
}

// Logger wraps a logrus logger with analysis helpers
type Logger struct {
	config     *LoggerConfig
	logger     logrus.FieldLogger
	base       *logrus.Logger // Nil when wrapping a caller-supplied FieldLogger
	fileHandle *os.File
	startTime  time.Time
}

// NewLogger creates a logger from config; a nil config uses DefaultLoggerConfig
func NewLogger(config *LoggerConfig) (*Logger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	base := logrus.New()
	l := &Logger{
		config:    config,
		logger:    base,
		base:      base,
		startTime: time.Now(),
	}
	if err := l.setup(os.Stderr); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return l, nil
}

// Wrap adapts an existing logrus logger or entry. A nil logger discards everything.
func Wrap(fl logrus.FieldLogger) *Logger {
	if fl == nil {
		return Discard()
	}
	if l, ok := fl.(*logrus.Logger); ok {
		return &Logger{logger: l, base: l, startTime: time.Now()}
	}
	return &Logger{logger: fl, startTime: time.Now()}
}

// Discard returns a logger that drops every entry
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	base.SetLevel(logrus.PanicLevel)
	return &Logger{logger: base, base: base, startTime: time.Now()}
}

func (l *Logger) setup(console io.Writer) error {
	level, err := logrus.ParseLevel(string(l.config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.base.SetLevel(level)
	l.base.SetReportCaller(l.config.Caller)

	if err := l.setFormatter(); err != nil {
		return err
	}

	l.base.SetOutput(console)
	return l.setupFileOutput(console)
}

func (l *Logger) setFormatter() error {
	prettyCaller := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	switch l.config.Format {
	case LogFormatJSON:
		l.base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			DisableTimestamp: !l.config.Timestamp,
			CallerPrettyfier: prettyCaller,
		})
	case LogFormatText:
		l.base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    l.config.Timestamp,
			DisableTimestamp: !l.config.Timestamp,
			TimestampFormat:  time.RFC3339,
			ForceColors:      l.config.Colors,
			DisableColors:    !l.config.Colors,
			CallerPrettyfier: prettyCaller,
		})
	case LogFormatCustom:
		l.base.SetFormatter(&CustomFormatter{
			Timestamp: l.config.Timestamp,
			Caller:    l.config.Caller,
			Colors:    l.config.Colors,
		})
	default:
		return fmt.Errorf("unsupported log format: %s", l.config.Format)
	}
	return nil
}

// setupFileOutput tees output into a timestamped file when OutputDir is set
func (l *Logger) setupFileOutput(console io.Writer) error {
	if l.config.OutputDir == "" {
		return nil
	}
	if err := os.MkdirAll(l.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	name := fmt.Sprintf("%s%s.log", filePrefix, time.Now().Format("2006-01-02_15-04-05.000"))
	path := filepath.Join(l.config.OutputDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	l.fileHandle = file
	l.base.SetOutput(io.MultiWriter(console, file))

	l.base.WithFields(logrus.Fields{
		"log_file": path,
		"level":    l.config.Level,
		"format":   l.config.Format,
	}).Debug("File logging initialized")
	return nil
}

// cleanup removes the oldest log files beyond MaxFiles
func (l *Logger) cleanup() error {
	if l.config == nil || l.config.OutputDir == "" {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(l.config.OutputDir, filePrefix+"*.log"))
	if err != nil {
		return err
	}
	if len(files) <= l.config.MaxFiles {
		return nil
	}
	// Names embed the creation time, so lexical order is age order
	sort.Strings(files)
	for _, f := range files[:len(files)-l.config.MaxFiles] {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Close flushes the log file and prunes old ones
func (l *Logger) Close() error {
	if l.fileHandle != nil {
		if l.base != nil {
			l.base.SetOutput(os.Stderr)
		}
		if err := l.fileHandle.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		l.fileHandle = nil
	}
	if err := l.cleanup(); err != nil {
		return fmt.Errorf("failed to cleanup log files: %w", err)
	}
	return nil
}

// FieldLogger returns the underlying logrus logger for library use
func (l *Logger) FieldLogger() logrus.FieldLogger {
	return l.logger
}

// LogFilePath returns the active log file, if any
func (l *Logger) LogFilePath() string {
	if l.fileHandle == nil {
		return ""
	}
	return l.fileHandle.Name()
}

// Analysis-specific logging methods

// LogChainFixed records the chain chosen for a field and the sample votes behind it
func (l *Logger) LogChainFixed(path string, chain []string, votes map[string]int) {
	l.logger.WithFields(logrus.Fields{
		"field": path,
		"chain": chain,
		"votes": votes,
	}).Debug("Chain fixed")
}

// LogClassificationWarning records an applicability check that faulted during sampling
func (l *Logger) LogClassificationWarning(path, interpretation string, depth int, err error) {
	l.logger.WithFields(logrus.Fields{
		"field":          path,
		"interpretation": interpretation,
		"depth":          depth,
	}).WithError(err).Warn("Classification check failed")
}

// LogRejectedValue records a value the fixed chain did not accept
func (l *Logger) LogRejectedValue(path string, value interface{}, err error) {
	l.logger.WithFields(logrus.Fields{
		"field": path,
		"value": fmt.Sprintf("%.80v", value),
	}).WithError(err).Debug("Value rejected")
}

// LogInvalidRecord records a record skipped because it could not be decoded
func (l *Logger) LogInvalidRecord(source string, line int, err error) {
	l.logger.WithFields(logrus.Fields{
		"source": source,
		"line":   line,
	}).WithError(err).Warn("Record skipped")
}

// LogFieldFailed records a field excluded from the results
func (l *Logger) LogFieldFailed(path string, err error) {
	l.logger.WithField("field", path).WithError(err).Error("Field failed")
}

// LogRunStats summarizes a finished run
func (l *Logger) LogRunStats(runID string, records int64, fields, failed int, duration time.Duration) {
	l.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"records":  records,
		"fields":   fields,
		"failed":   failed,
		"duration": duration,
		"uptime":   time.Since(l.startTime),
	}).Info("Analysis finished")
}
