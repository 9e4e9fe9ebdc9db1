// Package logging builds the application logger.
//
// Responsibilities:
//   - Structured zap logging, JSON or console encoding by config
//   - File output with lumberjack rotation when a path is configured
//   - Stdout output otherwise
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config represents logger configuration
type Config struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string

	// Format is "json" or "text"
	Format string

	// FilePath is the log file path. Empty logs to stdout.
	FilePath string

	// MaxSizeMB is the maximum size in megabytes before rotation
	MaxSizeMB int

	// MaxBackups is the maximum number of old log files to retain
	MaxBackups int

	// MaxAgeDays is the maximum number of days to retain old log files
	MaxAgeDays int
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "json",
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// New creates the application logger.
func New(config *Config) (*zap.Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.Level, err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if config.Format == "text" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	var sink zapcore.WriteSyncer
	if config.FilePath != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   true,
		})
	} else {
		sink = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
