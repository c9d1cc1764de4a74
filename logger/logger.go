// Package logger - Process-wide zap logger with optional rotating file output.
package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logMu sync.RWMutex
	log   *zap.Logger
	sugar *zap.SugaredLogger
)

// Output destinations.
const (
	OutputStdout = "stdout"
	OutputFile   = "file"
	OutputBoth   = "both"
)

// Config selects level, encoding and destination.
type Config struct {
	// Level is debug, info, warn or error.
	Level string `json:"level" yaml:"level"`
	// Format is json or console.
	Format string `json:"format" yaml:"format"`
	// Output is stdout, file or both.
	Output     string `json:"output"     yaml:"output"`
	FilePath   string `json:"filePath"   yaml:"file_path"`
	MaxSizeMB  int    `json:"maxSizeMB"  yaml:"max_size_mb"`
	MaxBackups int    `json:"maxBackups" yaml:"max_backups"`
	MaxAgeDays int    `json:"maxAgeDays" yaml:"max_age_days"`
	Compress   bool   `json:"compress"   yaml:"compress"`
}

// DefaultConfig logs JSON at info level to stdout.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		Output:     OutputStdout,
		FilePath:   "logs/safegaze.log",
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return errors.Wrap(err, "log level")
	}
	switch c.Format {
	case "json", "console":
	default:
		return errors.Errorf("log format %q: want json or console", c.Format)
	}
	switch c.Output {
	case OutputStdout:
	case OutputFile, OutputBoth:
		if c.FilePath == "" {
			return errors.New("log file path is required for file output")
		}
	default:
		return errors.Errorf("log output %q: want stdout, file or both", c.Output)
	}
	return nil
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	return enc
}

// Init builds the process logger from cfg and installs it as the zap global.
//
// Arguments:
//   - cfg: The logger configuration.
//
// Returns:
//   - error: A validation error or a failure to create the log directory.
//
// @example
//
//	if err := logger.Init(cfg.Log); err != nil {
//	    return err
//	}
//	defer logger.Sync()
func Init(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := zapcore.ParseLevel(cfg.Level)

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig())
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig())
	}

	var sinks []zapcore.WriteSyncer
	if cfg.Output == OutputStdout || cfg.Output == OutputBoth {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}
	if cfg.Output == OutputFile || cfg.Output == OutputBoth {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return errors.Wrap(err, "create log directory")
		}
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	setLogger(zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)))
	return nil
}

// InitProduction installs a JSON logger at info level on stderr.
func InitProduction() error {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig = encoderConfig()
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	setLogger(l)
	return nil
}

// InitDevelopment installs a console logger at debug level.
func InitDevelopment() error {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	setLogger(l)
	return nil
}

// Set installs l as the process logger. Tests use it with zaptest/observer.
func Set(l *zap.Logger) {
	setLogger(l)
}

func setLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	zap.ReplaceGlobals(l)
	if log != nil {
		_ = log.Sync()
	}
	log = l
	sugar = l.Sugar()
}

// Log returns the process logger, or the zap global before Init.
func Log() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		return log
	}
	return zap.L()
}

// S returns the sugared process logger.
func S() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	if sugar != nil {
		return sugar
	}
	return zap.S()
}

// Sync flushes buffered entries.
func Sync() {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		_ = log.Sync()
	}
}

// Named returns a child of the process logger for one component.
func Named(component string) *zap.Logger {
	return Log().Named(strings.ToLower(component))
}
