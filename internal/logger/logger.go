// Package logger holds the process-wide zap logger used by the command line
// and the servers. Library packages take a *zap.Logger instead.
package logger

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names for structured logging.
const (
	FieldK          = "k"
	FieldIteration  = "iteration"
	FieldMovement   = "movement"
	FieldTaskID     = "task_id"
	FieldNodes      = "nodes"
	FieldEdges      = "edges"
	FieldPath       = "path"
	FieldMethod     = "method"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldAddress    = "address"
)

var (
	// Logger is the global logger. It is a no-op until Initialize runs so
	// packages can log during init and in tests.
	Logger *zap.SugaredLogger
	// JSONOutput reports whether Initialize selected the JSON encoder.
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize builds the global logger. JSON output uses the zap production
// config; otherwise a console encoder writes to stderr so stdout stays free
// for command output.
func Initialize(jsonOutput bool, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	JSONOutput = jsonOutput

	var zapLogger *zap.Logger
	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		config.OutputPaths = []string{"stderr"}
		zapLogger, err = config.Build()
		if err != nil {
			return errors.Wrap(err, "build json logger")
		}
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encoderConfig),
				zapcore.AddSync(os.Stderr),
				lvl,
			),
		)
	}

	Logger = zapLogger.Sugar()
	return nil
}

// ParseLevel maps a level name to a zap level. The empty string means info.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return lvl, errors.WithHint(errors.Wrapf(err, "log level %q", level),
			"use one of debug, info, warn, error")
	}
	return lvl, nil
}

// Named returns the global logger as a *zap.Logger scoped to component.
func Named(component string) *zap.Logger {
	return Logger.Desugar().Named(component)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger.Sync()
}
