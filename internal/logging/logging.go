package logging

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level and encoder of the process logger.
type Config struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// New builds the process logger. The json format splits output by level:
// errors and above go to stderr, everything else to stdout.
func New(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevel()
	if err := SetLevel(level, cfg.Level); err != nil {
		return nil, level, err
	}

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		isErrorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return level.Enabled(lvl) && lvl >= zapcore.ErrorLevel
		})
		isInfoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return level.Enabled(lvl) && lvl < zapcore.ErrorLevel
		})
		stdoutWriter := zapcore.Lock(os.Stdout)
		stderrWriter := zapcore.Lock(os.Stderr)

		config := zap.NewProductionEncoderConfig()
		config.EncodeTime = zapcore.RFC3339TimeEncoder
		encoder := zapcore.NewJSONEncoder(config)

		core := zapcore.NewTee(
			zapcore.NewCore(encoder, stderrWriter, isErrorLevel),
			zapcore.NewCore(encoder, stdoutWriter, isInfoLevel),
		)
		return zap.New(core, zap.AddCaller()), level, nil
	case "console":
		config := zap.NewDevelopmentConfig()
		config.Level = level
		logger, err := config.Build()
		if err != nil {
			return nil, level, errors.Wrap(err, "failed to build console logger")
		}
		return logger, level, nil
	default:
		return nil, level, errors.Errorf("invalid log.format: %s (must be json or console)", cfg.Format)
	}
}

// SetLevel parses name and applies it to level. An empty name means info.
func SetLevel(level zap.AtomicLevel, name string) error {
	if name == "" {
		name = "info"
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return errors.Errorf("invalid log.level: %s", name)
	}
	level.SetLevel(lvl)
	return nil
}
