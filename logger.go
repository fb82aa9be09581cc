package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/leighmacdonald/rgs/internal/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MustCreateLogger panics when the log settings cannot be turned into a logger.
func MustCreateLogger(settings *config.Settings) *zap.Logger {
	logger, errLogger := newLogger(settings)
	if errLogger != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", errLogger))
	}

	return logger
}

func newLogger(settings *config.Settings) (*zap.Logger, error) {
	if settings.RunMode == config.ModeTest {
		return zap.NewNop(), nil
	}

	loggingConfig, errMode := modeLogConfig(settings.RunMode)
	if errMode != nil {
		return nil, errMode
	}

	level, errLevel := zap.ParseAtomicLevel(settings.LogLevel)
	if errLevel != nil {
		return nil, errors.Wrapf(errLevel, "Invalid log_level %q", settings.LogLevel)
	}

	loggingConfig.Level = level
	// stdout carries command output.
	loggingConfig.OutputPaths = []string{"stderr"}
	loggingConfig.ErrorOutputPaths = []string{"stderr"}

	if settings.DebugLogEnabled {
		logPath := settings.LogFilePath()

		// Every run starts a fresh file.
		if errRemove := os.Remove(logPath); errRemove != nil && !errors.Is(errRemove, fs.ErrNotExist) {
			return nil, errors.Wrap(errRemove, "Failed to remove log file")
		}

		loggingConfig.OutputPaths = append(loggingConfig.OutputPaths, logPath)
	}

	logger, errBuild := loggingConfig.Build()
	if errBuild != nil {
		return nil, errors.Wrap(errBuild, "Failed to build logger")
	}

	return logger.Named("rgs"), nil
}

func modeLogConfig(mode config.RunModes) (zap.Config, error) {
	switch mode {
	case config.ModeRelease:
		loggingConfig := zap.NewProductionConfig()
		loggingConfig.DisableCaller = true
		loggingConfig.Sampling = nil

		return loggingConfig, nil
	case config.ModeDebug:
		loggingConfig := zap.NewDevelopmentConfig()
		loggingConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

		return loggingConfig, nil
	default:
		return zap.Config{}, errors.Errorf("Unknown run mode: %s", mode)
	}
}
