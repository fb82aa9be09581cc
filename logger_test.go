package main

import (
	"testing"

	"github.com/leighmacdonald/rgs/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	settings := config.NewSettings()
	settings.RunMode = config.ModeTest

	nop, errNop := newLogger(&settings)
	require.NoError(t, errNop)
	require.False(t, nop.Core().Enabled(zapcore.ErrorLevel))

	settings.RunMode = config.ModeRelease
	settings.LogLevel = "warn"

	release, errRelease := newLogger(&settings)
	require.NoError(t, errRelease)
	require.True(t, release.Core().Enabled(zapcore.WarnLevel))
	require.False(t, release.Core().Enabled(zapcore.InfoLevel))

	settings.RunMode = config.ModeDebug
	settings.LogLevel = "debug"

	debug, errDebug := newLogger(&settings)
	require.NoError(t, errDebug)
	require.True(t, debug.Core().Enabled(zapcore.DebugLevel))

	settings.LogLevel = "loud"
	_, errLevel := newLogger(&settings)
	require.ErrorContains(t, errLevel, "log_level")

	settings.LogLevel = "info"
	settings.RunMode = "bogus"
	_, errMode := newLogger(&settings)
	require.ErrorContains(t, errMode, "Unknown run mode")

	require.Panics(t, func() {
		MustCreateLogger(&settings)
	})
}
