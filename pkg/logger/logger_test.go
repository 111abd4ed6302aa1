package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		" warn ":  zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		require.Equal(t, want, parseLevel(in), in)
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatConsole, "unknown"} {
		log, err := New("warn", format)
		require.NoError(t, err, format)
		require.False(t, log.Core().Enabled(zapcore.InfoLevel), format)
		require.True(t, log.Core().Enabled(zapcore.WarnLevel), format)
	}
}

func TestForUsesRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := &Logger{Logger: zap.New(core)}

	base.For(context.Background()).Info("plain")

	ctx := IntoContext(context.Background(), base.With(zap.String("correlation_id", "c-1")))
	base.For(ctx).Info("scoped")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Empty(t, entries[0].ContextMap())
	require.Equal(t, "c-1", entries[1].ContextMap()["correlation_id"])
}
