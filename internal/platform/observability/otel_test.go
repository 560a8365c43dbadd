package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", " collector:4318 ")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "TEXT")

	s := loadSettings()
	assert.Equal(t, "collector:4318", s.endpoint)
	assert.False(t, s.insecure)
	assert.Equal(t, slog.LevelDebug, s.logLevel)
	assert.Equal(t, "text", s.logFormat)
	assert.Equal(t, "local", s.environment)
}

func TestLoadSettings_UnknownLevelFallsBackToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "chatty")
	assert.Equal(t, slog.LevelInfo, loadSettings().logLevel)
}

func TestInstruments_NilIsUsable(t *testing.T) {
	var instruments *Instruments
	require.NotNil(t, instruments.Tracer("test"))

	counter, err := instruments.Meter("test").Int64Counter("calls")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
}
