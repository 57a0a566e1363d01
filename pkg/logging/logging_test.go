package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentstation/homestay/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := logging.DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.False(t, cfg.AddCaller)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, logging.ParseLevel(tt.in))
		})
	}
}

func TestNewLoggerFromConfigWritesJSONFile(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(originalLevel) })

	path := filepath.Join(t.TempDir(), "homestay.log")
	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:  "info",
		Format: "json",
		Output: path,
		Fields: map[string]any{"service": "homestay"},
	})
	logger.Info().Msg("report ready")
	logger.Debug().Msg("hidden")

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(content, &entry))
	assert.Equal(t, "report ready", entry["message"])
	assert.Equal(t, "homestay", entry["service"])
	assert.NotContains(t, string(content), "hidden")
}

func TestContextHelpers(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithRequestID(ctx, "req-1")
	ctx = logging.WithDataset(ctx, "upgradation")
	ctx = logging.WithEndpoint(ctx, "https://example.test")
	ctx = logging.WithOperation(ctx, "count")
	ctx = logging.WithError(ctx, errors.New("boom"))

	logging.FromContext(ctx).Info().Msg("counted")

	assert.Equal(t, "req-1", logging.RequestID(ctx))
	assert.Len(t, tl.Lines(), 1)
	for _, want := range []string{`"request_id":"req-1"`, `"dataset":"upgradation"`, `"endpoint":"https://example.test"`, `"operation":"count"`, `"error":"boom"`} {
		assert.True(t, tl.Contains(want), "missing %s in %s", want, tl.Output())
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, logging.Default(), logging.FromContext(context.Background()))
	assert.Empty(t, logging.RequestID(context.Background()))

	ctx := logging.WithError(context.Background(), nil)
	assert.Same(t, logging.Default(), logging.FromContext(ctx))
}

func TestWithFields(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithFields(ctx, map[string]any{"rows": 12, "cached": true})
	logging.FromContext(ctx).Info().Msg("served")

	assert.True(t, tl.Contains(`"rows":12`))
	assert.True(t, tl.Contains(`"cached":true`))
}

func TestSetDefault(t *testing.T) {
	original := *logging.Default()
	t.Cleanup(func() { logging.SetDefault(original) })

	tl := logging.NewTestLogger(t)
	logging.SetDefault(*tl.Logger)
	logging.FromContext(context.Background()).Info().Msg("installed")

	assert.True(t, tl.Contains(`"message":"installed"`))
}
