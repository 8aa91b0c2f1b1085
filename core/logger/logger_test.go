package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(Config{Environment: "development", Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loud")
}

func TestNewLoggerBuildsForEachEnvironment(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		l, err := NewLogger(Config{Environment: env, Level: "info"})
		require.NoError(t, err, env)
		require.NotNil(t, l)
	}
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := New(zap.New(core)).With(String("module", "core.routes"))

	l.Info("Module loaded", Int("routes", 2))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Module loaded", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "core.routes", ctx["module"])
	assert.EqualValues(t, 2, ctx["routes"])
}
