package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSet_ReplacesGlobals(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(zap.NewNop()) })

	Log().Info("direct", zap.Int("frame", 3))
	zap.S().Infow("sugared", "frame", 4)
	zap.L().Info("global")

	require.Equal(t, 3, logs.Len())
	entries := logs.All()
	assert.Equal(t, "direct", entries[0].Message)
	assert.Equal(t, int64(3), entries[0].ContextMap()["frame"])
	assert.Equal(t, "sugared", entries[1].Message)
	assert.Equal(t, "global", entries[2].Message)
}

func TestInitProduction(t *testing.T) {
	t.Cleanup(func() { Set(zap.NewNop()) })

	require.NoError(t, InitProduction(false))
	assert.False(t, Log().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, InitProduction(true))
	assert.True(t, Log().Core().Enabled(zapcore.DebugLevel))
	Sync()
}

func TestInitDevelopment(t *testing.T) {
	t.Cleanup(func() { Set(zap.NewNop()) })

	require.NoError(t, InitDevelopment())
	assert.True(t, Log().Core().Enabled(zapcore.DebugLevel))
	assert.Same(t, Log(), zap.L())
}

func TestOr(t *testing.T) {
	assert.NotNil(t, Or(nil))

	l := zap.NewExample()
	assert.Same(t, l, Or(l))
}
