package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ironsheep/marker-pose/internal/logger"
)

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { logger.Set(zap.NewNop()) })

	tests := []struct {
		name      string
		debug     bool
		dev       bool
		wantDebug bool
	}{
		{"production", false, false, false},
		{"production debug", true, false, true},
		{"development", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initLogger(tt.debug, tt.dev)
			assert.Equal(t, tt.wantDebug, logger.Log().Core().Enabled(zapcore.DebugLevel))
		})
	}
}
