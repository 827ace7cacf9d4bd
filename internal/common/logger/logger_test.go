package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapAdapter_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"courseId": int64(3)})

	log.Info("certificate transferred", map[string]interface{}{"userId": int64(9)})
	log.WithError(errors.New("registry down")).Error("transfer failed", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "certificate transferred", entries[0].Message)
	assert.Equal(t, int64(3), first["courseId"])
	assert.Equal(t, int64(9), first["userId"])

	second := entries[1].ContextMap()
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "registry down", second["error"])
}

func TestZapAdapter_ErrorValuedField(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZapAdapter(zap.New(core))

	log.Debug("dropped", nil)
	log.Warn("emit failed", map[string]interface{}{"cause": errors.New("sns throttled")})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "sns throttled", entries[0].ContextMap()["cause"])
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workers.log")
	l := New("info", "json", path)
	l.Info("worker started", zap.String("taskType", "certificate.transfer"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"worker started"`)
	assert.Contains(t, string(data), `"taskType":"certificate.transfer"`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestNew_Levels(t *testing.T) {
	assert.True(t, New("debug", "console").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, New("warn", "json").Core().Enabled(zapcore.InfoLevel))
	assert.True(t, New("bogus", "json").Core().Enabled(zapcore.InfoLevel))
}
