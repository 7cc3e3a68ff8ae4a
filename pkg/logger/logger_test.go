package logger

import (
	"path/filepath"
	"testing"

	"readsy_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLevelFor(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Mode: "debug"}}
	assert.Equal(t, zap.DebugLevel, levelFor(cfg))

	cfg.Server.Mode = "release"
	assert.Equal(t, zap.InfoLevel, levelFor(cfg))

	cfg.Log.Level = "warn"
	assert.Equal(t, zap.WarnLevel, levelFor(cfg))

	cfg.Log.Level = "loud"
	assert.Equal(t, zap.InfoLevel, levelFor(cfg))
}

func TestInitLogger_WritesFile(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "release"},
		Log:    config.LogConfig{File: filepath.Join(t.TempDir(), "readsy.log"), MaxSizeMB: 1},
	}
	InitLogger(cfg)
	assert.True(t, Log.Core().Enabled(zap.InfoLevel))
	assert.False(t, Log.Core().Enabled(zap.DebugLevel))
	Log.Info("hello")
	Sync()
}
