package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitLoggerWritesRotatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, err := InitLogger(dir, false)
	require.NoError(t, err)
	logger.Info("ticket created")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ticket created")
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestInitLoggerWithoutPathSkipsFile(t *testing.T) {
	logger, err := InitLogger("", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
