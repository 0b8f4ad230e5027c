package log_test

import (
	"testing"

	"github.com/on-the-ground/featurino/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := log.New(log.LevelWarn, false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = log.New("", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = log.New("loud", false)
	assert.Error(t, err)
}

func TestNewTest(t *testing.T) {
	logger := log.NewTest()
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	logger.Debug("hello", log.Fields(map[string]interface{}{"k": 1})...)
}

func TestFields(t *testing.T) {
	fields := log.Fields(map[string]interface{}{
		"b": 2,
		"a": "x",
	})
	assert.Equal(t, []zap.Field{zap.Any("a", "x"), zap.Any("b", 2)}, fields)
}
