package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerKeyValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Info("Frame received", "len", 9, "pan", "0xabcd")
	logger.With("radio", "serial").Warn("Radio unreachable")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Frame received", entries[0].Message)
	assert.Equal(t, map[string]any{"len": int64(9), "pan": "0xabcd"}, entries[0].ContextMap())
	assert.Equal(t, "serial", entries[1].ContextMap()["radio"])
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	assert.Error(t, err)

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)

	l, err := New(Config{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestOrNOOP(t *testing.T) {
	assert.Equal(t, NOOPLogger{}, OrNOOP(nil))
	l := NewZapLogger(zap.NewNop())
	assert.Same(t, l, OrNOOP(l))
}
