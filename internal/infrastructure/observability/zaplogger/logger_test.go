package zaplogger

import (
	"errors"
	"testing"

	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_WithAndErrorFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := Wrap(zap.New(core))

	logger.With(observability.F("session_id", "s-1")).Warn("intent_fallback",
		observability.F("reason", "malformed_output"),
		observability.F("error", errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "intent_fallback", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "s-1", ctx["session_id"])
	assert.Equal(t, "malformed_output", ctx["reason"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New("loud")
	assert.Error(t, err)
}
