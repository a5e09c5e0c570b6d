package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/feudal-economy/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitAndSetLevel(t *testing.T) {
	err := Init(&config.LogConfig{
		Level:   "info",
		Format:  "json",
		Output:  "stdout",
		Modules: map[string]string{"guard": "debug"},
	})
	require.NoError(t, err)

	assert.NotNil(t, GetLogger())
	assert.True(t, GetModuleLogger("guard").Core().Enabled(zapcore.DebugLevel))
	// 未配置的模块回退到全局日志器
	assert.Equal(t, GetLogger(), GetModuleLogger("unknown"))

	assert.False(t, GetLogger().Core().Enabled(zapcore.DebugLevel))
	SetLevel("debug")
	assert.True(t, GetLogger().Core().Enabled(zapcore.DebugLevel))
	SetLevel("info")

	LogTaxEvent("tick", "uuid-1", 1, 4)
	LogGuardEvent("warn", 7, "uuid-2")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

// observe 把模块日志器替换为内存观察器
func observe(t *testing.T, module string) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	mu.Lock()
	prev, had := modules[module]
	modules[module] = zap.New(core)
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		if had {
			modules[module] = prev
		} else {
			delete(modules, module)
		}
	})
	return logs
}

func TestLogDatabaseOperation(t *testing.T) {
	logs := observe(t, "database")

	LogDatabaseOperation("migrate", "members", time.Millisecond, nil)
	LogDatabaseOperation("migrate", "npc_traits", time.Millisecond, errors.New("locked"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "members", entries[0].ContextMap()["table"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "locked", entries[1].ContextMap()["error"])
}

func TestLogWebSocketMessage(t *testing.T) {
	logs := observe(t, "websocket")

	LogWebSocketMessage("send", "npc:3", "notice")

	entries := logs.FilterMessage("ws_message").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "send", fields["direction"])
	assert.Equal(t, "npc:3", fields["identity"])
	assert.Equal(t, "notice", fields["type"])
}
