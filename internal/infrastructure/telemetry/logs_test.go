package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func disabledLogsProvider(t *testing.T) *LoggerProvider {
	t.Helper()
	provider, err := NewLoggerProvider(context.Background(), LogsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "legacy-bridge",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	return provider
}

// enabledLogsProvider points at a non-existent collector; the exporter
// buffers until it can connect, so construction still succeeds.
func enabledLogsProvider(t *testing.T) *LoggerProvider {
	t.Helper()
	provider, err := NewLoggerProvider(context.Background(), LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:19999",
		ServiceName:       "legacy-bridge",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	provider := disabledLogsProvider(t)

	assert.False(t, provider.IsEnabled())
	assert.Nil(t, provider.GetLoggerProvider())

	assert.NoError(t, provider.Shutdown(context.Background()))
	assert.NoError(t, provider.ForceFlush(context.Background()))
}

func TestNewLoggerProvider_EnabledBuffersWithoutCollector(t *testing.T) {
	provider := enabledLogsProvider(t)

	assert.True(t, provider.IsEnabled())
	assert.NotNil(t, provider.GetLoggerProvider())
}

func TestLoggerProvider_GetConfig(t *testing.T) {
	provider := disabledLogsProvider(t)

	cfg := provider.GetConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:14317", cfg.CollectorEndpoint)
	assert.Equal(t, "legacy-bridge", cfg.ServiceName)
	assert.True(t, cfg.Insecure)
}

func TestLoggerProvider_Shutdown_MultipleCalls(t *testing.T) {
	provider := disabledLogsProvider(t)
	ctx := context.Background()

	assert.NoError(t, provider.Shutdown(ctx))
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestNewZapOTELCore_NilOrDisabledProvider(t *testing.T) {
	// Both a nil provider and a disabled one yield a nop core
	core := NewZapOTELCore(ZapBridgeConfig{
		ServiceName: "legacy-bridge",
		Level:       zapcore.InfoLevel,
	})
	assert.False(t, core.Enabled(zapcore.InfoLevel))

	core = NewZapOTELCore(ZapBridgeConfig{
		ServiceName:    "legacy-bridge",
		LoggerProvider: disabledLogsProvider(t),
		Level:          zapcore.InfoLevel,
	})
	assert.False(t, core.Enabled(zapcore.InfoLevel))
}

func TestNewZapOTELCore_DebugLevelIsUnfiltered(t *testing.T) {
	core := NewZapOTELCore(ZapBridgeConfig{
		ServiceName:    "legacy-bridge",
		LoggerProvider: enabledLogsProvider(t),
		Level:          zapcore.DebugLevel,
	})

	for _, lvl := range []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel} {
		assert.True(t, core.Enabled(lvl))
	}
}

func TestNewZapOTELCore_WithLevelFilter(t *testing.T) {
	core := NewZapOTELCore(ZapBridgeConfig{
		ServiceName:    "legacy-bridge",
		LoggerProvider: enabledLogsProvider(t),
		Level:          zapcore.WarnLevel,
	})

	_, isFiltered := core.(*levelFilterCore)
	assert.True(t, isFiltered, "core should be wrapped with levelFilterCore")

	assert.False(t, core.Enabled(zapcore.DebugLevel))
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}

func TestNewBridgedLogger(t *testing.T) {
	observedZapCore, observedLogs := observer.New(zapcore.InfoLevel)

	// Nop stands in for the OTEL side; no collector in unit tests
	logger := NewBridgedLogger(observedZapCore, zapcore.NewNopCore(), zap.AddCaller())

	logger.Info("route decided", zap.String("route_target", "modern"))
	logger.Debug("debug message") // below InfoLevel, dropped
	logger.Warn("legacy store slow")

	logs := observedLogs.All()
	require.Len(t, logs, 2)

	assert.Equal(t, "route decided", logs[0].Message)
	assert.Equal(t, zapcore.InfoLevel, logs[0].Level)
	assert.Contains(t, logs[0].Context, zap.String("route_target", "modern"))

	assert.Equal(t, "legacy store slow", logs[1].Message)
	assert.Equal(t, zapcore.WarnLevel, logs[1].Level)
}

func TestCreateBridgedLoggerFromConfig(t *testing.T) {
	baseConfig := &BaseLoggerConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	logger, err := CreateBridgedLoggerFromConfig(baseConfig, disabledLogsProvider(t), "legacy-bridge")
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("bridged logger smoke test",
		zap.String("request_id", "req-123"),
		zap.Int64("legacy_subject_id", 1042),
	)
	_ = logger.Sync()
}

func TestDefaultBaseLoggerConfig(t *testing.T) {
	cfg := DefaultBaseLoggerConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestParseLogLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseLogLevel(tc.input))
		})
	}
}

func TestCreateLogEncoder(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		encoder := createLogEncoder(&BaseLoggerConfig{
			Format:     "json",
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		})

		buf, err := encoder.EncodeEntry(zapcore.Entry{Level: zapcore.InfoLevel, Message: "test"}, nil)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"level":"info"`)
		assert.Contains(t, buf.String(), `"msg":"test"`)
	})

	t.Run("console", func(t *testing.T) {
		encoder := createLogEncoder(&BaseLoggerConfig{
			Format:     "console",
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		})

		buf, err := encoder.EncodeEntry(zapcore.Entry{Level: zapcore.InfoLevel, Message: "test"}, nil)
		require.NoError(t, err)
		assert.NotContains(t, buf.String(), `"level"`)
	})
}

func TestCreateLogWriter(t *testing.T) {
	assert.NotNil(t, createLogWriter("stdout"))
	assert.NotNil(t, createLogWriter("stderr"))
	// Unknown outputs fall back to stdout
	assert.NotNil(t, createLogWriter("/tmp/bridge.log"))
}

func TestCreateBaseCore(t *testing.T) {
	core := createBaseCore(&BaseLoggerConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	assert.True(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
	assert.False(t, core.Enabled(zapcore.DebugLevel))
}

func TestLevelFilterCore(t *testing.T) {
	observedZapCore, observedLogs := observer.New(zapcore.DebugLevel)

	filteredCore := &levelFilterCore{
		Core:     observedZapCore,
		minLevel: zapcore.WarnLevel,
	}

	assert.True(t, filteredCore.Enabled(zapcore.WarnLevel))
	assert.True(t, filteredCore.Enabled(zapcore.ErrorLevel))
	assert.False(t, filteredCore.Enabled(zapcore.InfoLevel))
	assert.False(t, filteredCore.Enabled(zapcore.DebugLevel))

	logger := zap.New(filteredCore)
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	logs := observedLogs.All()
	require.Len(t, logs, 2)
	assert.Equal(t, "warn", logs[0].Message)
	assert.Equal(t, "error", logs[1].Message)
}

func TestLevelFilterCore_With(t *testing.T) {
	observedZapCore, observedLogs := observer.New(zapcore.DebugLevel)

	filteredCore := &levelFilterCore{
		Core:     observedZapCore,
		minLevel: zapcore.WarnLevel,
	}

	childCore := filteredCore.With([]zapcore.Field{zap.String("service", "legacy-bridge")})

	// With must preserve the level filter
	lfCore, ok := childCore.(*levelFilterCore)
	require.True(t, ok)
	assert.Equal(t, zapcore.WarnLevel, lfCore.minLevel)

	zap.New(childCore).Warn("filtered child")

	logs := observedLogs.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "filtered child", logs[0].Message)
	assert.Contains(t, logs[0].Context, zap.String("service", "legacy-bridge"))
}
