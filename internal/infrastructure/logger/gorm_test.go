package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

// observedGormLogger returns a GormLogger whose output is captured for
// assertions.
func observedGormLogger(minLevel zapcore.Level, gormLevel gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(minLevel)
	return NewGormLogger(zap.New(core), gormLevel, opts...), recorded
}

func mappingQuery(rows int64) func() (string, int64) {
	return func() (string, int64) {
		return "SELECT * FROM subject_mappings", rows
	}
}

func TestNewGormLogger(t *testing.T) {
	gormLog, _ := observedGormLogger(zapcore.InfoLevel, gormlogger.Info)

	assert.NotNil(t, gormLog)
	assert.Equal(t, gormlogger.Info, gormLog.logLevel)

	var _ gormlogger.Interface = gormLog
}

func TestGormLoggerWithOptions(t *testing.T) {
	gormLog, _ := observedGormLogger(zapcore.InfoLevel, gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, 500*time.Millisecond, gormLog.slowThreshold)
	assert.False(t, gormLog.ignoreRecordNotFoundError)
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog, _ := observedGormLogger(zapcore.InfoLevel, gormlogger.Info)

	newLogger := gormLog.LogMode(gormlogger.Warn)

	// LogMode returns a copy, the original keeps its level
	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	newGormLog, ok := newLogger.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, newGormLog.logLevel)
}

func TestGormLoggerLevels(t *testing.T) {
	ctx := context.Background()

	t.Run("info formats arguments", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.InfoLevel, gormlogger.Info)
		gormLog.Info(ctx, "test message %s", "value")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "test message value")
	})

	t.Run("silent level suppresses info", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.InfoLevel, gormlogger.Silent)
		gormLog.Info(ctx, "test message")

		assert.Empty(t, recorded.All())
	})

	t.Run("warn", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.WarnLevel, gormlogger.Warn)
		gormLog.Warn(ctx, "warning message %d", 42)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "warning message 42")
		assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	})

	t.Run("error", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.ErrorLevel, gormlogger.Error)
		gormLog.Error(ctx, "error message")

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
	})
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := context.Background()

	t.Run("query error", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.ErrorLevel, gormlogger.Error)

		gormLog.Trace(ctx, time.Now(), mappingQuery(0), errors.New("test error"))

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "SQL Error")
	})

	t.Run("record not found can be ignored", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.ErrorLevel, gormlogger.Error,
			WithIgnoreRecordNotFoundError(true))

		gormLog.Trace(ctx, time.Now(), mappingQuery(0), gormlogger.ErrRecordNotFound)

		assert.Empty(t, recorded.All())
	})

	t.Run("slow query warns", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.WarnLevel, gormlogger.Warn,
			WithSlowThreshold(time.Nanosecond))

		begin := time.Now().Add(-time.Second)
		gormLog.Trace(ctx, begin, mappingQuery(10), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "SLOW SQL")
	})

	t.Run("normal query logs at debug", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.DebugLevel, gormlogger.Info)

		gormLog.Trace(ctx, time.Now(), mappingQuery(5), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0].Message, "SQL Query")
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.DebugLevel, gormlogger.Silent)

		gormLog.Trace(ctx, time.Now(), mappingQuery(5), nil)

		assert.Empty(t, recorded.All())
	})

	t.Run("request ID from context is attached", func(t *testing.T) {
		gormLog, recorded := observedGormLogger(zapcore.DebugLevel, gormlogger.Info)

		reqCtx := context.WithValue(ctx, RequestIDKey, "test-req-id")
		gormLog.Trace(reqCtx, time.Now(), mappingQuery(5), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)

		hasRequestID := false
		for _, field := range logs[0].Context {
			if field.Key == "request_id" {
				hasRequestID = true
				assert.Equal(t, "test-req-id", field.String)
			}
		}
		assert.True(t, hasRequestID, "request_id should be in log fields")
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
