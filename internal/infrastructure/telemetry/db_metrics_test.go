package telemetry

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dbMetricsForTest builds a DBMetrics instance on an isolated meter
// provider backed by a manual reader, so each subtest collects and
// inspects its own datapoints.
func dbMetricsForTest(t *testing.T, name string, cfg DBMetricsConfig) (*sdkmetric.ManualReader, *DBMetrics) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewDBMetrics(provider.Meter(name), cfg, zap.NewNop())
	require.NoError(t, err)
	return reader, metrics
}

func collected(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

// findMetric reports whether a metric with the given name was collected.
func findMetric(rm metricdata.ResourceMetrics, name string) bool {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}

func mockSQLDB(t *testing.T) *sql.DB {
	t.Helper()
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return mockDB
}

func mockGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockSQLDB(t)}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB
}

func TestDefaultDBMetricsConfig(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)
}

func TestNewDBMetrics(t *testing.T) {
	t.Run("creates all instruments", func(t *testing.T) {
		_, metrics := dbMetricsForTest(t, "new", DefaultDBMetricsConfig())

		assert.NotNil(t, metrics.poolConnections)
		assert.NotNil(t, metrics.poolConnectionsMax)
		assert.NotNil(t, metrics.queryTotal)
		assert.NotNil(t, metrics.queryDuration)
		assert.NotNil(t, metrics.slowQueryTotal)
	})

	t.Run("fills in zero config values", func(t *testing.T) {
		_, metrics := dbMetricsForTest(t, "zero", DBMetricsConfig{})

		assert.Equal(t, 200*time.Millisecond, metrics.config.SlowQueryThreshold)
		assert.Equal(t, 15*time.Second, metrics.config.PoolStatsInterval)
	})

	t.Run("tolerates nil logger", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

		metrics, err := NewDBMetrics(provider.Meter("nil"), DefaultDBMetricsConfig(), nil)
		require.NoError(t, err)
		require.NotNil(t, metrics.logger)
	})
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("records query count and duration", func(t *testing.T) {
		reader, metrics := dbMetricsForTest(t, "count", DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 200 * time.Millisecond,
		})

		metrics.RecordQuery(ctx, "SELECT", "subject_mappings", 50*time.Millisecond, nil)

		rm := collected(t, reader)
		assert.True(t, findMetric(rm, "db_query_total"))
		assert.True(t, findMetric(rm, "db_query_duration_seconds"))
	})

	t.Run("counts queries over the slow threshold", func(t *testing.T) {
		reader, metrics := dbMetricsForTest(t, "slow", DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 100 * time.Millisecond,
		})

		metrics.RecordQuery(ctx, "SELECT", "orders", 250*time.Millisecond, nil)

		assert.True(t, findMetric(collected(t, reader), "db_slow_query_total"))
	})

	t.Run("fast queries leave the slow counter at zero", func(t *testing.T) {
		reader, metrics := dbMetricsForTest(t, "fast", DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 200 * time.Millisecond,
		})

		metrics.RecordQuery(ctx, "SELECT", "orders", 50*time.Millisecond, nil)

		for _, sm := range collected(t, reader).ScopeMetrics {
			for _, m := range sm.Metrics {
				if m.Name != "db_slow_query_total" {
					continue
				}
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					assert.Equal(t, int64(0), dp.Value)
				}
			}
		}
	})

	t.Run("normalizes operation case and empty values", func(t *testing.T) {
		reader, metrics := dbMetricsForTest(t, "norm", DefaultDBMetricsConfig())

		metrics.RecordQuery(ctx, "select", "subject_mappings", 10*time.Millisecond, nil)
		metrics.RecordQuery(ctx, "Insert", "orders", 10*time.Millisecond, nil)
		metrics.RecordQuery(ctx, "", "orders", 10*time.Millisecond, nil) // recorded as UNKNOWN

		assert.True(t, findMetric(collected(t, reader), "db_query_total"))
	})

	t.Run("slow query with no table name is attributed to unknown", func(t *testing.T) {
		reader, metrics := dbMetricsForTest(t, "notable", DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 50 * time.Millisecond,
		})

		metrics.RecordQuery(ctx, "SELECT", "", 100*time.Millisecond, nil)

		assert.True(t, findMetric(collected(t, reader), "db_slow_query_total"))
	})
}

func TestDBMetrics_PoolStats(t *testing.T) {
	t.Run("collects pool stats periodically", func(t *testing.T) {
		reader, metrics := dbMetricsForTest(t, "pool", DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: 50 * time.Millisecond,
		})
		metrics.SetSQLDB(mockSQLDB(t))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		metrics.StartPoolStatsCollection(ctx)
		time.Sleep(100 * time.Millisecond)
		metrics.Stop()

		rm := collected(t, reader)
		assert.True(t, findMetric(rm, "db_pool_connections_max"))
		assert.True(t, findMetric(rm, "db_pool_connections"))
	})

	t.Run("is a no-op when sqlDB was never set", func(t *testing.T) {
		_, metrics := dbMetricsForTest(t, "nodb", DefaultDBMetricsConfig())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		metrics.StartPoolStatsCollection(ctx)
		time.Sleep(50 * time.Millisecond)
		metrics.Stop()
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		_, metrics := dbMetricsForTest(t, "cancel", DBMetricsConfig{
			Enabled:           true,
			PoolStatsInterval: 1 * time.Second,
		})
		metrics.SetSQLDB(mockSQLDB(t))

		ctx, cancel := context.WithCancel(context.Background())
		metrics.StartPoolStatsCollection(ctx)
		cancel()
		metrics.Stop()
	})
}

func TestDBMetrics_Stop(t *testing.T) {
	_, metrics := dbMetricsForTest(t, "stop", DBMetricsConfig{
		Enabled:           true,
		PoolStatsInterval: 100 * time.Millisecond,
	})
	metrics.SetSQLDB(mockSQLDB(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.StartPoolStatsCollection(ctx)

	done := make(chan struct{})
	go func() {
		metrics.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() blocked for too long")
	}

	// Repeated stops must be safe
	assert.NotPanics(t, func() { metrics.Stop() })
	assert.NotPanics(t, func() { metrics.Stop() })
}

func TestDBMetricsPlugin(t *testing.T) {
	t.Run("plugin name", func(t *testing.T) {
		_, metrics := dbMetricsForTest(t, "name", DefaultDBMetricsConfig())

		plugin := NewDBMetricsPlugin(metrics, zap.NewNop())
		assert.Equal(t, "db_metrics", plugin.Name())
	})

	t.Run("registers callbacks on a gorm db", func(t *testing.T) {
		_, metrics := dbMetricsForTest(t, "init", DefaultDBMetricsConfig())

		plugin := NewDBMetricsPlugin(metrics, zap.NewNop())
		require.NoError(t, plugin.Initialize(mockGormDB(t)))
	})
}

func TestDetectOperationType(t *testing.T) {
	tests := []struct {
		sql      string
		expected string
	}{
		{"SELECT * FROM orders", "SELECT"},
		{"select id from orders", "SELECT"},
		{"  SELECT id FROM cutover_routes", "SELECT"},
		{"INSERT INTO subject_mappings (user_id) VALUES ('u1')", "INSERT"},
		{"insert into orders values (1)", "INSERT"},
		{"UPDATE cutover_routes SET percentage = 25", "UPDATE"},
		{"update subject_mappings set active = false", "UPDATE"},
		{"DELETE FROM order_items WHERE id = 1", "DELETE"},
		{"delete from orders", "DELETE"},
		{"CREATE TABLE orders", "OTHER"},
		{"DROP TABLE orders", "OTHER"},
		{"", "OTHER"},
		{"TRUNCATE TABLE orders", "OTHER"},
	}

	for _, tc := range tests {
		t.Run(tc.sql, func(t *testing.T) {
			assert.Equal(t, tc.expected, detectOperationType(tc.sql))
		})
	}
}

func TestRegisterDBMetrics(t *testing.T) {
	logger := zap.NewNop()

	t.Run("returns nil when disabled", func(t *testing.T) {
		metrics, err := RegisterDBMetrics(mockGormDB(t), nil, DBMetricsConfig{Enabled: false}, logger)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("returns nil without a meter provider", func(t *testing.T) {
		metrics, err := RegisterDBMetrics(mockGormDB(t), nil, DBMetricsConfig{Enabled: true}, logger)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("registers metrics when enabled", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		sdkProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		t.Cleanup(func() { _ = sdkProvider.Shutdown(context.Background()) })

		mp := &MeterProvider{
			provider: sdkProvider,
			logger:   logger,
			config:   MetricsConfig{Enabled: true},
		}

		metrics, err := RegisterDBMetrics(mockGormDB(t), mp, DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 200 * time.Millisecond,
			PoolStatsInterval:  15 * time.Second,
		}, logger)

		require.NoError(t, err)
		require.NotNil(t, metrics)
	})
}

func TestDBMetrics_ConcurrentRecordQuery(t *testing.T) {
	ctx := context.Background()
	reader, metrics := dbMetricsForTest(t, "concurrent", DefaultDBMetricsConfig())

	operations := []string{"SELECT", "INSERT", "UPDATE", "DELETE"}
	tables := []string{"orders", "order_items", "subject_mappings", "cutover_routes"}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			metrics.RecordQuery(ctx, operations[i%4], tables[i%4], time.Duration(i)*time.Millisecond, nil)
		}(i)
	}
	wg.Wait()

	assert.True(t, findMetric(collected(t, reader), "db_query_total"))
}
