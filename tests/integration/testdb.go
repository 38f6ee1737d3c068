// Package integration holds end-to-end tests that run against a real
// PostgreSQL instance provisioned through testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const postgresImage = "postgres:16-alpine"

// One container can be shared across a package's tests; guarded by the mutex.
var (
	sharedContainer    testcontainers.Container
	sharedContainerDSN string
	sharedContainerMu  sync.Mutex
)

// TestDB bundles a migrated database connection with the container it
// runs in.
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

func startPostgres(t *testing.T, dbName string) (testcontainers.Container, string) {
	t.Helper()
	ctx := context.Background()

	// Postgres restarts once during init, hence the second occurrence
	ready := wait.ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(60 * time.Second)

	container, err := tcpostgres.Run(ctx,
		postgresImage,
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(ready),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")
	return container, dsn
}

// NewTestDB starts a dedicated container, migrates it, and tears it down
// when the test finishes. Use it when tests mutate state freely.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	container, dsn := startPostgres(t, "bridge_test")
	db, sqlDB := openGorm(t, dsn)
	applyMigrations(t, sqlDB)

	testDB := &TestDB{DB: db, SqlDB: sqlDB, Container: container, DSN: dsn, t: t}
	t.Cleanup(testDB.Close)
	return testDB
}

// NewSharedTestDB hands out connections to a single long-lived container.
// Cheaper than NewTestDB for read-mostly tests; callers are responsible
// for leaving tables the way they found them.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer == nil {
		sharedContainer, sharedContainerDSN = startPostgres(t, "bridge_shared_test")

		// Migrate once; subsequent callers reuse the schema
		_, sqlDB := openGorm(t, sharedContainerDSN)
		applyMigrations(t, sqlDB)
		sqlDB.Close()
	}

	db, sqlDB := openGorm(t, sharedContainerDSN)

	// The container outlives the test; only the connection is closed here
	t.Cleanup(func() { sqlDB.Close() })

	return &TestDB{DB: db, SqlDB: sqlDB, Container: sharedContainer, DSN: sharedContainerDSN, t: t}
}

// CleanupSharedContainer terminates the shared container. Call it from
// TestMain when the package uses NewSharedTestDB.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sharedContainer.Terminate(ctx)
	sharedContainer = nil
	sharedContainerDSN = ""
}

// Close closes the connection and, for dedicated containers, terminates them.
func (tdb *TestDB) Close() {
	if tdb.SqlDB != nil {
		tdb.SqlDB.Close()
	}
	if tdb.Container != nil && tdb.Container != sharedContainer {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("warning: failed to terminate container: %v", err)
		}
	}
}

// CleanTables truncates every public table except the migration bookkeeping.
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "failed to list tables")

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			tdb.t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// WithTransaction runs fn inside a transaction that is always rolled
// back, isolating the test without touching other tables.
func (tdb *TestDB) WithTransaction(fn func(tx *gorm.DB)) {
	tdb.t.Helper()

	tx := tdb.DB.Begin()
	require.NoError(tdb.t, tx.Error, "failed to begin transaction")
	defer tx.Rollback()

	fn(tx)
}

// CreateLegacyPermissionTable creates the monolith's user_permissions table in
// the test database. Production reads this table from the legacy database; in
// tests both live in the same container.
func (tdb *TestDB) CreateLegacyPermissionTable() {
	tdb.t.Helper()

	err := tdb.DB.Exec(`
		CREATE TABLE IF NOT EXISTS user_permissions (
			user_id   BIGINT       NOT NULL,
			operation VARCHAR(64)  NOT NULL,
			allowed   BOOLEAN      NOT NULL DEFAULT FALSE,
			PRIMARY KEY (user_id, operation)
		)
	`).Error
	require.NoError(tdb.t, err, "failed to create legacy permission table")
}

// SeedLegacyGrant inserts a legacy authorization record.
func (tdb *TestDB) SeedLegacyGrant(subjectID int64, operation string, allowed bool) {
	tdb.t.Helper()

	err := tdb.DB.Exec(`
		INSERT INTO user_permissions (user_id, operation, allowed)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, operation) DO UPDATE SET allowed = EXCLUDED.allowed
	`, subjectID, operation, allowed).Error
	require.NoError(tdb.t, err, "failed to seed legacy grant")
}

// DropLegacyPermissionTable removes the simulated legacy table, making the
// SQL gateway fail as if the legacy database were unreachable.
func (tdb *TestDB) DropLegacyPermissionTable() {
	tdb.t.Helper()

	err := tdb.DB.Exec(`DROP TABLE IF EXISTS user_permissions`).Error
	require.NoError(tdb.t, err, "failed to drop legacy permission table")
}

func openGorm(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	logMode := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		logMode = logger.Info
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	require.NoError(t, err, "failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "failed to get underlying sql.DB")

	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db, sqlDB
}

func applyMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	migrationsPath := locateMigrations()
	require.NotEmpty(t, migrationsPath, "could not find migrations directory")

	driver, err := mpg.WithInstance(sqlDB, &mpg.Config{})
	require.NoError(t, err, "failed to create migration driver")

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	require.NoError(t, err, "failed to create migrate instance")

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "failed to run migrations")
	}
}

// locateMigrations walks up from this file, then from the working
// directory, until it finds the migrations directory.
func locateMigrations() string {
	var roots []string
	if _, filename, _, ok := runtime.Caller(0); ok {
		dir := filepath.Dir(filename)
		for i := 0; i < 5; i++ {
			roots = append(roots, dir)
			dir = filepath.Dir(dir)
		}
	}
	if wd, err := os.Getwd(); err == nil {
		roots = append(roots, wd, filepath.Join(wd, ".."), filepath.Join(wd, "..", ".."))
	}

	for _, root := range roots {
		candidate := filepath.Join(root, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return ""
}
