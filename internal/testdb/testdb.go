package testdb

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/phrazzld/namegen-api/internal/config"
	"github.com/phrazzld/namegen-api/internal/platform/postgres"
	"github.com/phrazzld/namegen-api/internal/redact"
	"github.com/stretchr/testify/require"
)

// EnvDatabaseURL names the database used by integration tests.
const EnvDatabaseURL = "NAMEGEN_TEST_DATABASE_URL"

// TestTimeout bounds connection setup and migrations.
const TestTimeout = 30 * time.Second

// ShouldSkipDatabaseTest reports whether no test database is configured.
func ShouldSkipDatabaseTest() bool {
	return os.Getenv(EnvDatabaseURL) == ""
}

// URL returns the test database URL, skipping the test when it is unset.
func URL(t *testing.T) string {
	t.Helper()
	if ShouldSkipDatabaseTest() {
		t.Skipf("%s not set; skipping PostgreSQL integration test", EnvDatabaseURL)
	}
	return os.Getenv(EnvDatabaseURL)
}

// Open connects to the test database and applies all migrations.
// The connection is closed when the test completes.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	url := URL(t)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, config.DatabaseConfig{
		URL:                    url,
		MaxOpenConns:           10,
		MaxIdleConns:           5,
		ConnMaxLifetimeMinutes: 5,
	}, quiet)
	require.NoError(t, err, "connecting to %s", redact.String(url))
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(ctx, db, "up", quiet), "applying migrations")
	return db
}

// Reset removes every task and slug reservation.
func Reset(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`TRUNCATE tasks, task_slugs`)
	require.NoError(t, err)
}

// WithTx runs fn inside a transaction that is rolled back afterwards.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			t.Errorf("rollback failed: %v", err)
		}
	}()

	fn(t, tx)
}
