package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/db"
)

const defaultTestDSN = "host=localhost port=5432 user=postgres password=postgres dbname=rabbitmq_binding_test sslmode=disable"

// SetupTestDB connects to TEST_DATABASE_URL and applies the schema.
// The test is skipped when no database is reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = defaultTestDSN
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, dsn, "rabbitmq_binding_test")
	if err != nil {
		t.Skipf("Skipping: test database unavailable: %v", err)
	}
	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		CleanupTestDB(t, conn)
		conn.Close()
	})
	return conn
}

// CleanupTestDB removes every flush record
func CleanupTestDB(t *testing.T, conn *sql.DB) {
	t.Helper()

	if _, err := conn.Exec("TRUNCATE TABLE broker.flush_records"); err != nil {
		t.Logf("Warning: Failed to clean up flush records: %v", err)
	}
}
