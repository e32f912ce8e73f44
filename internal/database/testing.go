package database

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestDatabaseEnv names the variable holding a test database DSN
const TestDatabaseEnv = "VOTER_POWER_TEST_DATABASE"

// SetupTestDB connects to the database named by VOTER_POWER_TEST_DATABASE
// and creates the schema, skipping the test when the variable is unset
func SetupTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv(TestDatabaseEnv)
	if dsn == "" {
		t.Skipf("Integration test - set %s to run", TestDatabaseEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := configFromDSN(dsn)
	if err != nil {
		t.Fatalf("failed to parse %s: %v", TestDatabaseEnv, err)
	}
	db, err := Initialize(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	return db
}

// TeardownTestDB closes the database connection
func TeardownTestDB(t *testing.T, db *DB) {
	t.Helper()
	db.Close()
}
