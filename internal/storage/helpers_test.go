package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/property-portfolio/internal/config"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testPostgresConfig() *config.PostgresConfig {
	return &config.PostgresConfig{
		Host:           envOr("TEST_DB_HOST", "localhost"),
		Port:           envOr("TEST_DB_PORT", "5432"),
		Database:       envOr("TEST_DB_NAME", "property_portfolio_test"),
		User:           envOr("TEST_DB_USER", "postgres"),
		Password:       envOr("TEST_DB_PASSWORD", "postgres"),
		SSLMode:        "disable",
		MaxConnections: 5,
	}
}

// openTestDB connects to the test database, migrates it and empties both
// tables. The test is skipped when no database is reachable.
func openTestDB(t *testing.T) *PostgresDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testPostgresConfig()
	db, err := NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	if err := NewMigrator(cfg.DatabaseURL(), "../../migrations/postgres").Up(); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	if _, err := db.Pool().Exec(testContext(t), `TRUNCATE properties, portfolios RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}

	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
