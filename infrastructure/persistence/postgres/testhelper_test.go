package postgres

import (
	"context"
	"os"
	"testing"

	"go.uber.org/zap"
)

// setupTestDB connects to DATABASE_URL and applies migrations. Tests that
// need a live database are skipped when it is unset.
func setupTestDB(t *testing.T) *Database {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := Open(context.Background(), url, DefaultPoolConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		for _, table := range []string{"nodes", "catalogs", "work_items", "lookups", "graph_objects"} {
			if _, err := db.DB.Exec("DELETE FROM " + table); err != nil {
				t.Logf("Warning: Failed to clean up table %s: %v", table, err)
			}
		}
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close database: %v", err)
		}
	})
	return db
}
