package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/askbook/internal/config"
	"github.com/xxxsen/askbook/internal/db"
)

// OpenTestDB connects to the postgres pointed at by TEST_DB_HOST and resets
// the tables it touches. The test is skipped when the variable is unset.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "askbook",
		Password: "askbook_pass",
		DBName:   "askbook_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	for _, table := range []string{"questions", "embedding_cache", "corpus_sections"} {
		if _, err := conn.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
	return conn, func() {
		_ = conn.Close()
	}
}
