package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationFilesSorted(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.Equal(t, []string{
		"0001_questions.sql",
		"0002_embedding_cache.sql",
		"0003_corpus_sections.sql",
		"0004_embedding_cache_served_by.sql",
	}, files)
}

func TestPendingMigrationsSkipsApplied(t *testing.T) {
	files := []string{"0001_a.sql", "0002_b.sql", "0003_c.sql"}
	require.Equal(t, files, pendingMigrations(files, nil))
	require.Equal(t, []string{"0003_c.sql"}, pendingMigrations(files, map[string]bool{
		"0001_a.sql": true,
		"0002_b.sql": true,
	}))
	require.Empty(t, pendingMigrations(files, map[string]bool{
		"0001_a.sql": true,
		"0002_b.sql": true,
		"0003_c.sql": true,
	}))
}
