package dbutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalizeRebindsAndSwapsLimit(t *testing.T) {
	query, args := Finalize("SELECT id FROM questions WHERE question = ? LIMIT ?,?", []interface{}{"q?", 0, 10})
	require.Equal(t, "SELECT id FROM questions WHERE question = $1 LIMIT $2 OFFSET $3", query)
	require.Equal(t, []interface{}{"q?", 10, 0}, args)
}

func TestIsConflict(t *testing.T) {
	require.True(t, IsConflict(&pq.Error{Code: "23505"}))
	require.True(t, IsConflict(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	require.False(t, IsConflict(&pq.Error{Code: "23502"}))
	require.False(t, IsConflict(errors.New("boom")))
}

func TestIsCheckViolation(t *testing.T) {
	err := &pq.Error{Code: "23502", Column: "answer"}
	require.True(t, IsCheckViolation(err))
	require.Equal(t, "answer", ColumnOf(err))
	require.False(t, IsCheckViolation(&pq.Error{Code: "23505"}))
}
