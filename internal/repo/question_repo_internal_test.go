package repo

import (
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/askbook/internal/pkg/errors"
)

func TestTranslateWriteErrWrapsDriverFailures(t *testing.T) {
	for _, cause := range []error{driver.ErrBadConn, errors.New("connection reset by peer")} {
		err := translateWriteErr(cause)
		require.ErrorIs(t, err, appErr.ErrPersistence)
		require.ErrorIs(t, err, cause)
		_, ok := appErr.AsValidation(err)
		require.False(t, ok)
	}
}

func TestTranslateWriteErrConstraintViolations(t *testing.T) {
	verr, ok := appErr.AsValidation(translateWriteErr(&pq.Error{Code: "23505"}))
	require.True(t, ok)
	require.Equal(t, []string{"has already been taken"}, verr.Fields["id"])

	verr, ok = appErr.AsValidation(translateWriteErr(&pq.Error{Code: "23514", Column: "ask_count"}))
	require.True(t, ok)
	require.Equal(t, []string{"is invalid"}, verr.Fields["ask_count"])
}
