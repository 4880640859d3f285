package database

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/coursetrack/internal/core"
)

func TestWrap(t *testing.T) {
	require.NoError(t, wrap("op", nil))

	err := wrap("find course C1", pgx.ErrNoRows)
	require.ErrorIs(t, err, core.ErrNotFound)
	require.Contains(t, err.Error(), "find course C1")

	err = wrap("create market offering", &pgconn.PgError{Code: uniqueViolation, ConstraintName: "marketofferings_marketofferingname_key"})
	require.ErrorIs(t, err, core.ErrConflict)
	require.Contains(t, err.Error(), "marketofferings_marketofferingname_key")

	err = wrap("create learning pillar", &pgconn.PgError{Code: foreignKeyViolation})
	require.ErrorIs(t, err, core.ErrNotFound)

	boom := errors.New("connection reset by peer")
	err = wrap("list catalog", boom)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, core.ErrNotFound)
}

func TestSubmissionQuery(t *testing.T) {
	t.Run("no filters", func(t *testing.T) {
		q, args := submissionQuery(core.SubmissionFilter{})
		require.NotContains(t, q, "JOIN")
		require.NotContains(t, q, "WHERE")
		require.Empty(t, args)
	})

	t.Run("catalog filters join", func(t *testing.T) {
		q, args := submissionQuery(core.SubmissionFilter{
			PractitionerEmail: "ada@example.com",
			MarketOffering:    "Cloud",
			CompletionYear:    2025,
		})
		require.Contains(t, q, "LEFT JOIN coursecatalog c ON c.coursecode = s.coursecode")
		require.Contains(t, q, " WHERE s.practitioneremail = $1 AND c.marketoffering = $2 AND EXTRACT(YEAR FROM s.dateofcompletion) = $3")
		require.Equal(t, []any{"ada@example.com", "Cloud", 2025}, args)
	})
}
