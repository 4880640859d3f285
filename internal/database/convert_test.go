package database

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPgText(t *testing.T) {
	require.False(t, toPgText("").Valid)
	require.False(t, toPgText("   ").Valid)
	require.Equal(t, pgtype.Text{String: "kw", Valid: true}, toPgText(" kw "))
	require.Equal(t, "", fromPgText(pgtype.Text{}))
	require.Equal(t, "x", fromPgText(pgtype.Text{String: "x", Valid: true}))
}

func TestPgNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "12.75", "30000", "999.99", "0.01", "-3.5"} {
		d := decimal.RequireFromString(s)
		got := fromPgNumeric(toPgNumeric(d))
		require.True(t, d.Equal(got), "round trip of %s gave %s", s, got)
	}

	require.True(t, fromPgNumeric(pgtype.Numeric{}).IsZero())
	require.True(t, fromPgNumeric(pgtype.Numeric{NaN: true, Valid: true}).IsZero())
}

func TestPgDate(t *testing.T) {
	require.False(t, toPgDate(time.Time{}).Valid)

	loc := time.FixedZone("UTC+5", 5*3600)
	d := toPgDate(time.Date(2025, 3, 14, 23, 30, 0, 0, loc))
	require.True(t, d.Valid)
	require.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), d.Time)
	require.Equal(t, d.Time, fromPgDate(d))
	require.True(t, fromPgDate(pgtype.Date{}).IsZero())
}

func TestPgUUID(t *testing.T) {
	const id = "2f1c7a4e-8d3b-4c55-9a71-0d6f2b8e4c10"
	u := toPgUUID(id)
	require.True(t, u.Valid)
	require.Equal(t, id, fromPgUUID(u))

	require.False(t, toPgUUID("not-a-uuid").Valid)
	require.Equal(t, "", fromPgUUID(pgtype.UUID{}))
}
