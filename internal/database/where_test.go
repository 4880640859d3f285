package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWhereBuilder_Empty(t *testing.T) {
	wb := NewWhereBuilder()
	clause, args := wb.Build()
	require.Empty(t, clause)
	require.Nil(t, args)
}

func TestWhereBuilder_Conditions(t *testing.T) {
	tests := []struct {
		name       string
		build      func(wb *WhereBuilder)
		wantClause string
		wantArgs   []any
	}{
		{
			name:       "single",
			build:      func(wb *WhereBuilder) { wb.Add("status", "active") },
			wantClause: " WHERE status = $1",
			wantArgs:   []any{"active"},
		},
		{
			name: "empty values skipped",
			build: func(wb *WhereBuilder) {
				wb.Add("status", "")
				wb.Add("type", "user")
			},
			wantClause: " WHERE type = $1",
			wantArgs:   []any{"user"},
		},
		{
			name: "mixed",
			build: func(wb *WhereBuilder) {
				wb.Add("c.marketoffering", "Cloud")
				wb.AddExpr("EXTRACT(YEAR FROM s.dateofcompletion) = %s", 2025)
				wb.Add("c.isactive", false)
			},
			wantClause: " WHERE c.marketoffering = $1 AND EXTRACT(YEAR FROM s.dateofcompletion) = $2 AND c.isactive = $3",
			wantArgs:   []any{"Cloud", 2025, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			tt.build(wb)
			clause, args := wb.Build()
			require.Equal(t, tt.wantClause, clause)
			require.Equal(t, tt.wantArgs, args)
		})
	}
}
