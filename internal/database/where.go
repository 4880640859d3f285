package database

import (
	"fmt"
	"strings"
)

// WhereBuilder assembles a parameterized WHERE clause from optional
// conditions. Conditions are joined with AND; placeholders are numbered in
// the order values are added.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "column = $n". Empty string values are skipped.
func (wb *WhereBuilder) Add(column string, value any) {
	if s, ok := value.(string); ok && s == "" {
		return
	}
	wb.AddExpr(column+" = %s", value)
}

// AddExpr appends a condition whose single %s verb is replaced by the next
// placeholder, e.g. AddExpr("EXTRACT(YEAR FROM d) = %s", 2025).
func (wb *WhereBuilder) AddExpr(format string, value any) {
	wb.conditions = append(wb.conditions, fmt.Sprintf(format, fmt.Sprintf("$%d", wb.argIndex)))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// Build returns the clause with a leading space, or "" and nil when empty.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}
