package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/coursetrack/internal/core"
)

// RunStore implements core.RunStore on refresh_runs. Row errors are kept
// as a JSONB array of {courseId, errors}.
type RunStore struct {
	db DBTX
}

// NewRunStore returns a run history store backed by db.
func NewRunStore(db DBTX) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) RecordRun(ctx context.Context, run core.RefreshRun) error {
	rowErrors := run.Report.Errors
	if rowErrors == nil {
		rowErrors = []core.RowError{}
	}
	payload, err := json.Marshal(rowErrors)
	if err != nil {
		return fmt.Errorf("encode run errors: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO refresh_runs (
			run_id, file_name, source, started_at, finished_at,
			inserted, updated, inactivated, unchanged, errors, failure)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		toPgUUID(run.ID), run.FileName, run.Source, run.StartedAt, run.FinishedAt,
		run.Report.Inserted, run.Report.Updated, run.Report.Inactivated, run.Report.Unchanged,
		payload, toPgText(run.Failure),
	)
	return wrap("record run", err)
}

// ListRuns returns at most limit runs, most recently started first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]core.RefreshRun, error) {
	rows, err := s.db.Query(ctx,
		`SELECT run_id, file_name, source, started_at, finished_at,
			inserted, updated, inactivated, unchanged, errors, failure
		 FROM refresh_runs
		 ORDER BY started_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, wrap("list runs", err)
	}

	runs, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.RefreshRun, error) {
		var (
			run     core.RefreshRun
			id      pgtype.UUID
			payload []byte
			failure pgtype.Text
		)
		err := r.Scan(&id, &run.FileName, &run.Source, &run.StartedAt, &run.FinishedAt,
			&run.Report.Inserted, &run.Report.Updated, &run.Report.Inactivated, &run.Report.Unchanged,
			&payload, &failure)
		if err != nil {
			return core.RefreshRun{}, err
		}
		run.ID = fromPgUUID(id)
		run.Failure = fromPgText(failure)
		run.Report.Errors = []core.RowError{}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &run.Report.Errors); err != nil {
				return core.RefreshRun{}, fmt.Errorf("decode run %s errors: %w", run.ID, err)
			}
		}
		return run, nil
	})
	return runs, wrap("list runs", err)
}
