package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/coursetrack/internal/core"
)

// SubmissionStore implements core.SubmissionStore on practitionersubmissions.
// Market offering and learning pillar filters join coursecatalog on the
// course code.
type SubmissionStore struct {
	db DBTX
}

// NewSubmissionStore returns a submission store backed by db.
func NewSubmissionStore(db DBTX) *SubmissionStore {
	return &SubmissionStore{db: db}
}

const submissionColumns = `s.submissionid, s.practitioneremail, s.coursecode, s.coursename,
	s.hourscompleted, s.hoursallocated, s.islisted, s.dateofcompletion,
	s.certificateref, s.createdtimestamp, s.lastmodifiedtimestamp`

// returningColumns is submissionColumns for RETURNING clauses, where the
// table alias is not in scope.
const returningColumns = `submissionid, practitioneremail, coursecode, coursename,
	hourscompleted, hoursallocated, islisted, dateofcompletion,
	certificateref, createdtimestamp, lastmodifiedtimestamp`

func scanSubmission(row pgx.Row) (core.Submission, error) {
	var (
		sub       core.Submission
		completed pgtype.Numeric
		allocated pgtype.Numeric
		date      pgtype.Date
	)
	err := row.Scan(
		&sub.ID, &sub.PractitionerEmail, &sub.CourseCode, &sub.CourseName,
		&completed, &allocated, &sub.IsListed, &date,
		&sub.CertificateRef, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return core.Submission{}, err
	}
	sub.HoursCompleted = fromPgNumeric(completed)
	sub.HoursAllocated = fromPgNumeric(allocated)
	sub.DateOfCompletion = fromPgDate(date)
	return sub, nil
}

func (s *SubmissionStore) FindCurrentYear(ctx context.Context, email, code string, yearStart time.Time) (core.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRow(ctx,
		`SELECT `+submissionColumns+`
		 FROM practitionersubmissions s
		 WHERE s.practitioneremail = $1 AND s.coursecode = $2 AND s.dateofcompletion >= $3
		 ORDER BY s.dateofcompletion DESC, s.submissionid DESC
		 LIMIT 1`,
		email, code, toPgDate(yearStart)))
	return sub, wrap("find current-year submission", err)
}

// Save overwrites the mutable columns of an existing submission.
func (s *SubmissionStore) Save(ctx context.Context, sub core.Submission) (core.Submission, error) {
	saved, err := scanSubmission(s.db.QueryRow(ctx,
		`UPDATE practitionersubmissions SET
			coursename = $2, hourscompleted = $3, hoursallocated = $4, islisted = $5,
			dateofcompletion = $6, certificateref = $7, lastmodifiedtimestamp = now()
		 WHERE submissionid = $1
		 RETURNING `+returningColumns,
		sub.ID, sub.CourseName, toPgNumeric(sub.HoursCompleted), toPgNumeric(sub.HoursAllocated),
		sub.IsListed, toPgDate(sub.DateOfCompletion), sub.CertificateRef,
	))
	return saved, wrap(fmt.Sprintf("save submission %d", sub.ID), err)
}

func (s *SubmissionStore) Create(ctx context.Context, sub core.Submission) (core.Submission, error) {
	created, err := scanSubmission(s.db.QueryRow(ctx,
		`INSERT INTO practitionersubmissions (
			practitioneremail, coursecode, coursename, hourscompleted,
			hoursallocated, islisted, dateofcompletion, certificateref)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+returningColumns,
		sub.PractitionerEmail, sub.CourseCode, sub.CourseName, toPgNumeric(sub.HoursCompleted),
		toPgNumeric(sub.HoursAllocated), sub.IsListed, toPgDate(sub.DateOfCompletion), sub.CertificateRef,
	))
	return created, wrap("create submission", err)
}

// Query returns submissions matching every set filter, newest completion first.
func (s *SubmissionStore) Query(ctx context.Context, f core.SubmissionFilter) ([]core.Submission, error) {
	query, args := submissionQuery(f)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("query submissions", err)
	}
	subs, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Submission, error) {
		return scanSubmission(r)
	})
	return subs, wrap("query submissions", err)
}

// submissionQuery builds the filtered select. The catalog join is only
// added when a catalog-side filter is present.
func submissionQuery(f core.SubmissionFilter) (string, []any) {
	from := " FROM practitionersubmissions s"
	if f.MarketOffering != "" || f.LearningPillar != "" {
		from += " LEFT JOIN coursecatalog c ON c.coursecode = s.coursecode"
	}

	wb := NewWhereBuilder()
	wb.Add("s.practitioneremail", f.PractitionerEmail)
	wb.Add("s.coursecode", f.CourseCode)
	wb.Add("c.marketoffering", f.MarketOffering)
	wb.Add("c.learningpillar", f.LearningPillar)
	if f.CompletionYear != 0 {
		wb.AddExpr("EXTRACT(YEAR FROM s.dateofcompletion) = %s", f.CompletionYear)
	}
	where, args := wb.Build()

	return "SELECT " + submissionColumns + from + where + " ORDER BY s.dateofcompletion DESC, s.submissionid DESC", args
}
