package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/coursetrack/internal/core"
)

// CatalogStore implements core.CatalogStore on the coursecatalog table.
type CatalogStore struct {
	db DBTX
}

// NewCatalogStore returns a catalog store backed by db.
func NewCatalogStore(db DBTX) *CatalogStore {
	return &CatalogStore{db: db}
}

const catalogColumns = `coursecode, marketoffering, learningpillar, coursename, courselink,
	coursedescription, duration, vendorplatform, courselevel, courseorcertification,
	paidorfree, keywords, isactive, createdtimestamp, lastmodifiedtimestamp`

func scanCatalogEntry(row pgx.Row) (core.CourseCatalogEntry, error) {
	var (
		e        core.CourseCatalogEntry
		duration pgtype.Numeric
		keywords pgtype.Text
	)
	err := row.Scan(
		&e.CourseCode, &e.MarketOffering, &e.LearningPillar, &e.Name, &e.Link,
		&e.Description, &duration, &e.VendorPlatform, &e.Level, &e.Kind,
		&e.Pricing, &keywords, &e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return core.CourseCatalogEntry{}, err
	}
	e.DurationHours = fromPgNumeric(duration)
	e.Keywords = fromPgText(keywords)
	return e, nil
}

func (s *CatalogStore) FindByCode(ctx context.Context, code string) (core.CourseCatalogEntry, error) {
	e, err := scanCatalogEntry(s.db.QueryRow(ctx,
		"SELECT "+catalogColumns+" FROM coursecatalog WHERE coursecode = $1", code))
	return e, wrap("find course "+code, err)
}

func (s *CatalogStore) FindActiveByCode(ctx context.Context, code string) (core.CourseCatalogEntry, error) {
	e, err := scanCatalogEntry(s.db.QueryRow(ctx,
		"SELECT "+catalogColumns+" FROM coursecatalog WHERE coursecode = $1 AND isactive", code))
	return e, wrap("find active course "+code, err)
}

// Save overwrites every mutable column of an existing entry.
func (s *CatalogStore) Save(ctx context.Context, e core.CourseCatalogEntry) (core.CourseCatalogEntry, error) {
	saved, err := scanCatalogEntry(s.db.QueryRow(ctx,
		`UPDATE coursecatalog SET
			marketoffering = $2, learningpillar = $3, coursename = $4, courselink = $5,
			coursedescription = $6, duration = $7, vendorplatform = $8, courselevel = $9,
			courseorcertification = $10, paidorfree = $11, keywords = $12, isactive = $13,
			lastmodifiedtimestamp = now()
		 WHERE coursecode = $1
		 RETURNING `+catalogColumns,
		e.CourseCode, e.MarketOffering, e.LearningPillar, e.Name, e.Link,
		e.Description, toPgNumeric(e.DurationHours), e.VendorPlatform, e.Level,
		e.Kind, e.Pricing, toPgText(e.Keywords), e.IsActive,
	))
	return saved, wrap("save course "+e.CourseCode, err)
}

func (s *CatalogStore) Create(ctx context.Context, e core.CourseCatalogEntry) (core.CourseCatalogEntry, error) {
	created, err := scanCatalogEntry(s.db.QueryRow(ctx,
		`INSERT INTO coursecatalog (
			coursecode, marketoffering, learningpillar, coursename, courselink,
			coursedescription, duration, vendorplatform, courselevel,
			courseorcertification, paidorfree, keywords, isactive)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+catalogColumns,
		e.CourseCode, e.MarketOffering, e.LearningPillar, e.Name, e.Link,
		e.Description, toPgNumeric(e.DurationHours), e.VendorPlatform, e.Level,
		e.Kind, e.Pricing, toPgText(e.Keywords), e.IsActive,
	))
	return created, wrap("create course "+e.CourseCode, err)
}

// List returns entries matching every set filter field, ordered by code.
func (s *CatalogStore) List(ctx context.Context, f core.CatalogFilter) ([]core.CourseCatalogEntry, error) {
	wb := NewWhereBuilder()
	wb.Add("marketoffering", f.MarketOffering)
	wb.Add("learningpillar", f.LearningPillar)
	if f.IsActive != nil {
		wb.Add("isactive", *f.IsActive)
	}
	where, args := wb.Build()

	rows, err := s.db.Query(ctx, "SELECT "+catalogColumns+" FROM coursecatalog"+where+" ORDER BY coursecode", args...)
	if err != nil {
		return nil, wrap("list catalog", err)
	}
	entries, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.CourseCatalogEntry, error) {
		return scanCatalogEntry(r)
	})
	return entries, wrap("list catalog", err)
}
