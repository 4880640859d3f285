package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/coursetrack/internal/core"
)

// TaxonomyStore implements core.TaxonomyStore.
type TaxonomyStore struct {
	db DBTX
}

// NewTaxonomyStore returns a taxonomy store backed by db.
func NewTaxonomyStore(db DBTX) *TaxonomyStore {
	return &TaxonomyStore{db: db}
}

const (
	marketOfferingColumns = "marketofferingid, marketofferingname, marketofferingdescription"
	learningPillarColumns = "learningpillarid, marketofferingid, learningpillarname, learningpillardescription"
)

func scanMarketOffering(row pgx.Row) (core.MarketOffering, error) {
	var (
		mo   core.MarketOffering
		desc pgtype.Text
	)
	if err := row.Scan(&mo.ID, &mo.Name, &desc); err != nil {
		return core.MarketOffering{}, err
	}
	mo.Description = fromPgText(desc)
	return mo, nil
}

func scanLearningPillar(row pgx.Row) (core.LearningPillar, error) {
	var (
		lp   core.LearningPillar
		desc pgtype.Text
	)
	if err := row.Scan(&lp.ID, &lp.MarketOfferingID, &lp.Name, &desc); err != nil {
		return core.LearningPillar{}, err
	}
	lp.Description = fromPgText(desc)
	return lp, nil
}

func (s *TaxonomyStore) FindMarketOfferingByID(ctx context.Context, id int64) (core.MarketOffering, error) {
	mo, err := scanMarketOffering(s.db.QueryRow(ctx,
		"SELECT "+marketOfferingColumns+" FROM marketofferings WHERE marketofferingid = $1", id))
	return mo, wrap("find market offering by id", err)
}

func (s *TaxonomyStore) FindMarketOfferingByName(ctx context.Context, name string) (core.MarketOffering, error) {
	mo, err := scanMarketOffering(s.db.QueryRow(ctx,
		"SELECT "+marketOfferingColumns+" FROM marketofferings WHERE marketofferingname = $1", name))
	return mo, wrap("find market offering by name", err)
}

func (s *TaxonomyStore) FindLearningPillar(ctx context.Context, marketOfferingID int64, name string) (core.LearningPillar, error) {
	lp, err := scanLearningPillar(s.db.QueryRow(ctx,
		"SELECT "+learningPillarColumns+" FROM learningpillars WHERE marketofferingid = $1 AND learningpillarname = $2",
		marketOfferingID, name))
	return lp, wrap("find learning pillar", err)
}

// LearningPillarExists reports whether any market offering has a pillar named name.
func (s *TaxonomyStore) LearningPillarExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM learningpillars WHERE learningpillarname = $1)", name).Scan(&exists)
	return exists, wrap("learning pillar exists", err)
}

func (s *TaxonomyStore) CreateMarketOffering(ctx context.Context, mo core.MarketOffering) (core.MarketOffering, error) {
	created, err := scanMarketOffering(s.db.QueryRow(ctx,
		`INSERT INTO marketofferings (marketofferingname, marketofferingdescription)
		 VALUES ($1, $2)
		 RETURNING `+marketOfferingColumns,
		mo.Name, toPgText(mo.Description)))
	return created, wrap("create market offering", err)
}

func (s *TaxonomyStore) CreateLearningPillar(ctx context.Context, lp core.LearningPillar) (core.LearningPillar, error) {
	created, err := scanLearningPillar(s.db.QueryRow(ctx,
		`INSERT INTO learningpillars (marketofferingid, learningpillarname, learningpillardescription)
		 VALUES ($1, $2, $3)
		 RETURNING `+learningPillarColumns,
		lp.MarketOfferingID, lp.Name, toPgText(lp.Description)))
	return created, wrap("create learning pillar", err)
}

func (s *TaxonomyStore) ListMarketOfferings(ctx context.Context) ([]core.MarketOffering, error) {
	rows, err := s.db.Query(ctx, "SELECT "+marketOfferingColumns+" FROM marketofferings ORDER BY marketofferingname")
	if err != nil {
		return nil, wrap("list market offerings", err)
	}
	list, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.MarketOffering, error) {
		return scanMarketOffering(r)
	})
	return list, wrap("list market offerings", err)
}

// ListLearningPillars lists pillars of one market offering, or all when
// marketOfferingID is zero.
func (s *TaxonomyStore) ListLearningPillars(ctx context.Context, marketOfferingID int64) ([]core.LearningPillar, error) {
	wb := NewWhereBuilder()
	if marketOfferingID > 0 {
		wb.Add("marketofferingid", marketOfferingID)
	}
	where, args := wb.Build()

	rows, err := s.db.Query(ctx,
		"SELECT "+learningPillarColumns+" FROM learningpillars"+where+" ORDER BY marketofferingid, learningpillarname", args...)
	if err != nil {
		return nil, wrap("list learning pillars", err)
	}
	list, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.LearningPillar, error) {
		return scanLearningPillar(r)
	})
	return list, wrap("list learning pillars", err)
}
