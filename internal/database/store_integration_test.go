package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/coursetrack/internal/core"
)

// testPool connects to TEST_DATABASE_URL inside a throwaway schema.
// Tests are skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres store test")
	}

	ctx := context.Background()
	schema := fmt.Sprintf("coursetrack_test_%s", uuid.NewString()[:8])

	admin, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	cfg, err := pgxpool.ParseConfig(url)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	require.NoError(t, Migrate(ctx, pool), "schema must be re-appliable")
	return pool
}

func TestTaxonomyStore(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewTaxonomyStore(pool)

	mo, err := store.CreateMarketOffering(ctx, core.MarketOffering{Name: "Cloud"})
	require.NoError(t, err)
	require.Positive(t, mo.ID)

	_, err = store.CreateMarketOffering(ctx, core.MarketOffering{Name: "Cloud"})
	require.ErrorIs(t, err, core.ErrConflict)

	lp, err := store.CreateLearningPillar(ctx, core.LearningPillar{MarketOfferingID: mo.ID, Name: "AI", Description: "ml"})
	require.NoError(t, err)
	require.Equal(t, "ml", lp.Description)

	_, err = store.CreateLearningPillar(ctx, core.LearningPillar{MarketOfferingID: mo.ID + 100, Name: "AI"})
	require.ErrorIs(t, err, core.ErrNotFound)

	got, err := store.FindLearningPillar(ctx, mo.ID, "AI")
	require.NoError(t, err)
	require.Equal(t, lp, got)

	_, err = store.FindMarketOfferingByName(ctx, "Security")
	require.ErrorIs(t, err, core.ErrNotFound)

	ok, err := store.LearningPillarExists(ctx, "AI")
	require.NoError(t, err)
	require.True(t, ok)

	pillars, err := store.ListLearningPillars(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pillars, 1)
}

func TestCatalogAndSubmissionStores(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	catalog := NewCatalogStore(pool)
	subs := NewSubmissionStore(pool)

	entry := core.CourseCatalogEntry{
		CourseCode: "C001", MarketOffering: "Cloud", LearningPillar: "AI",
		Name: "Intro", Link: "https://learn.example.com/c001", Description: "About",
		DurationHours: decimal.RequireFromString("12.5"), VendorPlatform: "Udemy",
		Level: "Beginner", Kind: "Course", Pricing: "Free", IsActive: true,
	}
	created, err := catalog.Create(ctx, entry)
	require.NoError(t, err)
	require.Equal(t, "12.5", created.DurationHours.String())

	_, err = catalog.Create(ctx, entry)
	require.ErrorIs(t, err, core.ErrConflict)

	created.IsActive = false
	_, err = catalog.Save(ctx, created)
	require.NoError(t, err)

	_, err = catalog.FindActiveByCode(ctx, "C001")
	require.ErrorIs(t, err, core.ErrNotFound)

	active := false
	list, err := catalog.List(ctx, core.CatalogFilter{MarketOffering: "Cloud", IsActive: &active})
	require.NoError(t, err)
	require.Len(t, list, 1)

	year := time.Now().UTC().Year()
	sub, err := subs.Create(ctx, core.Submission{
		PractitionerEmail: "ada@example.com", CourseCode: "C001", CourseName: "Intro",
		HoursCompleted: decimal.RequireFromString("3.5"), HoursAllocated: decimal.RequireFromString("12.5"),
		IsListed: true, DateOfCompletion: time.Date(year, 1, 2, 0, 0, 0, 0, time.UTC),
		CertificateRef: "file:///tmp/x.pdf",
	})
	require.NoError(t, err)

	found, err := subs.FindCurrentYear(ctx, "ada@example.com", "C001", time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, sub.ID, found.ID)

	_, err = subs.FindCurrentYear(ctx, "ada@example.com", "C001", time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, core.ErrNotFound)

	res, err := subs.Query(ctx, core.SubmissionFilter{MarketOffering: "Cloud", CompletionYear: year})
	require.NoError(t, err)
	require.Len(t, res, 1)

	res, err = subs.Query(ctx, core.SubmissionFilter{LearningPillar: "Data"})
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestRunStore(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewRunStore(pool)

	start := time.Now().UTC().Truncate(time.Millisecond)
	for i, name := range []string{"first.csv", "second.csv"} {
		require.NoError(t, store.RecordRun(ctx, core.RefreshRun{
			ID:         uuid.NewString(),
			FileName:   name,
			Source:     core.SourceFeed,
			StartedAt:  start.Add(time.Duration(i) * time.Second),
			FinishedAt: start.Add(time.Duration(i)*time.Second + time.Millisecond),
			Report: core.RunReport{
				Inserted: 1,
				Errors:   []core.RowError{{CourseID: "C9", Errors: []string{"bad"}}},
			},
		}))
	}

	runs, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "second.csv", runs[0].FileName)
	require.Equal(t, []core.RowError{{CourseID: "C9", Errors: []string{"bad"}}}, runs[0].Report.Errors)
	require.Empty(t, runs[0].Failure)
}
