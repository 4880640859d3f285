package core

import (
	"context"
	"time"
)

// TaxonomyValidator answers existence and pairing questions about the
// market offering / learning pillar taxonomy. An empty name is never valid.
type TaxonomyValidator interface {
	ValidateMarketOffering(ctx context.Context, name string) (bool, error)
	ValidateLearningPillar(ctx context.Context, name string) (bool, error)
	ValidatePairing(ctx context.Context, marketOffering, learningPillar string) (bool, error)
}

// TaxonomyStore persists market offerings and learning pillars.
//
// Finders return an error wrapping ErrNotFound when nothing matches. Create
// methods return an error wrapping ErrConflict when a uniqueness rule is hit.
type TaxonomyStore interface {
	FindMarketOfferingByID(ctx context.Context, id int64) (MarketOffering, error)
	FindMarketOfferingByName(ctx context.Context, name string) (MarketOffering, error)
	FindLearningPillar(ctx context.Context, marketOfferingID int64, name string) (LearningPillar, error)
	LearningPillarExists(ctx context.Context, name string) (bool, error)
	CreateMarketOffering(ctx context.Context, mo MarketOffering) (MarketOffering, error)
	CreateLearningPillar(ctx context.Context, lp LearningPillar) (LearningPillar, error)
	ListMarketOfferings(ctx context.Context) ([]MarketOffering, error)
	ListLearningPillars(ctx context.Context, marketOfferingID int64) ([]LearningPillar, error)
}

// CatalogStore holds course catalog entries keyed by course code.
// Finders return an error wrapping ErrNotFound when the code is absent.
type CatalogStore interface {
	FindByCode(ctx context.Context, code string) (CourseCatalogEntry, error)
	FindActiveByCode(ctx context.Context, code string) (CourseCatalogEntry, error)
	Save(ctx context.Context, entry CourseCatalogEntry) (CourseCatalogEntry, error)
	Create(ctx context.Context, entry CourseCatalogEntry) (CourseCatalogEntry, error)
	List(ctx context.Context, filter CatalogFilter) ([]CourseCatalogEntry, error)
}

// SubmissionStore holds practitioner submissions.
//
// FindCurrentYear returns the submission for (email, code) whose completion
// date is on or after yearStart, or an error wrapping ErrNotFound.
type SubmissionStore interface {
	FindCurrentYear(ctx context.Context, email, code string, yearStart time.Time) (Submission, error)
	Save(ctx context.Context, sub Submission) (Submission, error)
	Create(ctx context.Context, sub Submission) (Submission, error)
	Query(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
}

// BlobStore uploads an opaque byte buffer and returns a reference URL.
type BlobStore interface {
	Put(ctx context.Context, data []byte, contentType, name string) (string, error)
}

// RunStore records catalog reconciliation runs.
type RunStore interface {
	RecordRun(ctx context.Context, run RefreshRun) error
	ListRuns(ctx context.Context, limit int) ([]RefreshRun, error)
}
