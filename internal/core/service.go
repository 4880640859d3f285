package core

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Run sources recorded in history.
const (
	SourceAPI  = "api"
	SourceFeed = "feed"
)

// DefaultRunHistoryLimit caps ListRuns when no limit is given.
const DefaultRunHistoryLimit = 50

// Stores groups the persistence collaborators of a Service.
type Stores struct {
	Taxonomy    TaxonomyStore
	Catalog     CatalogStore
	Submissions SubmissionStore
	Runs        RunStore
}

// Options tunes a Service.
type Options struct {
	Submission        SubmissionOptions
	MaxConcurrentRuns int
	MaxRunWait        time.Duration
	RunTimeout        time.Duration
}

// Service is the entry point used by the HTTP layer and the feed watcher.
// It bounds concurrent catalog refreshes and records every run.
type Service struct {
	taxonomy  *TaxonomyService
	refresher *CatalogRefresher
	pipeline  *SubmissionPipeline
	catalog   CatalogStore
	runs      RunStore
	limiter   *RunLimiter

	runTimeout time.Duration
	now        func() time.Time
}

// NewService wires the engine, the pipeline and the taxonomy service.
func NewService(stores Stores, blobs BlobStore, opts Options) *Service {
	taxonomy := NewTaxonomyService(stores.Taxonomy)
	return &Service{
		taxonomy:   taxonomy,
		refresher:  NewCatalogRefresher(stores.Catalog, taxonomy),
		pipeline:   NewSubmissionPipeline(taxonomy, stores.Catalog, stores.Submissions, blobs, opts.Submission),
		catalog:    stores.Catalog,
		runs:       stores.Runs,
		limiter:    NewRunLimiter(opts.MaxConcurrentRuns, opts.MaxRunWait),
		runTimeout: opts.RunTimeout,
		now:        time.Now,
	}
}

// RefreshCatalog reconciles the catalog against feed, waiting for a run
// slot first. It fails with ErrTooManyRuns when no slot frees up in time.
func (s *Service) RefreshCatalog(ctx context.Context, fileName string, feed io.Reader) (*RunReport, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	return s.refresh(ctx, fileName, SourceAPI, feed)
}

// TryRefreshCatalog runs only if a slot is free right now. started is
// false when the limiter is full; the feed is not read in that case.
func (s *Service) TryRefreshCatalog(ctx context.Context, fileName string, feed io.Reader) (report *RunReport, started bool, err error) {
	if !s.limiter.TryAcquire() {
		return nil, false, nil
	}
	defer s.limiter.Release()

	report, err = s.refresh(ctx, fileName, SourceFeed, feed)
	return report, true, err
}

func (s *Service) refresh(ctx context.Context, fileName, source string, feed io.Reader) (*RunReport, error) {
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	if ip := ClientIPFromContext(ctx); ip != "" && source == SourceAPI {
		source = SourceAPI + ":" + ip
	}

	run := RefreshRun{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Source:    source,
		StartedAt: s.now(),
	}
	logger := slog.With("run_id", run.ID, "file", fileName, "source", source)
	logger.Info("catalog refresh started")

	report, err := s.refresher.Refresh(ctx, feed)
	run.FinishedAt = s.now()
	if report != nil {
		run.Report = *report
	}
	if err != nil {
		run.Failure = err.Error()
	}

	// Recording uses a fresh context so a timed-out run is still written.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if recErr := s.runs.RecordRun(recordCtx, run); recErr != nil {
		logger.Error("failed to record refresh run", "error", recErr)
	}

	if err != nil {
		logger.Error("catalog refresh failed", "error", err, "applied", run.Report.Applied())
		return report, err
	}

	logger.Info("catalog refresh completed",
		"inserted", report.Inserted,
		"updated", report.Updated,
		"inactivated", report.Inactivated,
		"unchanged", report.Unchanged,
		"errors", len(report.Errors),
		"duration_ms", run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
	)
	return report, nil
}

// ListRuns returns the most recent refresh runs, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]RefreshRun, error) {
	if limit <= 0 || limit > DefaultRunHistoryLimit {
		limit = DefaultRunHistoryLimit
	}
	runs, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, dependencyFailure("runs.list", err)
	}
	return runs, nil
}

// ListCatalog returns catalog entries matching filter.
func (s *Service) ListCatalog(ctx context.Context, filter CatalogFilter) ([]CourseCatalogEntry, error) {
	entries, err := s.catalog.List(ctx, filter)
	if err != nil {
		return nil, dependencyFailure("catalog.list", err)
	}
	return entries, nil
}

// CreateSubmission delegates to the submission pipeline.
func (s *Service) CreateSubmission(ctx context.Context, in SubmissionInput, cert Certificate) (Submission, error) {
	return s.pipeline.Create(ctx, in, cert)
}

// FindSubmissions delegates to the submission pipeline.
func (s *Service) FindSubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error) {
	return s.pipeline.FindAll(ctx, filter)
}

// RegisterMarketOffering delegates to the taxonomy service.
func (s *Service) RegisterMarketOffering(ctx context.Context, in MarketOfferingInput) (MarketOffering, error) {
	return s.taxonomy.RegisterMarketOffering(ctx, in)
}

// RegisterLearningPillar delegates to the taxonomy service.
func (s *Service) RegisterLearningPillar(ctx context.Context, in LearningPillarInput) (LearningPillar, error) {
	return s.taxonomy.RegisterLearningPillar(ctx, in)
}

// ListMarketOfferings delegates to the taxonomy service.
func (s *Service) ListMarketOfferings(ctx context.Context) ([]MarketOffering, error) {
	return s.taxonomy.ListMarketOfferings(ctx)
}

// ListLearningPillars delegates to the taxonomy service.
func (s *Service) ListLearningPillars(ctx context.Context, marketOfferingID int64) ([]LearningPillar, error) {
	return s.taxonomy.ListLearningPillars(ctx, marketOfferingID)
}

// LimiterStatus reports refresh slot occupancy.
func (s *Service) LimiterStatus() RunLimiterStatus {
	return s.limiter.Status()
}

// WaitForRuns blocks until in-flight refresh runs finish or ctx ends.
func (s *Service) WaitForRuns(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
