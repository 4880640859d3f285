// Package coretest provides in-memory implementations of the core ports
// for use in tests of core and of the packages built on it.
package coretest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/coursetrack/internal/core"
)

// Taxonomy is an in-memory core.TaxonomyStore. Set Err to make every call fail.
type Taxonomy struct {
	mu      sync.Mutex
	mos     []core.MarketOffering
	lps     []core.LearningPillar
	Lookups int
	Err     error
}

// NewTaxonomy returns an empty taxonomy.
func NewTaxonomy() *Taxonomy {
	return &Taxonomy{}
}

// Seed registers a market offering with the given pillars and returns it.
func (t *Taxonomy) Seed(marketOffering string, pillars ...string) core.MarketOffering {
	t.mu.Lock()
	defer t.mu.Unlock()

	mo := core.MarketOffering{ID: int64(len(t.mos) + 1), Name: marketOffering}
	t.mos = append(t.mos, mo)
	for _, name := range pillars {
		t.lps = append(t.lps, core.LearningPillar{ID: int64(len(t.lps) + 1), MarketOfferingID: mo.ID, Name: name})
	}
	return mo
}

func (t *Taxonomy) FindMarketOfferingByID(_ context.Context, id int64) (core.MarketOffering, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Lookups++
	if t.Err != nil {
		return core.MarketOffering{}, t.Err
	}
	for _, mo := range t.mos {
		if mo.ID == id {
			return mo, nil
		}
	}
	return core.MarketOffering{}, fmt.Errorf("market offering %d: %w", id, core.ErrNotFound)
}

func (t *Taxonomy) FindMarketOfferingByName(_ context.Context, name string) (core.MarketOffering, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Lookups++
	if t.Err != nil {
		return core.MarketOffering{}, t.Err
	}
	for _, mo := range t.mos {
		if mo.Name == name {
			return mo, nil
		}
	}
	return core.MarketOffering{}, fmt.Errorf("market offering %q: %w", name, core.ErrNotFound)
}

func (t *Taxonomy) FindLearningPillar(_ context.Context, moID int64, name string) (core.LearningPillar, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Lookups++
	if t.Err != nil {
		return core.LearningPillar{}, t.Err
	}
	for _, lp := range t.lps {
		if lp.MarketOfferingID == moID && lp.Name == name {
			return lp, nil
		}
	}
	return core.LearningPillar{}, fmt.Errorf("learning pillar %q: %w", name, core.ErrNotFound)
}

func (t *Taxonomy) LearningPillarExists(_ context.Context, name string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Lookups++
	if t.Err != nil {
		return false, t.Err
	}
	for _, lp := range t.lps {
		if lp.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (t *Taxonomy) CreateMarketOffering(_ context.Context, mo core.MarketOffering) (core.MarketOffering, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return core.MarketOffering{}, t.Err
	}
	for _, existing := range t.mos {
		if existing.Name == mo.Name {
			return core.MarketOffering{}, fmt.Errorf("market offering %q: %w", mo.Name, core.ErrConflict)
		}
	}
	mo.ID = int64(len(t.mos) + 1)
	t.mos = append(t.mos, mo)
	return mo, nil
}

func (t *Taxonomy) CreateLearningPillar(_ context.Context, lp core.LearningPillar) (core.LearningPillar, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return core.LearningPillar{}, t.Err
	}
	lp.ID = int64(len(t.lps) + 1)
	t.lps = append(t.lps, lp)
	return lp, nil
}

func (t *Taxonomy) ListMarketOfferings(context.Context) ([]core.MarketOffering, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	return append([]core.MarketOffering(nil), t.mos...), nil
}

func (t *Taxonomy) ListLearningPillars(_ context.Context, moID int64) ([]core.LearningPillar, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	var out []core.LearningPillar
	for _, lp := range t.lps {
		if moID <= 0 || lp.MarketOfferingID == moID {
			out = append(out, lp)
		}
	}
	return out, nil
}

// Catalog is an in-memory core.CatalogStore that counts writes.
type Catalog struct {
	mu      sync.Mutex
	entries map[string]core.CourseCatalogEntry
	Saves   int
	Creates int
	Err     error
}

// NewCatalog returns a catalog holding entries.
func NewCatalog(entries ...core.CourseCatalogEntry) *Catalog {
	c := &Catalog{entries: make(map[string]core.CourseCatalogEntry)}
	for _, e := range entries {
		c.entries[e.CourseCode] = e
	}
	return c
}

// Get returns the stored entry for code without counting as store access.
func (c *Catalog) Get(code string) (core.CourseCatalogEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	return e, ok
}

// Len returns the number of stored entries.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Catalog) FindByCode(_ context.Context, code string) (core.CourseCatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return core.CourseCatalogEntry{}, c.Err
	}
	e, ok := c.entries[code]
	if !ok {
		return core.CourseCatalogEntry{}, fmt.Errorf("course %q: %w", code, core.ErrNotFound)
	}
	return e, nil
}

func (c *Catalog) FindActiveByCode(ctx context.Context, code string) (core.CourseCatalogEntry, error) {
	e, err := c.FindByCode(ctx, code)
	if err != nil {
		return e, err
	}
	if !e.IsActive {
		return core.CourseCatalogEntry{}, fmt.Errorf("course %q inactive: %w", code, core.ErrNotFound)
	}
	return e, nil
}

func (c *Catalog) Save(_ context.Context, e core.CourseCatalogEntry) (core.CourseCatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return core.CourseCatalogEntry{}, c.Err
	}
	c.Saves++
	c.entries[e.CourseCode] = e
	return e, nil
}

func (c *Catalog) Create(_ context.Context, e core.CourseCatalogEntry) (core.CourseCatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return core.CourseCatalogEntry{}, c.Err
	}
	if _, ok := c.entries[e.CourseCode]; ok {
		return core.CourseCatalogEntry{}, fmt.Errorf("course %q: %w", e.CourseCode, core.ErrConflict)
	}
	c.Creates++
	c.entries[e.CourseCode] = e
	return e, nil
}

func (c *Catalog) List(_ context.Context, f core.CatalogFilter) ([]core.CourseCatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	var out []core.CourseCatalogEntry
	for _, e := range c.entries {
		if f.MarketOffering != "" && e.MarketOffering != f.MarketOffering {
			continue
		}
		if f.LearningPillar != "" && e.LearningPillar != f.LearningPillar {
			continue
		}
		if f.IsActive != nil && e.IsActive != *f.IsActive {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseCode < out[j].CourseCode })
	return out, nil
}

// Submissions is an in-memory core.SubmissionStore. Catalog, when set, is
// used to resolve market offering and learning pillar filters.
type Submissions struct {
	mu      sync.Mutex
	rows    []core.Submission
	Catalog *Catalog
	Err     error
}

// NewSubmissions returns an empty store that joins against catalog.
func NewSubmissions(catalog *Catalog) *Submissions {
	return &Submissions{Catalog: catalog}
}

// All returns a copy of every stored submission.
func (s *Submissions) All() []core.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Submission(nil), s.rows...)
}

func (s *Submissions) FindCurrentYear(_ context.Context, email, code string, yearStart time.Time) (core.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return core.Submission{}, s.Err
	}
	for _, r := range s.rows {
		if r.PractitionerEmail == email && r.CourseCode == code && !r.DateOfCompletion.Before(yearStart) {
			return r, nil
		}
	}
	return core.Submission{}, fmt.Errorf("submission: %w", core.ErrNotFound)
}

func (s *Submissions) Save(_ context.Context, sub core.Submission) (core.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return core.Submission{}, s.Err
	}
	for i, r := range s.rows {
		if r.ID == sub.ID {
			s.rows[i] = sub
			return sub, nil
		}
	}
	return core.Submission{}, fmt.Errorf("submission %d: %w", sub.ID, core.ErrNotFound)
}

func (s *Submissions) Create(_ context.Context, sub core.Submission) (core.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return core.Submission{}, s.Err
	}
	sub.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, sub)
	return sub, nil
}

func (s *Submissions) Query(_ context.Context, f core.SubmissionFilter) ([]core.Submission, error) {
	s.mu.Lock()
	rows := append([]core.Submission(nil), s.rows...)
	err := s.Err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []core.Submission
	for _, r := range rows {
		if f.PractitionerEmail != "" && r.PractitionerEmail != f.PractitionerEmail {
			continue
		}
		if f.CourseCode != "" && r.CourseCode != f.CourseCode {
			continue
		}
		if f.CompletionYear != 0 && r.DateOfCompletion.Year() != f.CompletionYear {
			continue
		}
		if f.MarketOffering != "" || f.LearningPillar != "" {
			if s.Catalog == nil {
				continue
			}
			e, ok := s.Catalog.Get(r.CourseCode)
			if !ok {
				continue
			}
			if f.MarketOffering != "" && e.MarketOffering != f.MarketOffering {
				continue
			}
			if f.LearningPillar != "" && e.LearningPillar != f.LearningPillar {
				continue
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// Blobs is an in-memory core.BlobStore.
type Blobs struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Types   map[string]string
	Err     error
}

// NewBlobs returns an empty blob store.
func NewBlobs() *Blobs {
	return &Blobs{Objects: make(map[string][]byte), Types: make(map[string]string)}
}

func (b *Blobs) Put(_ context.Context, data []byte, contentType, name string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return "", b.Err
	}
	b.Objects[name] = append([]byte(nil), data...)
	b.Types[name] = contentType
	return "mem://certificates/" + name, nil
}

// Names returns the stored object names in sorted order.
func (b *Blobs) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.Objects))
	for n := range b.Objects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Runs is an in-memory core.RunStore.
type Runs struct {
	mu   sync.Mutex
	runs []core.RefreshRun
	Err  error
}

// NewRuns returns an empty run history.
func NewRuns() *Runs {
	return &Runs{}
}

func (r *Runs) RecordRun(_ context.Context, run core.RefreshRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.runs = append(r.runs, run)
	return nil
}

func (r *Runs) ListRuns(_ context.Context, limit int) ([]core.RefreshRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]core.RefreshRun, 0, len(r.runs))
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.runs[i])
	}
	return out, nil
}

// FeedHeader is a physical header line for test feeds.
const FeedHeader = "Course ID (DO NOT CHANGE),Edit Flag,Market Offering / Specialty,Learning Pillar / L5,courseName,courseLink,description,duration (Hr),vendorPlatform,enrollmentGuidance,level,courseORcertification,paidORFree,keyword,Mapping,Validation Status"

// Feed joins a header and the given data lines into a CSV feed.
func Feed(lines ...string) string {
	return FeedHeader + "\n" + strings.Join(lines, "\n") + "\n"
}
