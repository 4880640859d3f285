package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxCourseCodeLength bounds the catalog primary key.
const MaxCourseCodeLength = 10

// CatalogRefresher reconciles the course catalog against a CSV feed.
//
// A refresher holds no per-run state and may be shared between goroutines.
// Rows of a single run are applied sequentially in file order, so a later
// row for the same course code observes the writes of earlier ones.
type CatalogRefresher struct {
	catalog  CatalogStore
	taxonomy TaxonomyValidator
	now      func() time.Time
}

// NewCatalogRefresher creates a refresher writing to catalog and validating
// rows against taxonomy.
func NewCatalogRefresher(catalog CatalogStore, taxonomy TaxonomyValidator) *CatalogRefresher {
	return &CatalogRefresher{catalog: catalog, taxonomy: taxonomy, now: time.Now}
}

// Refresh parses the feed and applies every row.
//
// Row-level problems end up in the report and never abort the run. A feed
// that cannot be parsed fails before any row is applied. A store or
// taxonomy failure stops the run; the returned report then reflects the
// rows applied so far and the error is a *DependencyFailure.
func (e *CatalogRefresher) Refresh(ctx context.Context, feed io.Reader) (*RunReport, error) {
	rows, err := ParseFeed(feed)
	if err != nil {
		return nil, err
	}

	report := newRunReport()
	taxonomy := newRunTaxonomyCache(e.taxonomy)

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := e.applyRow(ctx, taxonomy, &rows[i], report); err != nil {
			slog.Error("catalog refresh aborted",
				"line", rows[i].Line,
				"course_code", rows[i].CourseCode,
				"error", err,
			)
			return report, err
		}
	}

	return report, nil
}

// applyRow validates and dispatches one row. Only dependency failures are
// returned; every other outcome is recorded in report.
func (e *CatalogRefresher) applyRow(ctx context.Context, taxonomy TaxonomyValidator, row *CatalogRow, report *RunReport) error {
	if row.CourseCode == "" {
		return nil
	}

	var duration decimal.Decimal
	if row.EditFlag == FlagEdited || row.EditFlag == FlagNew {
		d, msg, err := e.validateRow(ctx, taxonomy, row)
		if err != nil {
			return err
		}
		if msg != "" {
			rowError(report, row, msg)
			return nil
		}
		duration = d
	}

	switch row.EditFlag {
	case FlagDelete:
		entry, err := e.catalog.FindByCode(ctx, row.CourseCode)
		if errors.Is(err, ErrNotFound) {
			rowError(report, row, fmt.Sprintf("Course with code %q not found for inactivation.", row.CourseCode))
			return nil
		}
		if err != nil {
			return dependencyFailure("catalog.find", err)
		}
		entry.IsActive = false
		entry.UpdatedAt = e.now()
		if _, err := e.catalog.Save(ctx, entry); err != nil {
			return dependencyFailure("catalog.save", err)
		}
		report.Inactivated++

	case FlagNoChange:
		report.Unchanged++

	case FlagEdited:
		entry, err := e.catalog.FindByCode(ctx, row.CourseCode)
		if errors.Is(err, ErrNotFound) {
			rowError(report, row, fmt.Sprintf("Course with code %q not found for update.", row.CourseCode))
			return nil
		}
		if err != nil {
			return dependencyFailure("catalog.find", err)
		}
		if _, err := e.catalog.Save(ctx, e.overwrite(entry, row, duration)); err != nil {
			return dependencyFailure("catalog.save", err)
		}
		report.Updated++

	case FlagNew:
		entry, err := e.catalog.FindByCode(ctx, row.CourseCode)
		switch {
		case err == nil:
			if _, err := e.catalog.Save(ctx, e.overwrite(entry, row, duration)); err != nil {
				return dependencyFailure("catalog.save", err)
			}
			report.Updated++
		case errors.Is(err, ErrNotFound):
			if len(row.CourseCode) > MaxCourseCodeLength {
				rowError(report, row, fmt.Sprintf("Course code %q must be at most %d characters.", row.CourseCode, MaxCourseCodeLength))
				return nil
			}
			now := e.now()
			entry = e.overwrite(CourseCatalogEntry{CourseCode: row.CourseCode, IsActive: true, CreatedAt: now}, row, duration)
			if _, err := e.catalog.Create(ctx, entry); err != nil {
				return dependencyFailure("catalog.create", err)
			}
			report.Inserted++
		default:
			return dependencyFailure("catalog.find", err)
		}

	default:
		rowError(report, row, fmt.Sprintf("Invalid Edit Flag: %q", row.EditFlag))
	}

	return nil
}

// validateRow runs the ordered checks for insert/update rows. It returns the
// parsed duration, or the message of the first failing check.
func (e *CatalogRefresher) validateRow(ctx context.Context, taxonomy TaxonomyValidator, row *CatalogRow) (decimal.Decimal, string, error) {
	if missing := row.missingMandatory(); len(missing) > 0 {
		return decimal.Zero, "Missing mandatory fields: " + strings.Join(missing, ", "), nil
	}
	if name, limit := row.oversized(); name != "" {
		return decimal.Zero, fmt.Sprintf("Field %s must be at most %d characters.", name, limit), nil
	}

	ok, err := taxonomy.ValidateMarketOffering(ctx, row.MarketOffering)
	if err != nil {
		return decimal.Zero, "", dependencyFailure("taxonomy.market_offering", err)
	}
	if !ok {
		return decimal.Zero, fmt.Sprintf("Market Offering / Specialty %q is not valid.", row.MarketOffering), nil
	}

	ok, err = taxonomy.ValidateLearningPillar(ctx, row.LearningPillar)
	if err != nil {
		return decimal.Zero, "", dependencyFailure("taxonomy.learning_pillar", err)
	}
	if !ok {
		return decimal.Zero, fmt.Sprintf("Learning Pillar / L5 %q is not valid.", row.LearningPillar), nil
	}

	ok, err = taxonomy.ValidatePairing(ctx, row.MarketOffering, row.LearningPillar)
	if err != nil {
		return decimal.Zero, "", dependencyFailure("taxonomy.pairing", err)
	}
	if !ok {
		return decimal.Zero, fmt.Sprintf("Combination of Market Offering %q and Learning Pillar %q is not valid.", row.MarketOffering, row.LearningPillar), nil
	}

	duration, err := ParseDuration(row.DurationHours)
	if err != nil {
		return decimal.Zero, "Invalid duration. Must be a number between 0 and 30000.", nil
	}

	return duration, "", nil
}

// ParseDuration parses a duration in hours and checks 0 <= d <= 30000.
func ParseDuration(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", s, err)
	}
	if d.IsNegative() || d.GreaterThan(MaxDurationHours) {
		return decimal.Zero, fmt.Errorf("duration %s out of range", d)
	}
	return d, nil
}

// overwrite copies the mutable columns of row onto entry. The active flag
// and creation time are left untouched.
func (e *CatalogRefresher) overwrite(entry CourseCatalogEntry, row *CatalogRow, duration decimal.Decimal) CourseCatalogEntry {
	entry.MarketOffering = row.MarketOffering
	entry.LearningPillar = row.LearningPillar
	entry.Name = row.CourseName
	entry.Link = row.CourseLink
	entry.Description = row.Description
	entry.DurationHours = duration
	entry.VendorPlatform = row.VendorPlatform
	entry.Level = row.Level
	entry.Kind = row.Kind
	entry.Pricing = row.Pricing
	entry.Keywords = row.Keywords
	entry.UpdatedAt = e.now()
	return entry
}

func rowError(report *RunReport, row *CatalogRow, msg string) {
	slog.Debug("catalog row rejected", "line", row.Line, "course_code", row.CourseCode, "reason", msg)
	report.addError(row.CourseCode, msg)
}
