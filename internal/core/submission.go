package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMaxCertificateSize is the certificate limit used when none is configured.
const DefaultMaxCertificateSize = 2 << 20

// maxHoursCompleted matches the precision of the stored column.
var maxHoursCompleted = decimal.RequireFromString("999.99")

// SubmissionInput is a practitioner's completion claim.
type SubmissionInput struct {
	PractitionerName    string          `json:"practitionerName" validate:"required"`
	PractitionerEmail   string          `json:"practitionerEmail" validate:"required,max=255,email"`
	MarketOffering      string          `json:"marketOffering" validate:"required"`
	LearningPillarL5    string          `json:"learningPillarL5" validate:"required"`
	CourseCode          string          `json:"courseCode" validate:"required,max=50"`
	CourseCertification string          `json:"courseCertification" validate:"required,max=255"`
	HoursCompleted      decimal.Decimal `json:"hoursCompleted"`
	DateOfCompletion    string          `json:"dateOfCompletion" validate:"required"`
}

// Certificate is the proof-of-completion file attached to a submission.
// Size is the size declared by the transport; len(Data) is used when larger.
type Certificate struct {
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
}

// SubmissionOptions configures a SubmissionPipeline.
type SubmissionOptions struct {
	MaxFileSize        int64
	UnlistedCourseCode string

	// Now defaults to time.Now.
	Now func() time.Time
}

// SubmissionPipeline validates course-completion submissions and upserts
// them so a practitioner holds at most one submission per course per
// program year.
type SubmissionPipeline struct {
	taxonomy    TaxonomyValidator
	catalog     CatalogStore
	submissions SubmissionStore
	blobs       BlobStore

	maxFileSize  int64
	unlistedCode string

	validate *validator.Validate
	locks    *KeyedMutex
	now      func() time.Time
	newID    func() uuid.UUID
}

// NewSubmissionPipeline wires a pipeline to its collaborators.
func NewSubmissionPipeline(taxonomy TaxonomyValidator, catalog CatalogStore, submissions SubmissionStore, blobs BlobStore, opts SubmissionOptions) *SubmissionPipeline {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxCertificateSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SubmissionPipeline{
		taxonomy:     taxonomy,
		catalog:      catalog,
		submissions:  submissions,
		blobs:        blobs,
		maxFileSize:  opts.MaxFileSize,
		unlistedCode: opts.UnlistedCourseCode,
		validate:     newValidator(),
		locks:        NewKeyedMutex(),
		now:          opts.Now,
		newID:        uuid.New,
	}
}

// allocation is the derived hours policy of a submission.
type allocation struct {
	hours    decimal.Decimal
	isListed bool
}

// Create validates in, stores the certificate and creates or overwrites the
// practitioner's submission for the course in the current program year.
//
// Validation failures are *RequestValidationError with a fixed message.
// Store and blob store failures are *DependencyFailure.
func (p *SubmissionPipeline) Create(ctx context.Context, in SubmissionInput, cert Certificate) (Submission, error) {
	size := cert.Size
	if n := int64(len(cert.Data)); n > size {
		size = n
	}
	if size > p.maxFileSize {
		return Submission{}, CertificateTooLarge(p.maxFileSize)
	}

	in.PractitionerEmail = strings.TrimSpace(in.PractitionerEmail)
	in.CourseCode = strings.TrimSpace(in.CourseCode)
	if err := p.validate.Struct(in); err != nil {
		return Submission{}, validationError(err)
	}
	if in.HoursCompleted.IsNegative() {
		return Submission{}, rejectf("hoursCompleted must not be less than 0")
	}
	if in.HoursCompleted.GreaterThan(maxHoursCompleted) {
		return Submission{}, rejectf("hoursCompleted must not be greater than %s", maxHoursCompleted)
	}

	completed, err := ParseCompletionDate(in.DateOfCompletion)
	if err != nil {
		return Submission{}, rejectf("dateOfCompletion must be a valid ISO 8601 date string")
	}

	// Calendar checks and the program year are taken in UTC.
	now := p.now().UTC()
	today := dateOf(now)
	if completed.After(today) {
		return Submission{}, rejectf("Date of completion cannot be in the future.")
	}
	if completed.Year() < today.Year() {
		return Submission{}, rejectf("Date of completion cannot be in a previous calendar year.")
	}

	if err := p.checkTaxonomy(ctx, in.MarketOffering, in.LearningPillarL5); err != nil {
		return Submission{}, err
	}

	alloc, err := p.allocate(ctx, in)
	if err != nil {
		return Submission{}, err
	}

	ref, err := p.upload(ctx, cert)
	if err != nil {
		return Submission{}, err
	}

	return p.upsert(ctx, in, completed, ref, alloc, now)
}

func (p *SubmissionPipeline) checkTaxonomy(ctx context.Context, marketOffering, learningPillar string) error {
	ok, err := p.taxonomy.ValidateMarketOffering(ctx, marketOffering)
	if err != nil {
		return dependencyFailure("taxonomy.market_offering", err)
	}
	if !ok {
		return rejectf("Market Offering %q is not valid.", marketOffering)
	}

	ok, err = p.taxonomy.ValidateLearningPillar(ctx, learningPillar)
	if err != nil {
		return dependencyFailure("taxonomy.learning_pillar", err)
	}
	if !ok {
		return rejectf("Learning Pillar %q is not valid.", learningPillar)
	}

	ok, err = p.taxonomy.ValidatePairing(ctx, marketOffering, learningPillar)
	if err != nil {
		return dependencyFailure("taxonomy.pairing", err)
	}
	if !ok {
		return rejectf("Combination of Market Offering %q and Learning Pillar %q is not valid.", marketOffering, learningPillar)
	}
	return nil
}

// allocate resolves hours allocation. The unlisted sentinel code keeps the
// self-declared hours and skips the catalog entirely.
func (p *SubmissionPipeline) allocate(ctx context.Context, in SubmissionInput) (allocation, error) {
	if p.unlistedCode != "" && in.CourseCode == p.unlistedCode {
		return allocation{hours: in.HoursCompleted, isListed: false}, nil
	}

	entry, err := p.catalog.FindActiveByCode(ctx, in.CourseCode)
	if errors.Is(err, ErrNotFound) {
		return allocation{}, rejectf("Course with code %q is either not available or is inactive.", in.CourseCode)
	}
	if err != nil {
		return allocation{}, dependencyFailure("catalog.find_active", err)
	}
	return allocation{hours: entry.DurationHours, isListed: true}, nil
}

// upload stores the certificate under a fresh UUID keeping the original
// extension. Content type and extension fall back to sniffing the bytes.
func (p *SubmissionPipeline) upload(ctx context.Context, cert Certificate) (string, error) {
	contentType := cert.ContentType
	ext := strings.ToLower(filepath.Ext(cert.FileName))
	if contentType == "" || contentType == "application/octet-stream" || ext == "" {
		detected := mimetype.Detect(cert.Data)
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = detected.String()
		}
		if ext == "" {
			ext = detected.Extension()
		}
	}

	name := p.newID().String() + ext
	ref, err := p.blobs.Put(ctx, cert.Data, contentType, name)
	if err != nil {
		return "", &DependencyFailure{Op: "blob.put", Message: "Failed to upload file.", Err: err}
	}
	return ref, nil
}

// upsert overwrites the submission for (email, course) in the current
// program year, or creates one. Calls for the same key are serialized.
func (p *SubmissionPipeline) upsert(ctx context.Context, in SubmissionInput, completed time.Time, ref string, alloc allocation, now time.Time) (Submission, error) {
	unlock := p.locks.Lock(strings.ToLower(in.PractitionerEmail) + "\x00" + in.CourseCode)
	defer unlock()

	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	existing, err := p.submissions.FindCurrentYear(ctx, in.PractitionerEmail, in.CourseCode, yearStart)
	switch {
	case err == nil:
		existing.CourseName = in.CourseCertification
		existing.HoursCompleted = in.HoursCompleted
		existing.DateOfCompletion = completed
		existing.CertificateRef = ref
		existing.HoursAllocated = alloc.hours
		existing.IsListed = alloc.isListed
		existing.UpdatedAt = now

		saved, err := p.submissions.Save(ctx, existing)
		if err != nil {
			return Submission{}, dependencyFailure("submission.save", err)
		}
		slog.Info("submission overwritten",
			"submission_id", saved.ID,
			"course_code", saved.CourseCode,
			"listed", saved.IsListed,
		)
		return saved, nil

	case errors.Is(err, ErrNotFound):
		created, err := p.submissions.Create(ctx, Submission{
			PractitionerEmail: in.PractitionerEmail,
			CourseCode:        in.CourseCode,
			CourseName:        in.CourseCertification,
			HoursCompleted:    in.HoursCompleted,
			HoursAllocated:    alloc.hours,
			IsListed:          alloc.isListed,
			DateOfCompletion:  completed,
			CertificateRef:    ref,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
		if err != nil {
			return Submission{}, dependencyFailure("submission.create", err)
		}
		slog.Info("submission created",
			"submission_id", created.ID,
			"course_code", created.CourseCode,
			"listed", created.IsListed,
		)
		return created, nil

	default:
		return Submission{}, dependencyFailure("submission.find_current_year", err)
	}
}

// FindAll returns submissions matching every non-zero filter field.
func (p *SubmissionPipeline) FindAll(ctx context.Context, filter SubmissionFilter) ([]Submission, error) {
	if err := p.validate.Struct(filter); err != nil {
		return nil, validationError(err)
	}
	if maxYear := p.now().UTC().Year() + 1; filter.CompletionYear > maxYear {
		return nil, rejectf("completionyear must not be greater than %d", maxYear)
	}

	subs, err := p.submissions.Query(ctx, filter)
	if err != nil {
		return nil, dependencyFailure("submission.query", err)
	}
	return subs, nil
}

// ParseCompletionDate accepts an ISO 8601 calendar date or timestamp and
// returns the calendar date at UTC midnight.
func ParseCompletionDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return dateOf(t), nil
}

// dateOf truncates t to its calendar date, expressed at UTC midnight.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CertificateTooLarge is the rejection for a certificate above limit bytes.
func CertificateTooLarge(limit int64) error {
	return rejectf("File size exceeds the limit of %s. Please upload a correct file.", formatLimit(limit))
}

func formatLimit(n int64) string {
	const mib = 1 << 20
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
