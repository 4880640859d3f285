package core_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/coursetrack/internal/core"
	"github.com/JonMunkholm/coursetrack/internal/core/coretest"
)

const unlisted = "UNLISTED"

type submissionFixture struct {
	catalog     *coretest.Catalog
	submissions *coretest.Submissions
	blobs       *coretest.Blobs
	svc         *core.Service
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()
	tax := coretest.NewTaxonomy()
	tax.Seed("Cloud", "AI", "Data")
	tax.Seed("Security", "Identity")

	catalog := coretest.NewCatalog(
		core.CourseCatalogEntry{CourseCode: "C001", MarketOffering: "Cloud", LearningPillar: "AI", DurationHours: decimal.NewFromInt(12), IsActive: true},
		core.CourseCatalogEntry{CourseCode: "C002", MarketOffering: "Cloud", LearningPillar: "Data", DurationHours: decimal.NewFromInt(4), IsActive: false},
		core.CourseCatalogEntry{CourseCode: "S001", MarketOffering: "Security", LearningPillar: "Identity", DurationHours: decimal.NewFromInt(2), IsActive: true},
	)
	subs := coretest.NewSubmissions(catalog)
	blobs := coretest.NewBlobs()

	svc := core.NewService(core.Stores{
		Taxonomy:    tax,
		Catalog:     catalog,
		Submissions: subs,
		Runs:        coretest.NewRuns(),
	}, blobs, core.Options{
		Submission: core.SubmissionOptions{MaxFileSize: 2 << 20, UnlistedCourseCode: unlisted},
	})

	return &submissionFixture{catalog: catalog, submissions: subs, blobs: blobs, svc: svc}
}

func today() string {
	return time.Now().UTC().Format(time.DateOnly)
}

func validInput() core.SubmissionInput {
	return core.SubmissionInput{
		PractitionerName:    "Ada Lovelace",
		PractitionerEmail:   "ada@example.com",
		MarketOffering:      "Cloud",
		LearningPillarL5:    "AI",
		CourseCode:          "C001",
		CourseCertification: "Intro to AI",
		HoursCompleted:      decimal.RequireFromString("3.5"),
		DateOfCompletion:    today(),
	}
}

func pdf() core.Certificate {
	data := []byte("%PDF-1.4\n%fake certificate\n")
	return core.Certificate{FileName: "cert.pdf", ContentType: "application/pdf", Size: int64(len(data)), Data: data}
}

func requireRejected(t *testing.T, err error, msg string) {
	t.Helper()
	var rv *core.RequestValidationError
	require.True(t, errors.As(err, &rv), "expected RequestValidationError, got %v", err)
	require.Equal(t, msg, rv.Message)
}

func TestCreate_ListedCourse(t *testing.T) {
	f := newSubmissionFixture(t)

	sub, err := f.svc.CreateSubmission(context.Background(), validInput(), pdf())
	require.NoError(t, err)

	require.True(t, sub.IsListed)
	require.True(t, sub.HoursAllocated.Equal(decimal.NewFromInt(12)))
	require.True(t, sub.HoursCompleted.Equal(decimal.RequireFromString("3.5")))
	require.Equal(t, "Intro to AI", sub.CourseName)

	names := f.blobs.Names()
	require.Len(t, names, 1)
	require.Regexp(t, `^[0-9a-f-]{36}\.pdf$`, names[0])
	require.Equal(t, "application/pdf", f.blobs.Types[names[0]])
	require.Equal(t, "mem://certificates/"+names[0], sub.CertificateRef)
}

func TestCreate_UnlistedIgnoresCatalog(t *testing.T) {
	f := newSubmissionFixture(t)
	f.catalog.Err = errors.New("catalog must not be queried")

	in := validInput()
	in.CourseCode = unlisted
	in.HoursCompleted = decimal.RequireFromString("7.25")

	sub, err := f.svc.CreateSubmission(context.Background(), in, pdf())
	require.NoError(t, err)
	require.False(t, sub.IsListed)
	require.True(t, sub.HoursAllocated.Equal(in.HoursCompleted))
}

func TestCreate_Rejections(t *testing.T) {
	yesterdayLastYear := time.Now().UTC().AddDate(-1, 0, 0).Format(time.DateOnly)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(time.DateOnly)

	tests := []struct {
		name   string
		mutate func(*core.SubmissionInput, *core.Certificate)
		want   string
	}{
		{
			name: "file too large",
			mutate: func(_ *core.SubmissionInput, c *core.Certificate) {
				c.Size = 2<<20 + 1
			},
			want: "File size exceeds the limit of 2MB. Please upload a correct file.",
		},
		{
			name: "size checked before anything else",
			mutate: func(in *core.SubmissionInput, c *core.Certificate) {
				c.Data = make([]byte, 2<<20+1)
				in.DateOfCompletion = tomorrow
				in.MarketOffering = "Nope"
			},
			want: "File size exceeds the limit of 2MB. Please upload a correct file.",
		},
		{
			name:   "scenario C future date",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) { in.DateOfCompletion = tomorrow },
			want:   "Date of completion cannot be in the future.",
		},
		{
			name:   "previous year",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) { in.DateOfCompletion = yesterdayLastYear },
			want:   "Date of completion cannot be in a previous calendar year.",
		},
		{
			name: "market offering checked before pillar",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) {
				in.MarketOffering = "Mainframe"
				in.LearningPillarL5 = "Quantum"
			},
			want: `Market Offering "Mainframe" is not valid.`,
		},
		{
			name:   "unknown pillar",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) { in.LearningPillarL5 = "Quantum" },
			want:   `Learning Pillar "Quantum" is not valid.`,
		},
		{
			name:   "pillar of another offering",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) { in.LearningPillarL5 = "Identity" },
			want:   `Combination of Market Offering "Cloud" and Learning Pillar "Identity" is not valid.`,
		},
		{
			name:   "scenario D unknown course",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) { in.CourseCode = "ZZZ" },
			want:   `Course with code "ZZZ" is either not available or is inactive.`,
		},
		{
			name:   "inactive course",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) { in.CourseCode = "C002" },
			want:   `Course with code "C002" is either not available or is inactive.`,
		},
		{
			name:   "invalid email",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) { in.PractitionerEmail = "not-an-email" },
			want:   "practitionerEmail must be an email",
		},
		{
			name:   "missing name",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) { in.PractitionerName = "" },
			want:   "practitionerName should not be empty",
		},
		{
			name:   "unparseable date",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) { in.DateOfCompletion = "31/12/2024" },
			want:   "dateOfCompletion must be a valid ISO 8601 date string",
		},
		{
			name: "email longer than stored",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) {
				in.PractitionerEmail = strings.Repeat("a", 244) + "@example.com"
			},
			want: "practitionerEmail must be shorter than or equal to 255 characters",
		},
		{
			name:   "course code longer than stored",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) { in.CourseCode = strings.Repeat("C", 51) },
			want:   "courseCode must be shorter than or equal to 50 characters",
		},
		{
			name:   "course name longer than stored",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) { in.CourseCertification = strings.Repeat("x", 256) },
			want:   "courseCertification must be shorter than or equal to 255 characters",
		},
		{
			name:   "negative hours",
			mutate: func(in *core.SubmissionInput, _ *core.Certificate) { in.HoursCompleted = decimal.NewFromInt(-1) },
			want:   "hoursCompleted must not be less than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubmissionFixture(t)
			in, cert := validInput(), pdf()
			tt.mutate(&in, &cert)

			_, err := f.svc.CreateSubmission(context.Background(), in, cert)
			requireRejected(t, err, tt.want)
			require.Empty(t, f.submissions.All())
			require.Empty(t, f.blobs.Names())
		})
	}
}

func TestCreate_CalendarChecksUseUTC(t *testing.T) {
	// 22:00 on New Year's Eve five hours west of UTC is already
	// 1 January in UTC.
	now := time.Date(2025, time.December, 31, 22, 0, 0, 0, time.FixedZone("UTC-5", -5*60*60))

	tax := coretest.NewTaxonomy()
	tax.Seed("Cloud", "AI")
	catalog := coretest.NewCatalog(core.CourseCatalogEntry{
		CourseCode: "C001", MarketOffering: "Cloud", LearningPillar: "AI",
		DurationHours: decimal.NewFromInt(12), IsActive: true,
	})
	subs := coretest.NewSubmissions(catalog)
	pipeline := core.NewSubmissionPipeline(core.NewTaxonomyService(tax), catalog, subs, coretest.NewBlobs(), core.SubmissionOptions{
		Now: func() time.Time { return now },
	})

	tests := []struct {
		name string
		date string
		want string
	}{
		{name: "UTC today accepted", date: "2026-01-01"},
		{name: "local today is last year in UTC", date: "2025-12-31", want: "Date of completion cannot be in a previous calendar year."},
		{name: "UTC tomorrow rejected", date: "2026-01-02", want: "Date of completion cannot be in the future."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			in.DateOfCompletion = tt.date

			_, err := pipeline.Create(context.Background(), in, pdf())
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			requireRejected(t, err, tt.want)
		})
	}
}

func TestCreate_SameYearOverwrites(t *testing.T) {
	f := newSubmissionFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateSubmission(ctx, validInput(), pdf())
	require.NoError(t, err)

	in := validInput()
	in.CourseCertification = "Intro to AI (retake)"
	in.HoursCompleted = decimal.NewFromInt(6)
	second, err := f.svc.CreateSubmission(ctx, in, pdf())
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.NotEqual(t, first.CertificateRef, second.CertificateRef)

	all := f.submissions.All()
	require.Len(t, all, 1)
	require.Equal(t, "Intro to AI (retake)", all[0].CourseName)
	require.True(t, all[0].HoursCompleted.Equal(decimal.NewFromInt(6)))
}

func TestCreate_PriorYearRowIsIndependent(t *testing.T) {
	f := newSubmissionFixture(t)
	ctx := context.Background()

	lastYear := time.Date(time.Now().UTC().Year()-1, time.June, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.submissions.Create(ctx, core.Submission{
		PractitionerEmail: "ada@example.com",
		CourseCode:        "C001",
		DateOfCompletion:  lastYear,
	})
	require.NoError(t, err)

	_, err = f.svc.CreateSubmission(ctx, validInput(), pdf())
	require.NoError(t, err)
	require.Len(t, f.submissions.All(), 2)
}

func TestCreate_ConcurrentSameKeyYieldsOneRow(t *testing.T) {
	f := newSubmissionFixture(t)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateSubmission(context.Background(), validInput(), pdf())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, f.submissions.All(), 1)
}

func TestCreate_BlobFailureIsDependencyFailure(t *testing.T) {
	f := newSubmissionFixture(t)
	f.blobs.Err = errors.New("ssh: handshake failed")

	_, err := f.svc.CreateSubmission(context.Background(), validInput(), pdf())

	var df *core.DependencyFailure
	require.True(t, errors.As(err, &df))
	require.Equal(t, "Failed to upload file.", df.Message)
	require.Empty(t, f.submissions.All())
}

func TestCreate_SniffsMissingTypeAndExtension(t *testing.T) {
	f := newSubmissionFixture(t)
	cert := pdf()
	cert.FileName = "certificate"
	cert.ContentType = ""

	_, err := f.svc.CreateSubmission(context.Background(), validInput(), cert)
	require.NoError(t, err)

	names := f.blobs.Names()
	require.Len(t, names, 1)
	require.Regexp(t, `\.pdf$`, names[0])
	require.Equal(t, "application/pdf", f.blobs.Types[names[0]])
}

func TestFindSubmissions(t *testing.T) {
	f := newSubmissionFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateSubmission(ctx, validInput(), pdf())
	require.NoError(t, err)

	sec := validInput()
	sec.PractitionerEmail = "grace@example.com"
	sec.MarketOffering, sec.LearningPillarL5, sec.CourseCode = "Security", "Identity", "S001"
	_, err = f.svc.CreateSubmission(ctx, sec, pdf())
	require.NoError(t, err)

	all, err := f.svc.FindSubmissions(ctx, core.SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	bySecurity, err := f.svc.FindSubmissions(ctx, core.SubmissionFilter{MarketOffering: "Security"})
	require.NoError(t, err)
	require.Len(t, bySecurity, 1)
	require.Equal(t, "S001", bySecurity[0].CourseCode)

	none, err := f.svc.FindSubmissions(ctx, core.SubmissionFilter{PractitionerEmail: "ada@example.com", LearningPillar: "Identity"})
	require.NoError(t, err)
	require.Empty(t, none)

	thisYear, err := f.svc.FindSubmissions(ctx, core.SubmissionFilter{CompletionYear: time.Now().UTC().Year()})
	require.NoError(t, err)
	require.Len(t, thisYear, 2)
}

func TestFindSubmissions_RejectsBadFilters(t *testing.T) {
	f := newSubmissionFixture(t)
	ctx := context.Background()

	_, err := f.svc.FindSubmissions(ctx, core.SubmissionFilter{CompletionYear: 1899})
	requireRejected(t, err, "completionyear must not be less than 1900")

	_, err = f.svc.FindSubmissions(ctx, core.SubmissionFilter{CompletionYear: time.Now().UTC().Year() + 2})
	require.True(t, core.IsRequestValidation(err))

	_, err = f.svc.FindSubmissions(ctx, core.SubmissionFilter{PractitionerEmail: "nope"})
	requireRejected(t, err, "practitioneremail must be an email")
}

func TestParseCompletionDate(t *testing.T) {
	d, err := core.ParseCompletionDate("2025-03-04")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), d)

	d, err = core.ParseCompletionDate("2025-03-04T23:30:00+02:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), d)

	_, err = core.ParseCompletionDate("March 4")
	require.Error(t, err)
}
