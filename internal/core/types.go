package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxDurationHours is the upper bound for a catalog entry's duration.
var MaxDurationHours = decimal.NewFromInt(30000)

// MaxTaxonomyNameLength bounds market offering and learning pillar names.
const MaxTaxonomyNameLength = 2000

// MarketOffering is a top-level taxonomy category (e.g. "Cloud").
type MarketOffering struct {
	ID          int64  `json:"marketofferingid"`
	Name        string `json:"marketofferingname"`
	Description string `json:"marketofferingdescription,omitempty"`
}

// LearningPillar is a sub-category (L5) scoped to one market offering.
type LearningPillar struct {
	ID               int64  `json:"learningpillarid"`
	MarketOfferingID int64  `json:"marketofferingid"`
	Name             string `json:"learningpillarname"`
	Description      string `json:"learningpillardescription,omitempty"`
}

// CourseCatalogEntry is one course in the controlled catalog, keyed by course code.
type CourseCatalogEntry struct {
	CourseCode     string          `json:"coursecode"`
	MarketOffering string          `json:"marketoffering"`
	LearningPillar string          `json:"learningpillar"`
	Name           string          `json:"coursename"`
	Link           string          `json:"courselink"`
	Description    string          `json:"coursedescription"`
	DurationHours  decimal.Decimal `json:"duration"`
	VendorPlatform string          `json:"vendorplatform"`
	Level          string          `json:"courselevel"`
	Kind           string          `json:"courseorcertification"`
	Pricing        string          `json:"paidorfree"`
	Keywords       string          `json:"keywords,omitempty"`
	IsActive       bool            `json:"isactive"`
	CreatedAt      time.Time       `json:"createdtimestamp"`
	UpdatedAt      time.Time       `json:"lastmodifiedtimestamp"`
}

// Submission is a practitioner's recorded course completion.
type Submission struct {
	ID                int64           `json:"submissionid"`
	PractitionerEmail string          `json:"practitioneremail"`
	CourseCode        string          `json:"coursecode"`
	CourseName        string          `json:"coursename"`
	HoursCompleted    decimal.Decimal `json:"hourscompleted"`
	HoursAllocated    decimal.Decimal `json:"hoursallocated"`
	IsListed          bool            `json:"islisted"`
	DateOfCompletion  time.Time       `json:"dateofcompletion"`
	CertificateRef    string          `json:"certificateref"`
	CreatedAt         time.Time       `json:"createdtimestamp"`
	UpdatedAt         time.Time       `json:"lastmodifiedtimestamp"`
}

// CatalogFilter narrows ListCatalog. Zero fields are not applied.
type CatalogFilter struct {
	MarketOffering string
	LearningPillar string
	IsActive       *bool
}

// SubmissionFilter narrows submission queries. Zero fields are not applied;
// the remaining ones are combined with AND. MarketOffering and LearningPillar
// match against the catalog entry of the submission's course code.
type SubmissionFilter struct {
	PractitionerEmail string `json:"practitioneremail" validate:"omitempty,email"`
	CourseCode        string `json:"coursecode"`
	MarketOffering    string `json:"marketoffering"`
	LearningPillar    string `json:"learningpillar"`
	CompletionYear    int    `json:"completionyear" validate:"omitempty,min=1900"`
}

// RowError lists the errors reported for one feed row.
type RowError struct {
	CourseID string   `json:"courseId"`
	Errors   []string `json:"errors"`
}

// RunReport aggregates the outcome of one catalog reconciliation run.
type RunReport struct {
	Inserted    int        `json:"inserted"`
	Updated     int        `json:"updated"`
	Inactivated int        `json:"inactivated"`
	Unchanged   int        `json:"unchanged"`
	Errors      []RowError `json:"errors"`
}

func newRunReport() *RunReport {
	return &RunReport{Errors: []RowError{}}
}

func (r *RunReport) addError(courseID, msg string) {
	r.Errors = append(r.Errors, RowError{CourseID: courseID, Errors: []string{msg}})
}

// Applied returns the number of rows that changed or confirmed catalog state.
func (r *RunReport) Applied() int {
	return r.Inserted + r.Updated + r.Inactivated + r.Unchanged
}

// RefreshRun is the persisted record of one reconciliation run.
type RefreshRun struct {
	ID         string    `json:"runId"`
	FileName   string    `json:"fileName"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Report     RunReport `json:"report"`
	Failure    string    `json:"failure,omitempty"`
}
