package core

// feed.go parses the positional catalog feed.
//
// The feed is read fully before any row is applied so that a malformed file
// fails the run without touching the catalog. Input hygiene happens first:
// a leading UTF-8 BOM (added by spreadsheet exports) is dropped and invalid
// UTF-8 sequences are replaced.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Edit flags carried in the second feed column.
const (
	FlagDelete   = "Delete Row"
	FlagNoChange = "No Change"
	FlagEdited   = "Edited Row"
	FlagNew      = "New Row"
)

// FeedColumns is the logical header of the catalog feed, in column order.
// The physical header line of a feed is ignored.
var FeedColumns = []string{
	"courseCode", "editFlag", "marketOffering", "learningPillar",
	"courseName", "courseLink", "description", "durationHours",
	"vendorPlatform", "enrollmentGuidance", "level", "kind",
	"pricing", "keywords", "mapping", "validationStatus",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CatalogRow is one data line of the catalog feed. Missing trailing
// columns are empty strings.
type CatalogRow struct {
	Line int

	CourseCode         string
	EditFlag           string
	MarketOffering     string
	LearningPillar     string
	CourseName         string
	CourseLink         string
	Description        string
	DurationHours      string
	VendorPlatform     string
	EnrollmentGuidance string
	Level              string
	Kind               string
	Pricing            string
	Keywords           string
	Mapping            string
	ValidationStatus   string
}

// fields returns pointers to the positional columns in FeedColumns order.
func (r *CatalogRow) fields() []*string {
	return []*string{
		&r.CourseCode, &r.EditFlag, &r.MarketOffering, &r.LearningPillar,
		&r.CourseName, &r.CourseLink, &r.Description, &r.DurationHours,
		&r.VendorPlatform, &r.EnrollmentGuidance, &r.Level, &r.Kind,
		&r.Pricing, &r.Keywords, &r.Mapping, &r.ValidationStatus,
	}
}

// missingMandatory returns the logical names of empty mandatory columns.
func (r *CatalogRow) missingMandatory() []string {
	mandatory := []struct {
		name  string
		value string
	}{
		{"courseCode", r.CourseCode},
		{"editFlag", r.EditFlag},
		{"marketOffering", r.MarketOffering},
		{"learningPillar", r.LearningPillar},
		{"courseName", r.CourseName},
		{"courseLink", r.CourseLink},
		{"description", r.Description},
		{"durationHours", r.DurationHours},
		{"vendorPlatform", r.VendorPlatform},
		{"enrollmentGuidance", r.EnrollmentGuidance},
		{"level", r.Level},
		{"kind", r.Kind},
		{"pricing", r.Pricing},
	}

	var missing []string
	for _, m := range mandatory {
		if m.value == "" {
			missing = append(missing, m.name)
		}
	}
	return missing
}

// oversized returns the logical name and width of the first column longer
// than the catalog stores, or "" when every bounded column fits.
func (r *CatalogRow) oversized() (string, int) {
	bounded := []struct {
		name  string
		value string
		limit int
	}{
		{"marketOffering", r.MarketOffering, 100},
		{"learningPillar", r.LearningPillar, 100},
		{"courseName", r.CourseName, 500},
		{"courseLink", r.CourseLink, 2000},
		{"vendorPlatform", r.VendorPlatform, 200},
		{"level", r.Level, 50},
		{"kind", r.Kind, 50},
		{"pricing", r.Pricing, 50},
	}

	for _, b := range bounded {
		if utf8.RuneCountInString(b.value) > b.limit {
			return b.name, b.limit
		}
	}
	return "", 0
}

// ParseFeed reads a catalog feed and returns its data rows in file order.
// The first record is always treated as a header and skipped. A feed with
// only a header yields no rows and no error. Quoting is strict: a stray
// quote fails the whole feed instead of silently merging rows.
func ParseFeed(r io.Reader) ([]CatalogRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFeed
	}
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte("\uFFFD"))
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1

	var rows []CatalogRow
	header := true
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
		}
		if header {
			header = false
			continue
		}

		line, _ := cr.FieldPos(0)
		rows = append(rows, rowFromRecord(record, line))
	}

	return rows, nil
}

func rowFromRecord(record []string, line int) CatalogRow {
	row := CatalogRow{Line: line}
	for i, dst := range row.fields() {
		if i < len(record) {
			*dst = CleanCell(record[i])
		}
	}
	return row
}

// CleanCell trims whitespace and unwraps spreadsheet text formulas
// (="00123" becomes 00123).
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
