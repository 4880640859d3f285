package core

import (
	"errors"
	"strings"
	"testing"
)

func TestParseFeed_SkipsHeaderAndPadsColumns(t *testing.T) {
	feed := "anything,at,all\n" +
		"C001,No Change,Cloud\n" +
		`C002,"Edited Row","Cloud","AI","Intro, Part 1",https://x,desc,10,Udemy,Self,Beginner,Course,Free,kw,m,ok` + "\n"

	rows, err := ParseFeed(strings.NewReader(feed))
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	if rows[0].CourseCode != "C001" || rows[0].EditFlag != FlagNoChange || rows[0].MarketOffering != "Cloud" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[0].LearningPillar != "" || rows[0].ValidationStatus != "" {
		t.Error("missing trailing columns should be empty")
	}
	if rows[0].Line != 2 {
		t.Errorf("row 0 line = %d, want 2", rows[0].Line)
	}

	if rows[1].CourseName != "Intro, Part 1" {
		t.Errorf("quoted field = %q, want %q", rows[1].CourseName, "Intro, Part 1")
	}
	if rows[1].ValidationStatus != "ok" {
		t.Errorf("last column = %q, want ok", rows[1].ValidationStatus)
	}
}

func TestParseFeed_StripsBOMAndInvalidUTF8(t *testing.T) {
	feed := "\xEF\xBB\xBFheader\nC\xff01,No Change\n"

	rows, err := ParseFeed(strings.NewReader(feed))
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].CourseCode != "C\uFFFD01" {
		t.Errorf("CourseCode = %q, want invalid byte replaced", rows[0].CourseCode)
	}
}

func TestParseFeed_Errors(t *testing.T) {
	tests := []struct {
		name string
		feed string
		want error
	}{
		{"empty", "", ErrEmptyFeed},
		{"whitespace only", " \n\n", ErrEmptyFeed},
		{"bom only", "\xEF\xBB\xBF", ErrEmptyFeed},
		{"extraneous quote", "h\n\"C001\"x\"\n", ErrMalformedFeed},
		{"bare quote", "h\nC001,12\" ruler\n", ErrMalformedFeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFeed(strings.NewReader(tt.feed))
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseFeed() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseFeed_HeaderOnly(t *testing.T) {
	rows, err := ParseFeed(strings.NewReader("Course ID,Edit Flag\n"))
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  C001  ", "C001"},
		{`="00123"`, "00123"},
		{"=", "="},
		{"", ""},
		{`He said "hi"`, `He said "hi"`},
	}
	for _, tt := range tests {
		if got := CleanCell(tt.in); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMissingMandatory(t *testing.T) {
	row := CatalogRow{
		CourseCode:     "C005",
		EditFlag:       FlagEdited,
		MarketOffering: "New Market 5",
		LearningPillar: "New Pillar 5",
		CourseName:     "Incomplete Course",
	}

	got := strings.Join(row.missingMandatory(), ", ")
	want := "courseLink, description, durationHours, vendorPlatform, enrollmentGuidance, level, kind, pricing"
	if got != want {
		t.Errorf("missingMandatory() = %q, want %q", got, want)
	}
}
