package cli

import (
	"testing"
	"time"

	"github.com/pfrederiksen/district-ratings/internal/district"
)

func record(t *testing.T, name string, gs, niche string) *district.Record {
	t.Helper()
	rec, err := district.NewRecord(name, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	fields := district.Fields{}
	if gs != "" {
		fields[district.ColGreatSchoolsRating] = gs
	}
	if niche != "" {
		fields[district.ColNicheRating] = niche
	}
	rec.Merge(fields, district.Columns)
	return rec
}

func names(records []*district.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.DistrictName
	}
	return out
}

func TestSortRecords(t *testing.T) {
	tests := []struct {
		order SortOrder
		want  []string
	}{
		{SortByInput, []string{"Erie", "allentown", "Pittsburgh", "Bethlehem"}},
		{SortByName, []string{"allentown", "Bethlehem", "Erie", "Pittsburgh"}},
		{SortByGreatSchools, []string{"Pittsburgh", "Bethlehem", "allentown", "Erie"}},
		{SortByNiche, []string{"Bethlehem", "Pittsburgh", "Erie", "allentown"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			records := []*district.Record{
				record(t, "Erie", "", "B"),
				record(t, "allentown", "", ""),
				record(t, "Pittsburgh", "8", "B+"),
				record(t, "Bethlehem", "6", "A-"),
			}

			sortRecords(records, tt.order)

			got := names(records)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("sortRecords(%s) = %v, want %v", tt.order, got, tt.want)
				}
			}
		})
	}
}

func TestGradeRank(t *testing.T) {
	grade := func(s string) *string { return &s }

	ordered := []*string{grade("A+"), grade("A"), grade("A-"), grade("B+"), grade("C"), grade("F"), grade("F-"), nil}
	for i := 1; i < len(ordered); i++ {
		if gradeRank(ordered[i-1]) <= gradeRank(ordered[i]) {
			t.Errorf("gradeRank not decreasing at index %d", i)
		}
	}

	if gradeRank(grade("")) != 0 || gradeRank(grade("Z")) != 0 {
		t.Error("unknown grades should rank 0")
	}
}

func TestParseSortOrder(t *testing.T) {
	if got, err := parseSortOrder("NAME"); err != nil || got != SortByName {
		t.Errorf("parseSortOrder(NAME) = %q, %v", got, err)
	}
	if got, err := parseSortOrder(""); err != nil || got != SortByInput {
		t.Errorf("parseSortOrder(\"\") = %q, %v", got, err)
	}
	if _, err := parseSortOrder("rank"); err == nil {
		t.Error("parseSortOrder(rank) expected error")
	}
}

func TestTruncate(t *testing.T) {
	long := "https://www.greatschools.org/pennsylvania/pittsburgh/1905-pittsburgh-school-district/"

	got := truncate(long, 20)
	if len([]rune(got)) > 20 {
		t.Errorf("truncate() = %q, longer than 20 columns", got)
	}
	if truncate("short", 20) != "short" {
		t.Error("truncate() changed a short string")
	}
}
