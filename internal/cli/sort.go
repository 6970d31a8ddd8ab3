package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/district-ratings/internal/district"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByInput        SortOrder = "input"
	SortByName         SortOrder = "name"
	SortByGreatSchools SortOrder = "greatschools"
	SortByNiche        SortOrder = "niche"
)

func parseSortOrder(s string) (SortOrder, error) {
	switch order := SortOrder(strings.ToLower(strings.TrimSpace(s))); order {
	case SortByInput, SortByName, SortByGreatSchools, SortByNiche:
		return order, nil
	case "":
		return SortByInput, nil
	}
	return "", fmt.Errorf("invalid sort order: %s (must be input, name, greatschools or niche)", s)
}

// sortRecords sorts records in place. Input order leaves them untouched.
// Rating orders put the best first and districts without a rating last.
func sortRecords(records []*district.Record, order SortOrder) {
	switch order {
	case SortByName:
		sort.SliceStable(records, func(i, j int) bool {
			return compareByName(records[i], records[j])
		})
	case SortByGreatSchools:
		sort.SliceStable(records, func(i, j int) bool {
			a, b := records[i].GreatSchoolsRating, records[j].GreatSchoolsRating
			if a == nil || b == nil {
				if a == nil && b == nil {
					return compareByName(records[i], records[j])
				}
				return b == nil
			}
			if *a != *b {
				return *a > *b
			}
			return compareByName(records[i], records[j])
		})
	case SortByNiche:
		sort.SliceStable(records, func(i, j int) bool {
			a, b := gradeRank(records[i].NicheRating), gradeRank(records[j].NicheRating)
			if a != b {
				return a > b
			}
			return compareByName(records[i], records[j])
		})
	}
}

func compareByName(i, j *district.Record) bool {
	return strings.ToLower(i.DistrictName) < strings.ToLower(j.DistrictName)
}

// gradeRank maps a letter grade to a number, higher is better: A+ is 18,
// F- is 1 and a missing grade is 0.
func gradeRank(grade *string) int {
	if grade == nil || *grade == "" {
		return 0
	}

	g := *grade
	letter := strings.IndexByte("FEDCBA", g[0])
	if letter < 0 {
		return 0
	}

	rank := letter*3 + 2
	if len(g) > 1 {
		switch g[1] {
		case '+':
			rank++
		case '-':
			rank--
		}
	}
	return rank
}
