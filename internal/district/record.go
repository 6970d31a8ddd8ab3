package district

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Output column names, in file order.
const (
	ColDistrictName        = "district_name"
	ColCounty              = "county"
	ColGreatSchoolsRating  = "greatschools_rating"
	ColGreatSchoolsURL     = "greatschools_url"
	ColNicheRating         = "niche_rating"
	ColNicheURL            = "niche_url"
	ColSchoolDiggerRating  = "schooldigger_rating"
	ColSchoolDiggerURL     = "schooldigger_url"
	ColEnrollment          = "enrollment"
	ColStudentTeacherRatio = "student_teacher_ratio"
	ColLastUpdated         = "last_updated"
)

// Columns is the header of every table written by this tool.
var Columns = []string{
	ColDistrictName,
	ColCounty,
	ColGreatSchoolsRating,
	ColGreatSchoolsURL,
	ColNicheRating,
	ColNicheURL,
	ColSchoolDiggerRating,
	ColSchoolDiggerURL,
	ColEnrollment,
	ColStudentTeacherRatio,
	ColLastUpdated,
}

// ErrEmptyName is returned when a record would have no district name.
var ErrEmptyName = errors.New("district name is empty")

// Fields is what a rating source reports for one district, keyed by column name.
type Fields map[string]string

// Record is one output row.
type Record struct {
	DistrictName        string  `json:"district_name"`
	County              string  `json:"county"`
	GreatSchoolsRating  *int    `json:"greatschools_rating"`
	GreatSchoolsURL     *string `json:"greatschools_url"`
	NicheRating         *string `json:"niche_rating"`
	NicheURL            *string `json:"niche_url"`
	SchoolDiggerRating  *string `json:"schooldigger_rating"`
	SchoolDiggerURL     *string `json:"schooldigger_url"`
	Enrollment          *int    `json:"enrollment"`
	StudentTeacherRatio *string `json:"student_teacher_ratio"`
	LastUpdated         string  `json:"last_updated"`
}

// NewRecord creates an empty record stamped with now.
func NewRecord(name string, now time.Time) (*Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	return &Record{
		DistrictName: name,
		LastUpdated:  now.UTC().Format(time.RFC3339),
	}, nil
}

// Merge copies the given columns from fields into the record.
// Columns missing from fields are left untouched. Integer columns that do not
// parse are left absent.
func (r *Record) Merge(fields Fields, columns []string) {
	for _, col := range columns {
		value, ok := fields[col]
		if !ok {
			continue
		}

		switch col {
		case ColGreatSchoolsRating:
			r.GreatSchoolsRating = parseInt(value)
		case ColEnrollment:
			r.Enrollment = parseInt(value)
		case ColGreatSchoolsURL:
			r.GreatSchoolsURL = &value
		case ColNicheRating:
			r.NicheRating = &value
		case ColNicheURL:
			r.NicheURL = &value
		case ColSchoolDiggerRating:
			r.SchoolDiggerRating = &value
		case ColSchoolDiggerURL:
			r.SchoolDiggerURL = &value
		case ColStudentTeacherRatio:
			r.StudentTeacherRatio = &value
		}
	}
}

// Row renders the record in Columns order. Absent fields are empty strings.
func (r *Record) Row() []string {
	return []string{
		r.DistrictName,
		r.County,
		intString(r.GreatSchoolsRating),
		str(r.GreatSchoolsURL),
		str(r.NicheRating),
		str(r.NicheURL),
		str(r.SchoolDiggerRating),
		str(r.SchoolDiggerURL),
		intString(r.Enrollment),
		str(r.StudentTeacherRatio),
		r.LastUpdated,
	}
}

// Value returns the rendered cell for column, or "" for an unknown column.
func (r *Record) Value(column string) string {
	row := r.Row()
	for i, col := range Columns {
		if col == column {
			return row[i]
		}
	}
	return ""
}

// Found returns how many sources located a page for the district.
func (r *Record) Found() int {
	n := 0
	for _, u := range []*string{r.GreatSchoolsURL, r.NicheURL, r.SchoolDiggerURL} {
		if u != nil {
			n++
		}
	}
	return n
}

func parseInt(s string) *int {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

func intString(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
