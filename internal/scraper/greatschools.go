package scraper

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/pfrederiksen/district-ratings/internal/district"
	"github.com/pfrederiksen/district-ratings/internal/logger"
)

const GreatSchoolsURL = "https://www.greatschools.org"

var (
	gsRatingClass     = regexp.MustCompile(`rating|score`)
	gsEnrollmentLabel = regexp.MustCompile(`(?i)students|enrollment`)
	gsRatioLabel      = regexp.MustCompile(`(?i)student.*teacher|teacher.*student`)
)

// GreatSchools scrapes greatschools.org. Its ratings are 1-10 scores; it is
// also the only source of enrollment and student/teacher ratio.
type GreatSchools struct {
	fetcher Fetcher
	base    *url.URL
}

// NewGreatSchools creates the GreatSchools source. baseURL is normally GreatSchoolsURL.
func NewGreatSchools(f Fetcher, baseURL string) (*GreatSchools, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &GreatSchools{fetcher: f, base: base}, nil
}

func (g *GreatSchools) Name() string { return "greatschools" }

func (g *GreatSchools) Columns() []string {
	return []string{
		district.ColGreatSchoolsRating,
		district.ColGreatSchoolsURL,
		district.ColEnrollment,
		district.ColStudentTeacherRatio,
	}
}

// Locate searches district-level results and returns the first district link
// whose text contains the name.
func (g *GreatSchools) Locate(ctx context.Context, districtName string, st State) (string, bool) {
	query := url.Values{}
	query.Set("q", districtName)
	query.Set("state", st.Code)
	query.Set("level", "district")

	doc, ok := fetchDocument(ctx, g.fetcher, searchURL(g.base, "/search/search.page", query))
	if !ok {
		return "", false
	}

	hrefPattern := regexp.MustCompile("/" + regexp.QuoteMeta(st.Name) + "/.*-district/")
	link, found := findDistrictLink(doc, hrefPattern, districtName, g.base)
	if !found {
		logger.Debug("No district link in search results", logger.Fields{
			"source":   g.Name(),
			"district": districtName,
		})
	}
	return link, found
}

// Extract reads the rating badge, enrollment and student/teacher ratio.
func (g *GreatSchools) Extract(ctx context.Context, districtURL string) district.Fields {
	doc, ok := fetchDocument(ctx, g.fetcher, districtURL)
	if !ok {
		return district.Fields{}
	}

	fields := district.Fields{}

	if text, found := firstDivText(doc, gsRatingClass); found {
		if rating, ok := firstSubmatch(digitsPattern, text); ok {
			fields[district.ColGreatSchoolsRating] = rating
		}
	}

	if text, found := textNearMatch(doc, gsEnrollmentLabel); found {
		if enrollment, ok := firstSubmatch(enrollmentPattern, text); ok {
			fields[district.ColEnrollment] = strings.ReplaceAll(enrollment, ",", "")
		}
	}

	if text, found := textNearMatch(doc, gsRatioLabel); found {
		if ratio, ok := firstSubmatch(ratioPattern, text); ok {
			fields[district.ColStudentTeacherRatio] = ratio
		}
	}

	fields[district.ColGreatSchoolsURL] = districtURL
	return fields
}
