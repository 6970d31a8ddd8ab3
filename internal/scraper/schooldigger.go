package scraper

import (
	"context"
	"net/url"
	"regexp"

	"github.com/pfrederiksen/district-ratings/internal/district"
	"github.com/pfrederiksen/district-ratings/internal/logger"
)

const SchoolDiggerURL = "https://www.schooldigger.com"

var sdRankLabel = regexp.MustCompile(`(?i)rank|rating`)

// SchoolDigger scrapes schooldigger.com, which ranks districts within a state.
type SchoolDigger struct {
	fetcher Fetcher
	base    *url.URL
}

// NewSchoolDigger creates the SchoolDigger source. baseURL is normally SchoolDiggerURL.
func NewSchoolDigger(f Fetcher, baseURL string) (*SchoolDigger, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &SchoolDigger{fetcher: f, base: base}, nil
}

func (s *SchoolDigger) Name() string { return "schooldigger" }

func (s *SchoolDigger) Columns() []string {
	return []string{district.ColSchoolDiggerRating, district.ColSchoolDiggerURL}
}

// Locate runs a district search and scans for district.aspx links.
func (s *SchoolDigger) Locate(ctx context.Context, districtName string, st State) (string, bool) {
	query := url.Values{}
	query.Set("searchterm", districtName)
	query.Set("searchtype", "district")

	doc, ok := fetchDocument(ctx, s.fetcher, searchURL(s.base, "/go/"+st.Code+"/search.aspx", query))
	if !ok {
		return "", false
	}

	hrefPattern := regexp.MustCompile("/go/" + regexp.QuoteMeta(st.Code) + `/district\.aspx`)
	link, found := findDistrictLink(doc, hrefPattern, districtName, s.base)
	if !found {
		logger.Debug("No district link in search results", logger.Fields{
			"source":   s.Name(),
			"district": districtName,
		})
	}
	return link, found
}

// Extract reads the first number near a "rank" or "rating" label. The value
// is kept as text.
func (s *SchoolDigger) Extract(ctx context.Context, districtURL string) district.Fields {
	doc, ok := fetchDocument(ctx, s.fetcher, districtURL)
	if !ok {
		return district.Fields{}
	}

	fields := district.Fields{}

	if text, found := textNearMatch(doc, sdRankLabel); found {
		if rank, ok := firstSubmatch(digitsPattern, text); ok {
			fields[district.ColSchoolDiggerRating] = rank
		}
	}

	fields[district.ColSchoolDiggerURL] = districtURL
	return fields
}
