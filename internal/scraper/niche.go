package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/pfrederiksen/district-ratings/internal/district"
	"github.com/pfrederiksen/district-ratings/internal/logger"
)

const NicheURL = "https://www.niche.com"

var nicheGradeClass = regexp.MustCompile(`grade|rating`)

// Niche scrapes niche.com, which grades districts with letters.
type Niche struct {
	fetcher Fetcher
	base    *url.URL
}

// NewNiche creates the Niche source. baseURL is normally NicheURL.
func NewNiche(f Fetcher, baseURL string) (*Niche, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Niche{fetcher: f, base: base}, nil
}

func (n *Niche) Name() string { return "niche" }

func (n *Niche) Columns() []string {
	return []string{district.ColNicheRating, district.ColNicheURL}
}

// Slug turns a district name into Niche's URL form:
// "Pittsburgh School District" becomes "pittsburgh".
func Slug(districtName string) string {
	slug := strings.ToLower(districtName)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "school-district", "")
	return strings.Trim(slug, "-")
}

// GuessURL returns the page Niche usually serves for a district.
func (n *Niche) GuessURL(districtName string, st State) string {
	return fmt.Sprintf("%s/k12/d/%s-%s/", n.base.String(), Slug(districtName), st.Name)
}

// Locate tries the guessed URL first and accepts it unless the page mentions
// "404". Otherwise it falls back to the search results.
func (n *Niche) Locate(ctx context.Context, districtName string, st State) (string, bool) {
	guess := n.GuessURL(districtName, st)
	if body, ok := n.fetcher.Fetch(ctx, guess); ok && !strings.Contains(body, "404") {
		return guess, true
	}

	logger.Debug("Guessed URL rejected, searching", logger.Fields{
		"source":   n.Name(),
		"district": districtName,
		"url":      guess,
	})

	query := url.Values{}
	query.Set("q", districtName+" "+st.Name)

	doc, ok := fetchDocument(ctx, n.fetcher, searchURL(n.base, "/search/k12/", query))
	if !ok {
		return "", false
	}

	hrefPattern := regexp.MustCompile("/k12/d/.*" + regexp.QuoteMeta(st.Name))
	return findDistrictLink(doc, hrefPattern, districtName, n.base)
}

// Extract reads the overall letter grade.
func (n *Niche) Extract(ctx context.Context, districtURL string) district.Fields {
	doc, ok := fetchDocument(ctx, n.fetcher, districtURL)
	if !ok {
		return district.Fields{}
	}

	fields := district.Fields{}

	if text, found := firstDivText(doc, nicheGradeClass); found {
		if grade, ok := ParseGrade(text); ok {
			fields[district.ColNicheRating] = grade
		}
	}

	fields[district.ColNicheURL] = districtURL
	return fields
}
