package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/district-ratings/internal/config"
	"github.com/pfrederiksen/district-ratings/internal/district"
	"github.com/pfrederiksen/district-ratings/internal/fetcher"
	"github.com/pfrederiksen/district-ratings/internal/logger"
	"golang.org/x/net/html"
)

// Fetcher returns the body of a page, or ok == false if it could not be had.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body string, ok bool)
}

// State identifies the state a district belongs to.
type State struct {
	Code string // two-letter code used by GreatSchools and SchoolDigger, e.g. PA
	Name string // lowercase name used in URL paths, e.g. pennsylvania
}

// Pennsylvania is the default state.
var Pennsylvania = State{Code: "PA", Name: "pennsylvania"}

// Source is one rating site.
type Source interface {
	// Name is the short site identifier used in logs and metrics.
	Name() string
	// Columns lists the record columns this source fills.
	Columns() []string
	// Locate finds the district's page on the site.
	Locate(ctx context.Context, districtName string, st State) (string, bool)
	// Extract reads the fields from a district page. The result always
	// contains the page URL unless the page could not be fetched, in which
	// case it is empty.
	Extract(ctx context.Context, districtURL string) district.Fields
}

var (
	digitsPattern     = regexp.MustCompile(`(\d+)`)
	enrollmentPattern = regexp.MustCompile(`(\d+(?:,\d+)*)`)
	ratioPattern      = regexp.MustCompile(`(\d+:\d+)`)
	// A letter grade standing on its own: "B+" in "Grade B+", not the "A" in "Average".
	gradePattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9])([A-F][+-]?)(?:[^A-Za-z0-9+-]|$)`)
)

// FromConfig builds the enabled sources in their fixed order: GreatSchools,
// Niche, SchoolDigger. Each gets its own fetcher so that the per-site delay
// applies.
func FromConfig(cfg *config.Config) ([]Source, error) {
	newFetcher := func(src config.SourceConfig) *fetcher.Fetcher {
		return fetcher.New(fetcher.Options{
			Delay:      src.Delay(),
			Timeout:    cfg.Fetch.Timeout(),
			UserAgent:  cfg.Fetch.UserAgent,
			BrowserTLS: cfg.Fetch.BrowserTLS,
		})
	}

	var sources []Source

	if src := cfg.Sources.GreatSchools; src.IsEnabled() {
		gs, err := NewGreatSchools(newFetcher(src), orDefault(src.BaseURL, GreatSchoolsURL))
		if err != nil {
			return nil, err
		}
		sources = append(sources, gs)
	}

	if src := cfg.Sources.Niche; src.IsEnabled() {
		n, err := NewNiche(newFetcher(src), orDefault(src.BaseURL, NicheURL))
		if err != nil {
			return nil, err
		}
		sources = append(sources, n)
	}

	if src := cfg.Sources.SchoolDigger; src.IsEnabled() {
		sd, err := NewSchoolDigger(newFetcher(src), orDefault(src.BaseURL, SchoolDiggerURL))
		if err != nil {
			return nil, err
		}
		sources = append(sources, sd)
	}

	return sources, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q is not absolute", raw)
	}
	return u, nil
}

// searchURL joins base, path and the encoded query.
func searchURL(base *url.URL, path string, query url.Values) string {
	u := *base
	u.Path = strings.TrimRight(base.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// fetchDocument fetches and parses a page.
func fetchDocument(ctx context.Context, f Fetcher, pageURL string) (*goquery.Document, bool) {
	body, ok := f.Fetch(ctx, pageURL)
	if !ok {
		return nil, false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		logger.Warn("Could not parse page", logger.Fields{"url": pageURL, "error": err.Error()})
		return nil, false
	}

	return doc, true
}

// findDistrictLink returns the first anchor whose href matches hrefPattern and
// whose text contains the district name, ignoring case. The href is resolved
// against base.
func findDistrictLink(doc *goquery.Document, hrefPattern *regexp.Regexp, districtName string, base *url.URL) (string, bool) {
	needle := strings.ToLower(districtName)
	found := ""

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !hrefPattern.MatchString(href) {
			return true
		}
		if !strings.Contains(strings.ToLower(a.Text()), needle) {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		found = base.ResolveReference(ref).String()
		return false
	})

	return found, found != ""
}

// firstDivText returns the trimmed text of the first div whose class
// attribute matches classPattern.
func firstDivText(doc *goquery.Document, classPattern *regexp.Regexp) (string, bool) {
	text := ""
	found := false

	doc.Find("div[class]").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		class, _ := div.Attr("class")
		if !classPattern.MatchString(class) {
			return true
		}
		text = strings.TrimSpace(div.Text())
		found = true
		return false
	})

	return text, found
}

// textNearMatch finds the first text node, in document order, matching
// pattern and returns the text of its parent element.
func textNearMatch(doc *goquery.Document, pattern *regexp.Regexp) (string, bool) {
	var walk func(n *html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		if n.Type == html.TextNode && pattern.MatchString(n.Data) {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if m := walk(c); m != nil {
				return m
			}
		}
		return nil
	}

	for _, root := range doc.Nodes {
		match := walk(root)
		if match == nil {
			continue
		}
		if match.Parent == nil {
			return match.Data, true
		}
		return goquery.NewDocumentFromNode(match.Parent).Text(), true
	}

	return "", false
}

// firstSubmatch returns the first capture group of pattern in s.
func firstSubmatch(pattern *regexp.Regexp, s string) (string, bool) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseGrade extracts a standalone letter grade (A-F, optional + or -) from s.
func ParseGrade(s string) (string, bool) {
	return firstSubmatch(gradePattern, s)
}
