package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pfrederiksen/district-ratings/internal/config"
	"github.com/pfrederiksen/district-ratings/internal/district"
)

// newSiteServer serves all three sites from one test server.
func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/search/search.page": "greatschools_search.html",
		"/pennsylvania/pittsburgh/1905-pittsburgh-school-district/": "greatschools_district.html",
		"/k12/d/pittsburgh-pennsylvania/":                           "niche_not_found.html",
		"/search/k12/":                                              "niche_search.html",
		"/k12/d/pittsburgh-public-schools-pennsylvania/":            "niche_district.html",
		"/go/PA/search.aspx":                                        "schooldigger_search.html",
		"/go/PA/district.aspx":                                      "schooldigger_district.html",
	}
	bodies := make(map[string]string, len(pages))
	for path, fixture := range pages {
		bodies[path] = loadFixture(t, fixture)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	noDelay := 0
	for _, src := range []*config.SourceConfig{&cfg.Sources.GreatSchools, &cfg.Sources.Niche, &cfg.Sources.SchoolDigger} {
		src.BaseURL = baseURL
		src.DelayMs = &noDelay
	}
	return cfg
}

func TestSources_OverHTTP(t *testing.T) {
	srv := newSiteServer(t)

	sources, err := FromConfig(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}

	rec, _ := district.NewRecord(pittsburgh, testNow)
	for _, src := range sources {
		page, ok := src.Locate(context.Background(), pittsburgh, Pennsylvania)
		if !ok {
			t.Fatalf("%s: Locate() found nothing", src.Name())
		}
		rec.Merge(src.Extract(context.Background(), page), src.Columns())
	}

	want := []string{
		pittsburgh, "",
		"8", srv.URL + "/pennsylvania/pittsburgh/1905-pittsburgh-school-district/",
		"B+", srv.URL + "/k12/d/pittsburgh-public-schools-pennsylvania/",
		"412", srv.URL + "/go/PA/district.aspx?ID=4219170",
		"20350", "12:1",
		"2026-03-01T12:00:00Z",
	}
	got := rec.Row()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s = %q, want %q", district.Columns[i], got[i], want[i])
		}
	}
}

func TestSources_OverHTTP_NothingReachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	sources, err := FromConfig(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}

	rec, _ := district.NewRecord(pittsburgh, testNow)
	for _, src := range sources {
		if page, ok := src.Locate(context.Background(), pittsburgh, Pennsylvania); ok {
			t.Errorf("%s: Locate() = %q, want not found", src.Name(), page)
		}
	}
	if rec.Found() != 0 {
		t.Errorf("Found() = %d, want 0", rec.Found())
	}
}
