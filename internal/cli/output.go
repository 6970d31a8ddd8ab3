package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/pfrederiksen/district-ratings/internal/district"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// maxCellWidth caps the display width of URL cells in text tables.
const maxCellWidth = 48

func parseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(s)
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

// Summary describes a finished collect run.
type Summary struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Output      string             `json:"output"`
	Count       int                `json:"count"`
	Found       map[string]int     `json:"found_by_source"`
	Records     []*district.Record `json:"records"`
}

// NewSummary counts, per source, how many records have a page URL.
func NewSummary(records []*district.Record, output string, now time.Time) *Summary {
	found := map[string]int{"greatschools": 0, "niche": 0, "schooldigger": 0}
	for _, rec := range records {
		if rec.GreatSchoolsURL != nil {
			found["greatschools"]++
		}
		if rec.NicheURL != nil {
			found["niche"]++
		}
		if rec.SchoolDiggerURL != nil {
			found["schooldigger"]++
		}
	}

	if records == nil {
		records = []*district.Record{}
	}

	return &Summary{
		GeneratedAt: now.UTC(),
		Output:      output,
		Count:       len(records),
		Found:       found,
		Records:     records,
	}
}

// WriteSummary writes the summary in the specified format
func WriteSummary(w io.Writer, s *Summary, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, s)
	case FormatText:
		return writeSummaryText(w, s)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteRecord writes a single record in the specified format
func WriteRecord(w io.Writer, rec *district.Record, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, rec)
	case FormatText:
		return writeRecordText(w, rec)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func writeSummaryText(w io.Writer, s *Summary) error {
	if s.Count == 0 {
		fmt.Fprintln(w, "No districts processed.")
		return nil
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"#", "District", "GreatSchools", "Niche", "SchoolDigger", "Enrollment", "Ratio"})
	for i, rec := range s.Records {
		t.AppendRow(table.Row{
			i + 1,
			rec.DistrictName,
			dash(rec.Value(district.ColGreatSchoolsRating)),
			dash(rec.Value(district.ColNicheRating)),
			dash(rec.Value(district.ColSchoolDiggerRating)),
			dash(rec.Value(district.ColEnrollment)),
			dash(rec.Value(district.ColStudentTeacherRatio)),
		})
	}
	t.AppendFooter(table.Row{
		"", fmt.Sprintf("%d districts", s.Count),
		found(s.Found["greatschools"], s.Count),
		found(s.Found["niche"], s.Count),
		found(s.Found["schooldigger"], s.Count),
		"", "",
	})
	t.Render()

	fmt.Fprintf(w, "\nWritten to %s\n", s.Output)
	return nil
}

func writeRecordText(w io.Writer, rec *district.Record) error {
	t := newTable(w)
	t.AppendHeader(table.Row{"Field", "Value"})
	for i, value := range rec.Row() {
		t.AppendRow(table.Row{district.Columns[i], dash(truncate(value, maxCellWidth))})
	}
	t.Render()

	fmt.Fprintf(w, "Found on %d of 3 sites\n", rec.Found())
	return nil
}

// writeMetrics prints the counters and timings of a metrics snapshot.
func writeMetrics(w io.Writer, snapshot map[string]interface{}) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Metric", "Value"})

	if counters, ok := snapshot["counters"].(map[string]int64); ok {
		for _, name := range sortedKeys(counters) {
			t.AppendRow(table.Row{name, counters[name]})
		}
	}

	if timings, ok := snapshot["timings"].(map[string]map[string]interface{}); ok {
		for _, name := range sortedKeys(timings) {
			tm := timings[name]
			t.AppendRow(table.Row{name, fmt.Sprintf("%v calls, avg %v, max %v", tm["count"], tm["average"], tm["max"])})
		}
	}

	t.Render()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncate shortens s to at most width display columns.
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func found(n, total int) string {
	return fmt.Sprintf("%d/%d", n, total)
}
