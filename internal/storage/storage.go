package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/district-ratings/internal/district"
)

// CheckpointPrefix is prepended to the output file name for checkpoint copies.
const CheckpointPrefix = "temp_"

// ErrMissingColumn is returned when an input file has no district_name column.
var ErrMissingColumn = errors.New("input has no " + district.ColDistrictName + " column")

// expandPath expands a leading ~/ to the home directory.
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// CheckpointPath returns the checkpoint file for an output path: the same
// directory, with the base name prefixed by temp_.
func CheckpointPath(path string) string {
	dir, base := filepath.Split(path)
	return dir + CheckpointPrefix + base
}

// ReadDistrictNames reads the district_name column of a CSV or TSV file.
// Other columns are ignored and blank names are dropped.
func ReadDistrictNames(path string) ([]string, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		r.Comma = '\t'
	}

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingColumn
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := -1
	for i, name := range header {
		name = strings.Trim(strings.TrimPrefix(name, "\ufeff"), "\" ")
		if strings.EqualFold(name, district.ColDistrictName) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrMissingColumn
	}

	var names []string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if col >= len(row) {
			continue
		}
		if name := strings.TrimSpace(row[col]); name != "" {
			names = append(names, name)
		}
	}

	return names, nil
}

// WriteRecords replaces the file at path with the records. The format is
// JSON when the extension is .json and CSV otherwise. Parent directories are
// created as needed.
func WriteRecords(path string, records []*district.Record) error {
	path, err := expandPath(path)
	if err != nil {
		return err
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = encodeJSON(records)
	} else {
		data, err = encodeCSV(records)
	}
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing records: %w", err)
	}

	return nil
}

func encodeCSV(records []*district.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(district.Columns); err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(rec.Row()); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", rec.DistrictName, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encoding records: %w", err)
	}

	return buf.Bytes(), nil
}

func encodeJSON(records []*district.Record) ([]byte, error) {
	if records == nil {
		records = []*district.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding records: %w", err)
	}

	return append(data, '\n'), nil
}
