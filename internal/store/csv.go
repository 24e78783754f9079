package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"stockbt/internal/instrument"
	"stockbt/internal/series"
)

var _ SeriesStore = (*CSVStore)(nil)

// CSVStore reads one delimited file per spec from a data directory. The file
// is named <spec>.csv and carries a header row naming the price columns; the
// first column is the bar timestamp. This is the primary input format.
type CSVStore struct {
	DataDir string
}

func NewCSVStore(dataDir string) *CSVStore {
	return &CSVStore{DataDir: dataDir}
}

var csvTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (s *CSVStore) Load(_ context.Context, spec instrument.Spec, start, end time.Time, lookback int) (*series.Series, error) {
	path := filepath.Join(s.DataDir, spec.String()+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &DataNotFoundError{Spec: spec, Source: s.DataDir}
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	bars, err := readCSVBars(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	series.Sort(bars)
	return window(spec, bars, start, end, lookback)
}

// readCSVBars parses a bar file. The header names the columns; open, close,
// high and low are required, volume and turnover are optional.
func readCSVBars(r io.Reader) ([]series.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"open", "close", "high", "low"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("header is missing column %q", required)
		}
	}

	var bars []series.Bar
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := parseCSVTime(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		b := series.Bar{Timestamp: ts}
		if b.Open, err = parseCSVFloat(record, cols, "open"); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if b.Close, err = parseCSVFloat(record, cols, "close"); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if b.High, err = parseCSVFloat(record, cols, "high"); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if b.Low, err = parseCSVFloat(record, cols, "low"); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if _, ok := cols["volume"]; ok {
			if b.Volume, err = parseCSVFloat(record, cols, "volume"); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		if _, ok := cols["turnover"]; ok {
			if b.Turnover, err = parseCSVFloat(record, cols, "turnover"); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func parseCSVTime(field string) (time.Time, error) {
	field = strings.TrimSpace(field)
	for _, layout := range csvTimeLayouts {
		if ts, err := time.Parse(layout, field); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", field)
}

func parseCSVFloat(record []string, cols map[string]int, name string) (float64, error) {
	i := cols[name]
	if i >= len(record) {
		return 0, fmt.Errorf("row too short for column %q", name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return v, nil
}
