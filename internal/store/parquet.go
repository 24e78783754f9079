package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"stockbt/internal/instrument"
	"stockbt/internal/series"
)

var _ SeriesStore = (*ParquetStore)(nil)

// ParquetStore keeps one Parquet file per spec under a data directory, at
// <DataDir>/<spec>.parquet.
type ParquetStore struct {
	DataDir string
}

func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// BarRecord is the on-disk Parquet schema for bar data.
type BarRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	Close     float64 `parquet:"close"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Volume    float64 `parquet:"volume"`
	Turnover  float64 `parquet:"turnover"`
}

func (s *ParquetStore) barPath(spec instrument.Spec) string {
	return filepath.Join(s.DataDir, spec.String()+".parquet")
}

func (s *ParquetStore) Load(_ context.Context, spec instrument.Spec, start, end time.Time, lookback int) (*series.Series, error) {
	path := s.barPath(spec)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &DataNotFoundError{Spec: spec, Source: s.DataDir}
	}

	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	bars := make([]series.Bar, len(records))
	for i, r := range records {
		bars[i] = series.Bar{
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Open:      r.Open,
			Close:     r.Close,
			High:      r.High,
			Low:       r.Low,
			Volume:    r.Volume,
			Turnover:  r.Turnover,
		}
	}
	series.Sort(bars)
	return window(spec, bars, start, end, lookback)
}

// WriteBars merges bars into the spec's file, deduplicating by timestamp
// with incoming records winning.
func (s *ParquetStore) WriteBars(spec instrument.Spec, bars []series.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	incoming := make([]BarRecord, len(bars))
	for i, b := range bars {
		incoming[i] = BarRecord{
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open,
			Close:     b.Close,
			High:      b.High,
			Low:       b.Low,
			Volume:    b.Volume,
			Turnover:  b.Turnover,
		}
	}

	path := s.barPath(spec)
	existing, _ := parquet.ReadFile[BarRecord](path)
	merged := mergeBarRecords(existing, incoming)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, merged); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// mergeBarRecords deduplicates by timestamp, preferring incoming records,
// and returns the result sorted ascending.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	seen := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
