// Package store loads bar series from the configured backend. Every backend
// returns the same shape: bars covering [start-lookback, end], sorted and
// deduplicated, with ActualLookback reporting how much history was really
// available.
package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stockbt/internal/instrument"
	"stockbt/internal/series"
)

// SeriesStore loads the bar series for one spec over a time window plus a
// number of lookback bars preceding the window.
type SeriesStore interface {
	Load(ctx context.Context, spec instrument.Spec, start, end time.Time, lookback int) (*series.Series, error)
}

// DataNotFoundError reports that no dataset exists for the spec at all.
// It is fatal to a session: the run cannot proceed without the data.
type DataNotFoundError struct {
	Spec   instrument.Spec
	Source string
}

func (e *DataNotFoundError) Error() string {
	return fmt.Sprintf("no data found for %s in %s", e.Spec, e.Source)
}

// InsufficientHistoryError reports that lookback bars were requested but the
// dataset has no bars at all before the window start. A partial lookback is
// not an error; it is reported through Series.ActualLookback.
type InsufficientHistoryError struct {
	Spec     instrument.Spec
	Start    time.Time
	Lookback int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%s has no history before %s (%d lookback bars requested)",
		e.Spec, e.Start.Format(time.DateOnly), e.Lookback)
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend     string // "csv", "parquet", "sqlite", "postgres"
	DataDir     string // csv and parquet
	SQLitePath  string
	PostgresDSN string
}

// Open builds the store named by cfg.Backend.
func Open(cfg Config) (SeriesStore, error) {
	switch cfg.Backend {
	case "", "csv":
		return NewCSVStore(cfg.DataDir), nil
	case "parquet":
		return NewParquetStore(cfg.DataDir), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return NewPostgresStore(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// window slices sorted bars down to [start-lookback bars, end] and fills in
// ActualLookback. The caller guarantees bars are sorted ascending.
func window(spec instrument.Spec, bars []series.Bar, start, end time.Time, lookback int) (*series.Series, error) {
	if lookback < 0 {
		return nil, fmt.Errorf("lookback must be non-negative, got %d", lookback)
	}

	first := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Timestamp.Before(start)
	})
	last := sort.Search(len(bars), func(i int) bool {
		return bars[i].Timestamp.After(end)
	})
	if last < first {
		last = first
	}

	if lookback > 0 && first == 0 {
		return nil, &InsufficientHistoryError{Spec: spec, Start: start, Lookback: lookback}
	}

	actual := lookback
	if actual > first {
		actual = first
	}

	s := &series.Series{
		Spec:           spec,
		Bars:           append([]series.Bar(nil), bars[first-actual:last]...),
		ActualLookback: actual,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
