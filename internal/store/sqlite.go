package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"stockbt/internal/instrument"
	"stockbt/internal/series"
)

var _ SeriesStore = (*SQLiteStore)(nil)

// SQLiteStore keeps all specs in one SQLite database, one row per bar.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bars (
	spec      TEXT    NOT NULL,
	timestamp INTEGER NOT NULL,
	open      REAL    NOT NULL,
	close     REAL    NOT NULL,
	high      REAL    NOT NULL,
	low       REAL    NOT NULL,
	volume    REAL    NOT NULL DEFAULT 0,
	turnover  REAL    NOT NULL DEFAULT 0,
	PRIMARY KEY (spec, timestamp)
)`

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// bars table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", dbPath, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bars table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, spec instrument.Spec, start, end time.Time, lookback int) (*series.Series, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, close, high, low, volume, turnover
		FROM bars WHERE spec = ? ORDER BY timestamp ASC`, spec.String())
	if err != nil {
		return nil, fmt.Errorf("querying bars for %s: %w", spec, err)
	}
	defer rows.Close()

	var bars []series.Bar
	for rows.Next() {
		var ms int64
		var b series.Bar
		if err := rows.Scan(&ms, &b.Open, &b.Close, &b.High, &b.Low, &b.Volume, &b.Turnover); err != nil {
			return nil, fmt.Errorf("scanning bar for %s: %w", spec, err)
		}
		b.Timestamp = time.UnixMilli(ms).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bars for %s: %w", spec, err)
	}
	if len(bars) == 0 {
		return nil, &DataNotFoundError{Spec: spec, Source: "sqlite"}
	}

	return window(spec, bars, start, end, lookback)
}

// SaveBars upserts bars for a spec.
func (s *SQLiteStore) SaveBars(ctx context.Context, spec instrument.Spec, bars []series.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (spec, timestamp, open, close, high, low, volume, turnover)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (spec, timestamp) DO UPDATE SET
			open=excluded.open, close=excluded.close, high=excluded.high,
			low=excluded.low, volume=excluded.volume, turnover=excluded.turnover`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, spec.String(), b.Timestamp.UnixMilli(),
			b.Open, b.Close, b.High, b.Low, b.Volume, b.Turnover); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting bar for %s at %s: %w", spec, b.Timestamp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing bars for %s: %w", spec, err)
	}
	return nil
}
