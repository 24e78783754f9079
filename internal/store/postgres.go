package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"stockbt/internal/instrument"
	"stockbt/internal/series"
)

var _ SeriesStore = (*PostgresStore)(nil)

// PostgresStore keeps all specs in a shared Postgres bars table.
type PostgresStore struct {
	db *sql.DB
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS bars (
	spec      TEXT             NOT NULL,
	timestamp TIMESTAMPTZ      NOT NULL,
	open      DOUBLE PRECISION NOT NULL,
	close     DOUBLE PRECISION NOT NULL,
	high      DOUBLE PRECISION NOT NULL,
	low       DOUBLE PRECISION NOT NULL,
	volume    DOUBLE PRECISION NOT NULL DEFAULT 0,
	turnover  DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (spec, timestamp)
)`

// NewPostgresStore connects with the given DSN and ensures the bars table
// exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bars table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// executeWithTransaction runs fn inside a new transaction, rolling back on
// error and committing on success.
func (s *PostgresStore) executeWithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if fnErr := fn(tx); fnErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction rollback failed: %w (original error: %v)", rbErr, fnErr)
		}
		return fnErr
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("transaction commit failed: %w", commitErr)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, spec instrument.Spec, start, end time.Time, lookback int) (*series.Series, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, close, high, low, volume, turnover
		FROM bars WHERE spec = $1 ORDER BY timestamp ASC`, spec.String())
	if err != nil {
		return nil, fmt.Errorf("querying bars for %s: %w", spec, err)
	}
	defer rows.Close()

	var bars []series.Bar
	for rows.Next() {
		var b series.Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.Close, &b.High, &b.Low, &b.Volume, &b.Turnover); err != nil {
			return nil, fmt.Errorf("scanning bar for %s: %w", spec, err)
		}
		b.Timestamp = b.Timestamp.UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bars for %s: %w", spec, err)
	}
	if len(bars) == 0 {
		return nil, &DataNotFoundError{Spec: spec, Source: "postgres"}
	}

	return window(spec, bars, start, end, lookback)
}

// SaveBars upserts bars for a spec in a single transaction.
func (s *PostgresStore) SaveBars(ctx context.Context, spec instrument.Spec, bars []series.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	return s.executeWithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO bars (spec, timestamp, open, close, high, low, volume, turnover)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (spec, timestamp) DO UPDATE SET
				open=EXCLUDED.open, close=EXCLUDED.close, high=EXCLUDED.high,
				low=EXCLUDED.low, volume=EXCLUDED.volume, turnover=EXCLUDED.turnover`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, b := range bars {
			if _, err := stmt.ExecContext(ctx, spec.String(), b.Timestamp,
				b.Open, b.Close, b.High, b.Low, b.Volume, b.Turnover); err != nil {
				return fmt.Errorf("inserting bar for %s at %s: %w", spec, b.Timestamp, err)
			}
		}
		return nil
	})
}
