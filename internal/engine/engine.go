// Package engine hosts a backtest run: it eagerly loads every series, aligns
// the stocks to the benchmark's trading calendar, opens the account, drives
// the strategy, and hands the transaction trail to reporting.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"stockbt/internal/account"
	"stockbt/internal/config"
	"stockbt/internal/instrument"
	"stockbt/internal/report"
	"stockbt/internal/series"
	"stockbt/internal/store"
	"stockbt/internal/strategy"
)

// Session is one explicit simulation context. Nothing is global; multiple
// sessions can run in the same process.
type Session struct {
	cfg       config.Settings
	acct      *account.Account
	stocks    map[string]*strategy.Stock
	axis      []time.Time
	benchmark *series.Series
	lookback  int // smallest actual lookback across the loaded stocks
	abortErr  error
}

// NewSession loads everything up front: the benchmark axis, every requested
// series with lookback, and the missing-bar side tables. A missing dataset
// aborts here, before any simulation.
func NewSession(ctx context.Context, cfg config.Settings, st store.SeriesStore) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	benchSpec, err := instrument.ParseSpec(cfg.Benchmark)
	if err != nil {
		return nil, fmt.Errorf("parsing benchmark: %w", err)
	}
	benchmark, err := st.Load(ctx, benchSpec, cfg.Start, cfg.End, 0)
	if err != nil {
		return nil, fmt.Errorf("loading benchmark %s: %w", benchSpec, err)
	}
	axis := benchmark.Timestamps()
	if len(axis) == 0 {
		return nil, fmt.Errorf("benchmark %s has no bars between %s and %s",
			benchSpec, cfg.Start.Format(time.DateOnly), cfg.End.Format(time.DateOnly))
	}

	sess := &Session{
		cfg:       cfg,
		stocks:    make(map[string]*strategy.Stock, len(cfg.PStocks)),
		axis:      axis,
		benchmark: benchmark,
		lookback:  cfg.Lookback,
	}

	for _, raw := range cfg.PStocks {
		spec, err := instrument.ParseSpec(raw)
		if err != nil {
			return nil, err
		}

		sr, err := st.Load(ctx, spec, cfg.Start, cfg.End, cfg.Lookback)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", spec, err)
		}
		if sr.ActualLookback < cfg.Lookback {
			log.Printf("NewSession | %s supplied %d of %d lookback bars", spec, sr.ActualLookback, cfg.Lookback)
		}
		if sr.ActualLookback < sess.lookback {
			sess.lookback = sr.ActualLookback
		}

		code := spec.Instrument.Code
		stock, ok := sess.stocks[code]
		if !ok {
			stock = &strategy.Stock{
				Spec:    spec,
				Series:  make(map[instrument.Period]*series.Series),
				Missing: make(map[instrument.Period]*series.Series),
			}
			sess.stocks[code] = stock
		}
		stock.Series[spec.Period] = sr
		stock.Missing[spec.Period] = series.FillMissing(sr, axis)
	}

	sess.acct = account.New(cfg.Capital, cfg.CommissionRate, cfg.StampTaxRate, cfg.MinCommission, axis[0])
	return sess, nil
}

// Run drives the strategy over the loaded history. A ledger error aborts
// the run and is remembered, but does not fail the session: reporting
// proceeds over the transactions executed before the abort. Blotter may be
// nil.
func (s *Session) Run(strat strategy.Strategy, blotter *report.Writer) error {
	t := &tracingTrader{acct: s.acct, blotter: blotter}
	err := strat.ComputeTradingPoints(t, s.stocks, s.axis, s.lookback)
	if err == nil {
		return nil
	}

	var le account.LedgerError
	if errors.As(err, &le) {
		log.Printf("Run | %s aborted by ledger error: %v", strat.Name(), err)
		s.abortErr = err
		return nil
	}
	return fmt.Errorf("running %s: %w", strat.Name(), err)
}

// Report replays the transaction trail into the equity curve and run
// statistics.
func (s *Session) Report() (*report.Stats, []report.Point, error) {
	stats, points, err := report.Build(s.acct.Records(), s.axis, s.closeAt, s.acct.Capital())
	if err != nil {
		return nil, nil, err
	}
	stats.TotalCommission = s.acct.TotalCommission()
	stats.TotalStampTax = s.acct.TotalStampTax()
	return stats, points, nil
}

// closeAt resolves a traded instrument's close on the reference axis,
// falling back to its synthesized missing bar.
func (s *Session) closeAt(code string, ts time.Time) (float64, bool) {
	stock, ok := s.stocks[code]
	if !ok {
		return 0, false
	}
	return stock.CloseAt(stock.Spec.Period, ts)
}

// Meta assembles the descriptive report fields for the completed run.
func (s *Session) Meta(strat strategy.Strategy) report.Meta {
	return report.Meta{
		StrategyName:        strat.Name(),
		StrategyDescription: strat.Description(),
		Start:               s.cfg.Start,
		End:                 s.cfg.End,
		TradedCodes:         s.acct.TradedCodes(),
		Capital:             s.acct.Capital(),
		FinalCash:           s.acct.Cash(),
		FinalShares:         s.acct.Shares(),
	}
}

// BenchmarkCurve exposes the benchmark closes as curve samples for
// side-by-side net-value export.
func (s *Session) BenchmarkCurve() []report.Point {
	points := make([]report.Point, len(s.benchmark.Bars))
	for i, b := range s.benchmark.Bars {
		points[i] = report.Point{Timestamp: b.Timestamp, Equity: b.Close}
	}
	return points
}

// Account exposes the session's ledger.
func (s *Session) Account() *account.Account { return s.acct }

// Axis returns the reference time axis.
func (s *Session) Axis() []time.Time { return s.axis }

// Lookback returns the smallest lookback actually supplied across stocks.
func (s *Session) Lookback() int { return s.lookback }

// AbortErr returns the ledger error that stopped the run early, if any.
func (s *Session) AbortErr() error { return s.abortErr }
