// Package report reconstructs the floating equity curve from the account's
// transaction trail and produces the run statistics and report file.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"stockbt/internal/account"
)

// Point is one equity-curve sample.
type Point struct {
	Timestamp time.Time
	Equity    float64
}

// Stats summarizes a completed run. The profit fields are only meaningful
// when HasTrades is set; a run with no transactions beyond the opening
// snapshot reports without them.
type Stats struct {
	FinalEquity      float64
	Profit           float64
	Return           float64
	AnnualizedReturn float64
	MaxDrawdown      float64
	DrawdownStart    time.Time
	DrawdownEnd      time.Time
	TotalCommission  float64
	TotalStampTax    float64
	HasTrades        bool
}

// CloseFunc resolves an instrument's close price at a reference timestamp,
// falling back to the synthesized missing bar when the real one is absent.
type CloseFunc func(code string, t time.Time) (float64, bool)

// Build replays records against the reference axis: for each axis timestamp
// the most recent record at or before it supplies cash and holdings, and
// holdings are marked to that day's close. Equity replay order is strict,
// drawdown depends on it.
func Build(records []account.Record, axis []time.Time, closeAt CloseFunc, capital float64) (*Stats, []Point, error) {
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("no transaction records to replay")
	}
	if len(axis) == 0 {
		return nil, nil, fmt.Errorf("empty reference axis")
	}
	for i := 1; i < len(records); i++ {
		if records[i].Timestamp.Before(records[i-1].Timestamp) {
			return nil, nil, fmt.Errorf("transaction records out of order at %s", records[i].Timestamp)
		}
	}

	points := make([]Point, 0, len(axis))
	ri := 0
	for _, ts := range axis {
		for ri+1 < len(records) && !records[ri+1].Timestamp.After(ts) {
			ri++
		}
		rec := records[ri]

		equity := rec.Cash
		codes := make([]string, 0, len(rec.Shares))
		for code := range rec.Shares {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			lots := rec.Shares[code]
			if lots == 0 {
				continue
			}
			close, ok := closeAt(code, ts)
			if !ok {
				return nil, nil, fmt.Errorf("no close price for %s at %s", code, ts.Format(time.DateOnly))
			}
			equity += float64(lots) * account.SharesPerLot * close
		}
		points = append(points, Point{Timestamp: ts, Equity: equity})
	}

	stats := &Stats{
		FinalEquity: points[len(points)-1].Equity,
		HasTrades:   len(records) > 1,
	}

	// worst peak-to-trough ratio over the whole curve, first occurrence wins
	peak, peakAt := points[0].Equity, points[0].Timestamp
	for _, p := range points {
		if p.Equity > peak {
			peak, peakAt = p.Equity, p.Timestamp
			continue
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.Equity) / peak; dd > stats.MaxDrawdown {
			stats.MaxDrawdown = dd
			stats.DrawdownStart = peakAt
			stats.DrawdownEnd = p.Timestamp
		}
	}

	if stats.HasTrades {
		stats.Profit = stats.FinalEquity - points[0].Equity
		if capital != 0 {
			stats.Return = stats.Profit / capital
		}
		days := axis[len(axis)-1].Sub(axis[0]).Hours() / 24
		if days > 0 {
			stats.AnnualizedReturn = math.Pow(1+stats.Return, 365/days) - 1
		}
	}
	return stats, points, nil
}

// Meta carries the descriptive report fields not derivable from the curve.
type Meta struct {
	StrategyName        string
	StrategyDescription string
	Start, End          time.Time
	TradedCodes         []string
	Capital             float64
	FinalCash           float64
	FinalShares         map[string]int
}

// FormatSummary renders the human-readable report header: scope, traded
// instruments, holdings and the run statistics, two decimal places
// throughout.
func FormatSummary(stats *Stats, meta Meta) string {
	var b strings.Builder

	title := " Backtest Report "
	pad := (72 - len(title)) / 2
	b.WriteString(strings.Repeat("=", pad) + title + strings.Repeat("=", 72-pad-len(title)) + "\n")

	fmt.Fprintf(&b, "Strategy:         %s\n", meta.StrategyName)
	if meta.StrategyDescription != "" {
		fmt.Fprintf(&b, "Description:      %s\n", meta.StrategyDescription)
	}
	fmt.Fprintf(&b, "Time scope:       %s to %s\n",
		meta.Start.Format(time.DateOnly), meta.End.Format(time.DateOnly))
	fmt.Fprintf(&b, "Traded:           %s\n", strings.Join(meta.TradedCodes, ", "))
	fmt.Fprintf(&b, "Initial capital:  %.2f\n", meta.Capital)
	fmt.Fprintf(&b, "Final cash:       %.2f\n", meta.FinalCash)

	if len(meta.FinalShares) > 0 {
		codes := make([]string, 0, len(meta.FinalShares))
		for code := range meta.FinalShares {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		b.WriteString("Final holdings:\n")
		for _, code := range codes {
			fmt.Fprintf(&b, "  %s: %d lot(s)\n", code, meta.FinalShares[code])
		}
	}

	if stats.HasTrades {
		fmt.Fprintf(&b, "Final equity:     %.2f\n", stats.FinalEquity)
		fmt.Fprintf(&b, "Profit:           %.2f\n", stats.Profit)
		fmt.Fprintf(&b, "Return:           %.2f%%\n", stats.Return*100)
		fmt.Fprintf(&b, "Annualized:       %.2f%%\n", stats.AnnualizedReturn*100)
		fmt.Fprintf(&b, "Max drawdown:     %.2f%% (%s to %s)\n",
			stats.MaxDrawdown*100,
			stats.DrawdownStart.Format(time.DateOnly),
			stats.DrawdownEnd.Format(time.DateOnly))
	} else {
		b.WriteString("No transactions were executed.\n")
	}
	fmt.Fprintf(&b, "Total commission: %.2f\n", stats.TotalCommission)
	fmt.Fprintf(&b, "Total stamp tax:  %.2f\n", stats.TotalStampTax)
	b.WriteString(strings.Repeat("=", 72) + "\n")
	return b.String()
}
