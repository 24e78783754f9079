package strategy

import (
	"fmt"
	"time"

	"stockbt/internal/account"
	"stockbt/internal/series"
)

// Extremum is an n-day breakout strategy: buy when the close exceeds the
// highest high of the previous entry window, liquidate when it falls under
// the lowest low of the previous exit window.
type Extremum struct {
	entry int
	exit  int
}

func NewExtremum(entry, exit int) *Extremum {
	return &Extremum{entry: entry, exit: exit}
}

func (s *Extremum) Name() string { return "extremum" }

func (s *Extremum) Description() string {
	return fmt.Sprintf("%d-day breakout entry, %d-day breakdown exit", s.entry, s.exit)
}

func (s *Extremum) ComputeTradingPoints(t Trader, stocks map[string]*Stock, axis []time.Time, lookback int) error {
	type track struct {
		sr  *series.Series
		idx map[int64]int
	}
	codes := sortedCodes(stocks)
	tracks := make(map[string]*track, len(stocks))
	for _, code := range codes {
		sr := stocks[code].Series[stocks[code].Spec.Period]
		if sr == nil || len(sr.Bars) <= s.entry {
			continue
		}
		tracks[code] = &track{sr: sr, idx: barIndex(sr)}
	}

	// Extremes are scanned over the trailing bars, lookback included; orders
	// are placed on axis timestamps only.
	for _, ts := range axis {
		for _, code := range codes {
			tr, ok := tracks[code]
			if !ok {
				continue
			}
			i, ok := tr.idx[ts.UnixNano()]
			if !ok || i < s.entry {
				continue
			}
			bars := tr.sr.Bars
			price := bars[i].Close

			highest := bars[i-s.entry].High
			for j := i - s.entry + 1; j < i; j++ {
				if bars[j].High > highest {
					highest = bars[j].High
				}
			}

			exitFrom := i - s.exit
			if exitFrom < 0 {
				exitFrom = 0
			}
			lowest := bars[exitFrom].Low
			for j := exitFrom + 1; j < i; j++ {
				if bars[j].Low < lowest {
					lowest = bars[j].Low
				}
			}

			switch {
			case price > highest && t.Shares()[code] == 0 && t.Cash() >= price*account.SharesPerLot:
				if _, _, _, err := t.BuyByRatio(code, price, ts, 1); err != nil {
					return err
				}
			case price < lowest && t.Shares()[code] > 0:
				if _, _, err := t.Sell(code, price, ts, t.Shares()[code]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
