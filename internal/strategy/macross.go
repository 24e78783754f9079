package strategy

import (
	"fmt"
	"math"
	"time"

	"stockbt/internal/account"
	"stockbt/internal/indicator"
	"stockbt/internal/series"
)

// MACross trades the dual moving-average crossover: buy when the fast SMA
// crosses above the slow one, liquidate when it crosses back below.
type MACross struct {
	fast int
	slow int
}

func NewMACross(fast, slow int) *MACross {
	return &MACross{fast: fast, slow: slow}
}

func (s *MACross) Name() string { return "macross" }

func (s *MACross) Description() string {
	return fmt.Sprintf("dual moving average crossover (SMA%d/SMA%d)", s.fast, s.slow)
}

func (s *MACross) ComputeTradingPoints(t Trader, stocks map[string]*Stock, axis []time.Time, lookback int) error {
	type track struct {
		sr         *series.Series
		fast, slow []float64
		idx        map[int64]int
	}
	codes := sortedCodes(stocks)
	tracks := make(map[string]*track, len(stocks))
	for _, code := range codes {
		sr := stocks[code].Series[stocks[code].Spec.Period]
		if sr == nil {
			continue
		}
		closes := sr.Closes()
		fast := indicator.CalculateSMA(closes, s.fast)
		slow := indicator.CalculateSMA(closes, s.slow)
		if fast == nil || slow == nil {
			continue
		}
		tracks[code] = &track{sr: sr, fast: fast, slow: slow, idx: barIndex(sr)}
	}

	// The indicators see the lookback bars; orders are only placed on axis
	// timestamps, never inside the warm-up region.
	for _, ts := range axis {
		for _, code := range codes {
			tr, ok := tracks[code]
			if !ok {
				continue
			}
			i, ok := tr.idx[ts.UnixNano()]
			if !ok || i == 0 || math.IsNaN(tr.slow[i]) || math.IsNaN(tr.slow[i-1]) {
				continue
			}
			price := tr.sr.Bars[i].Close

			goldenCross := tr.fast[i-1] <= tr.slow[i-1] && tr.fast[i] > tr.slow[i]
			deathCross := tr.fast[i-1] >= tr.slow[i-1] && tr.fast[i] < tr.slow[i]

			switch {
			case goldenCross && t.Cash() >= price*account.SharesPerLot:
				if _, _, _, err := t.BuyByRatio(code, price, ts, 1); err != nil {
					return err
				}
			case deathCross && t.Shares()[code] > 0:
				if _, _, err := t.Sell(code, price, ts, t.Shares()[code]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
