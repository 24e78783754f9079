package strategy

import (
	"fmt"
	"math"
	"time"

	"stockbt/internal/account"
	"stockbt/internal/indicator"
	"stockbt/internal/series"
)

// MACDCross trades the DIF/DEA crossover: buy when DIF crosses above DEA,
// liquidate on the cross back down.
type MACDCross struct {
	fast   int
	slow   int
	signal int
}

func NewMACDCross(fast, slow, signal int) *MACDCross {
	return &MACDCross{fast: fast, slow: slow, signal: signal}
}

func (s *MACDCross) Name() string { return "macdcross" }

func (s *MACDCross) Description() string {
	return fmt.Sprintf("MACD DIF/DEA crossover (%d,%d,%d)", s.fast, s.slow, s.signal)
}

func (s *MACDCross) ComputeTradingPoints(t Trader, stocks map[string]*Stock, axis []time.Time, lookback int) error {
	type track struct {
		sr       *series.Series
		dif, dea []float64
		idx      map[int64]int
	}
	codes := sortedCodes(stocks)
	tracks := make(map[string]*track, len(stocks))
	for _, code := range codes {
		sr := stocks[code].Series[stocks[code].Spec.Period]
		if sr == nil {
			continue
		}
		dif, dea, _ := indicator.CalculateMACD(sr.Closes(), s.fast, s.slow, s.signal)
		if dif == nil {
			continue
		}
		tracks[code] = &track{sr: sr, dif: dif, dea: dea, idx: barIndex(sr)}
	}

	// Warm-up bars feed the indicator only; orders are placed on axis
	// timestamps.
	for _, ts := range axis {
		for _, code := range codes {
			tr, ok := tracks[code]
			if !ok {
				continue
			}
			i, ok := tr.idx[ts.UnixNano()]
			if !ok || i == 0 || math.IsNaN(tr.dea[i]) || math.IsNaN(tr.dea[i-1]) {
				continue
			}
			price := tr.sr.Bars[i].Close

			crossUp := tr.dif[i-1] <= tr.dea[i-1] && tr.dif[i] > tr.dea[i]
			crossDown := tr.dif[i-1] >= tr.dea[i-1] && tr.dif[i] < tr.dea[i]

			switch {
			case crossUp && t.Cash() >= price*account.SharesPerLot:
				if _, _, _, err := t.BuyByRatio(code, price, ts, 1); err != nil {
					return err
				}
			case crossDown && t.Shares()[code] > 0:
				if _, _, err := t.Sell(code, price, ts, t.Shares()[code]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
