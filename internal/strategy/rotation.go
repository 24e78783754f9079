package strategy

import (
	"fmt"
	"sort"
	"time"

	"stockbt/internal/account"
	"stockbt/internal/series"
)

// Rotation rebalances at each month boundary into the instrument with the
// strongest trailing momentum: everything else is liquidated, then the
// winner is bought with all available cash.
type Rotation struct {
	momentum int // trailing bars used to rank instruments
}

func NewRotation(momentum int) *Rotation {
	return &Rotation{momentum: momentum}
}

func (s *Rotation) Name() string { return "rotation" }

func (s *Rotation) Description() string {
	return fmt.Sprintf("monthly rotation into the strongest instrument (%d-bar momentum)", s.momentum)
}

func (s *Rotation) ComputeTradingPoints(t Trader, stocks map[string]*Stock, axis []time.Time, lookback int) error {
	for i := 1; i < len(axis); i++ {
		ts := axis[i]
		if ts.Month() == axis[i-1].Month() {
			continue
		}

		// codes are ranked in lexicographic order with a strict comparison,
		// so a momentum tie always resolves to the first code
		winner, winnerPrice, best := "", 0.0, 0.0
		for _, code := range sortedCodes(stocks) {
			stock := stocks[code]
			sr := stock.Series[stock.Spec.Period]
			if sr == nil {
				continue
			}
			momentum, price, ok := trailingMomentum(sr.Bars, ts, s.momentum)
			if !ok {
				continue
			}
			if winner == "" || momentum > best {
				winner, winnerPrice, best = code, price, momentum
			}
		}
		if winner == "" || best <= 0 {
			continue
		}

		// liquidate everything that is not the winner
		shares := t.Shares()
		held := make([]string, 0, len(shares))
		for code := range shares {
			held = append(held, code)
		}
		sort.Strings(held)
		for _, code := range held {
			lots := shares[code]
			if code == winner || lots == 0 {
				continue
			}
			stock, ok := stocks[code]
			if !ok {
				continue
			}
			price, ok := stock.CloseAt(stock.Spec.Period, ts)
			if !ok || price <= 0 {
				continue
			}
			if _, _, err := t.Sell(code, price, ts, lots); err != nil {
				return err
			}
		}

		if t.Cash() >= winnerPrice*account.SharesPerLot {
			if _, _, _, err := t.BuyByRatio(winner, winnerPrice, ts, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// trailingMomentum returns the fractional price change over the window bars
// ending at the last bar at or before ts, along with that bar's close.
func trailingMomentum(bars []series.Bar, ts time.Time, window int) (momentum, price float64, ok bool) {
	last := -1
	for i := len(bars) - 1; i >= 0; i-- {
		if !bars[i].Timestamp.After(ts) {
			last = i
			break
		}
	}
	if last < window {
		return 0, 0, false
	}
	base := bars[last-window].Close
	if base <= 0 {
		return 0, 0, false
	}
	return (bars[last].Close - base) / base, bars[last].Close, true
}
