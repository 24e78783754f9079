package engine

import (
	"time"

	"stockbt/internal/account"
	"stockbt/internal/report"
)

// tracingTrader is the order surface handed to strategies: it delegates to
// the ledger and streams a blotter line into the report body for every
// executed order.
type tracingTrader struct {
	acct    *account.Account
	blotter *report.Writer
}

func (t *tracingTrader) trace(format string, args ...any) {
	if t.blotter == nil {
		return
	}
	if err := t.blotter.Printf(format, args...); err != nil {
		// a broken report file should not stop the simulation
		return
	}
}

func (t *tracingTrader) traceBuy(kind, code string, price float64, ts time.Time, quantity int, cash float64) {
	t.trace("%s  buy (%s) %s  %d lot(s) at %.2f, cash %.2f\n",
		ts.Format(time.DateOnly), kind, code, quantity, price, cash)
}

func (t *tracingTrader) BuyByRatio(code string, price float64, ts time.Time, ratio float64) (int, map[string]int, float64, error) {
	quantity, shares, cash, err := t.acct.BuyByRatio(code, price, ts, ratio)
	if err == nil {
		t.traceBuy("ratio", code, price, ts, quantity, cash)
	}
	return quantity, shares, cash, err
}

func (t *tracingTrader) BuyByPosition(code string, price float64, ts time.Time, position float64) (int, map[string]int, float64, error) {
	quantity, shares, cash, err := t.acct.BuyByPosition(code, price, ts, position)
	if err == nil {
		t.traceBuy("position", code, price, ts, quantity, cash)
	}
	return quantity, shares, cash, err
}

func (t *tracingTrader) BuyByCash(code string, price float64, ts time.Time, cashAmount float64) (int, map[string]int, float64, error) {
	quantity, shares, cash, err := t.acct.BuyByCash(code, price, ts, cashAmount)
	if err == nil {
		t.traceBuy("cash", code, price, ts, quantity, cash)
	}
	return quantity, shares, cash, err
}

func (t *tracingTrader) Sell(code string, price float64, ts time.Time, quantity int) (map[string]int, float64, error) {
	shares, cash, err := t.acct.Sell(code, price, ts, quantity)
	if err == nil {
		t.trace("%s  sell %s  %d lot(s) at %.2f, cash %.2f\n",
			ts.Format(time.DateOnly), code, quantity, price, cash)
	}
	return shares, cash, err
}

func (t *tracingTrader) SellByRatio(code string, price float64, ts time.Time, ratio float64) (map[string]int, float64, error) {
	before := t.acct.Shares()[code]
	shares, cash, err := t.acct.SellByRatio(code, price, ts, ratio)
	if err == nil {
		t.trace("%s  sell %s  %d lot(s) at %.2f, cash %.2f\n",
			ts.Format(time.DateOnly), code, before-shares[code], price, cash)
	}
	return shares, cash, err
}

func (t *tracingTrader) Cash() float64          { return t.acct.Cash() }
func (t *tracingTrader) Capital() float64       { return t.acct.Capital() }
func (t *tracingTrader) Shares() map[string]int { return t.acct.Shares() }
