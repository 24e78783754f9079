// Package account is the order-execution ledger: cash, per-instrument lot
// holdings, commission and stamp tax, and the transaction record trail that
// reporting replays.
package account

import (
	"math"
	"time"
)

// SharesPerLot is the board-lot size: all quantities are whole lots of 100
// shares.
const SharesPerLot = 100

// Defaults applied by config when settings omit the corresponding keys.
const (
	DefaultCapital        = 10000.0
	DefaultStampTaxRate   = 0.001
	DefaultCommissionRate = 2.5e-4
	DefaultMinCommission  = 5.0
)

// Record is an immutable snapshot appended after every executed order: the
// cash balance and lot holdings right after the transaction. The first
// record is written when the account opens. Records are never removed.
type Record struct {
	Timestamp time.Time
	Cash      float64
	Shares    map[string]int
}

// Account holds the mutable simulation state. Every operation is atomic: it
// either fully applies or leaves the account untouched.
type Account struct {
	capital         float64
	cash            float64
	shares          map[string]int // lots per instrument code
	records         []Record
	tradedCodes     []string
	commissionRate  float64
	stampTaxRate    float64
	minCommission   float64
	totalCommission float64
	totalStampTax   float64
}

// New opens an account with the given capital and cost parameters and writes
// the opening record at openedAt.
func New(capital, commissionRate, stampTaxRate, minCommission float64, openedAt time.Time) *Account {
	a := &Account{
		capital:        capital,
		cash:           capital,
		shares:         make(map[string]int),
		commissionRate: commissionRate,
		stampTaxRate:   stampTaxRate,
		minCommission:  minCommission,
	}
	a.appendRecord(openedAt)
	return a
}

func (a *Account) appendRecord(ts time.Time) {
	a.records = append(a.records, Record{
		Timestamp: ts,
		Cash:      a.cash,
		Shares:    a.sharesCopy(),
	})
}

func (a *Account) sharesCopy() map[string]int {
	cp := make(map[string]int, len(a.shares))
	for code, lots := range a.shares {
		cp[code] = lots
	}
	return cp
}

// commission computes the charge on a traded value: rate times value with a
// fixed currency floor, skipped entirely when the rate is zero.
func (a *Account) commission(value float64) float64 {
	if a.commissionRate == 0 {
		return 0
	}
	return math.Max(value*a.commissionRate, a.minCommission)
}

func (a *Account) noteTraded(code string) {
	for _, c := range a.tradedCodes {
		if c == code {
			return
		}
	}
	a.tradedCodes = append(a.tradedCodes, code)
}

// buy executes the shared buy algorithm with an explicit bid amount.
func (a *Account) buy(code string, price float64, ts time.Time, bid float64) (int, map[string]int, float64, error) {
	lotValue := SharesPerLot * price
	if bid < lotValue {
		return 0, nil, 0, &BidTooLowError{Code: code, Bid: bid, LotValue: lotValue}
	}
	if a.cash < lotValue {
		return 0, nil, 0, &InsufficientFundsError{Code: code, Cash: a.cash, LotValue: lotValue}
	}

	quantity := int(math.Floor(bid / lotValue))
	// floor can leave needCash a hair over cash even though bid <= cash held
	for quantity > 0 && float64(quantity)*lotValue > a.cash {
		quantity--
	}
	if quantity == 0 {
		return 0, nil, 0, &InsufficientFundsError{Code: code, Cash: a.cash, LotValue: lotValue}
	}

	needCash := float64(quantity) * lotValue
	a.cash -= needCash
	a.shares[code] += quantity

	fee := a.commission(needCash)
	a.cash -= fee
	a.totalCommission += fee

	a.noteTraded(code)
	a.appendRecord(ts)
	return quantity, a.sharesCopy(), a.cash, nil
}

// BuyByRatio bids ratio * current cash.
func (a *Account) BuyByRatio(code string, price float64, ts time.Time, ratio float64) (int, map[string]int, float64, error) {
	return a.buy(code, price, ts, ratio*a.cash)
}

// BuyByPosition bids position * initial capital.
func (a *Account) BuyByPosition(code string, price float64, ts time.Time, position float64) (int, map[string]int, float64, error) {
	return a.buy(code, price, ts, position*a.capital)
}

// BuyByCash bids a literal cash amount.
func (a *Account) BuyByCash(code string, price float64, ts time.Time, cash float64) (int, map[string]int, float64, error) {
	return a.buy(code, price, ts, cash)
}

// Sell disposes quantity lots of code at price. Income is credited, then
// commission and sell-side stamp tax are charged.
func (a *Account) Sell(code string, price float64, ts time.Time, quantity int) (map[string]int, float64, error) {
	holding := a.shares[code]
	switch {
	case price <= 0:
		return nil, 0, &SellError{Code: code, Quantity: quantity, Holding: holding, Reason: "price must be positive"}
	case quantity < 1:
		return nil, 0, &SellError{Code: code, Quantity: quantity, Holding: holding, Reason: "quantity must be at least one lot"}
	case holding == 0:
		return nil, 0, &SellError{Code: code, Quantity: quantity, Holding: holding, Reason: "no holding"}
	case quantity > holding:
		return nil, 0, &SellError{Code: code, Quantity: quantity, Holding: holding, Reason: "over-sell"}
	}

	income := float64(quantity) * price * SharesPerLot
	a.cash += income
	if quantity == holding {
		delete(a.shares, code)
	} else {
		a.shares[code] = holding - quantity
	}

	fee := a.commission(income)
	a.cash -= fee
	a.totalCommission += fee

	tax := income * a.stampTaxRate
	a.cash -= tax
	a.totalStampTax += tax

	a.noteTraded(code)
	a.appendRecord(ts)
	return a.sharesCopy(), a.cash, nil
}

// SellByRatio sells the given fraction of the current holding, rounded down
// to whole lots. A fraction that resolves below one lot cannot be executed.
func (a *Account) SellByRatio(code string, price float64, ts time.Time, ratio float64) (map[string]int, float64, error) {
	holding := a.shares[code]
	if holding == 0 {
		return nil, 0, &SellError{Code: code, Holding: holding, Reason: "no holding"}
	}
	if ratio <= 0 || ratio > 1 {
		return nil, 0, &SellError{Code: code, Holding: holding, Reason: "ratio must be in (0, 1]"}
	}

	quantity := int(math.Floor(float64(holding) * ratio))
	if quantity < 1 {
		return nil, 0, &CanNotSplitShareError{Code: code, Holding: holding, Ratio: ratio}
	}
	return a.Sell(code, price, ts, quantity)
}

// Cash returns the current cash balance.
func (a *Account) Cash() float64 { return a.cash }

// Capital returns the initial capital.
func (a *Account) Capital() float64 { return a.capital }

// Shares returns a copy of the current lot holdings.
func (a *Account) Shares() map[string]int { return a.sharesCopy() }

// Records returns the transaction trail in execution order. Each record's
// shares map is an independent snapshot.
func (a *Account) Records() []Record {
	return append([]Record(nil), a.records...)
}

// TradedCodes lists the instruments traded, in first-trade order.
func (a *Account) TradedCodes() []string {
	return append([]string(nil), a.tradedCodes...)
}

// TotalCommission returns the cumulative commission charged.
func (a *Account) TotalCommission() float64 { return a.totalCommission }

// TotalStampTax returns the cumulative stamp tax charged.
func (a *Account) TotalStampTax() float64 { return a.totalStampTax }
