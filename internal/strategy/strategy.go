// Package strategy defines the contract between the backtest host and
// trading strategies, plus the built-in strategy implementations and a
// Registry for lookup by name.
package strategy

import (
	"fmt"
	"sort"
	"time"

	"stockbt/internal/instrument"
	"stockbt/internal/series"
)

// Stock is everything the host loaded for one instrument: the authoritative
// bar series per period plus the synthesized missing-bar side table aligned
// to the reference axis.
type Stock struct {
	Spec    instrument.Spec
	Series  map[instrument.Period]*series.Series
	Missing map[instrument.Period]*series.Series
}

// CloseAt returns the close price of code's bar at t for the given period,
// falling back to the synthesized missing bar when the real bar is absent.
func (s *Stock) CloseAt(period instrument.Period, t time.Time) (float64, bool) {
	if sr, ok := s.Series[period]; ok {
		if b, ok := sr.At(t); ok {
			return b.Close, true
		}
	}
	if sr, ok := s.Missing[period]; ok {
		if b, ok := sr.At(t); ok {
			return b.Close, true
		}
	}
	return 0, false
}

// Trader is the order surface a strategy trades through. All methods mirror
// the ledger: buys return the executed lot quantity, a holdings snapshot and
// the cash balance after the order.
type Trader interface {
	BuyByRatio(code string, price float64, ts time.Time, ratio float64) (int, map[string]int, float64, error)
	BuyByPosition(code string, price float64, ts time.Time, position float64) (int, map[string]int, float64, error)
	BuyByCash(code string, price float64, ts time.Time, cash float64) (int, map[string]int, float64, error)
	Sell(code string, price float64, ts time.Time, quantity int) (map[string]int, float64, error)
	SellByRatio(code string, price float64, ts time.Time, ratio float64) (map[string]int, float64, error)
	Cash() float64
	Capital() float64
	Shares() map[string]int
}

// Strategy decides trades over the full loaded history in a single call,
// side-effecting only through the Trader. Returning a ledger error aborts
// the run; ordinary early exits (trade caps and the like) use plain loop
// control, not errors.
type Strategy interface {
	Name() string
	Description() string
	ComputeTradingPoints(t Trader, stocks map[string]*Stock, axis []time.Time, lookback int) error
}

// sortedCodes returns the stock codes in lexicographic order so that replay
// over a map of stocks is deterministic.
func sortedCodes(stocks map[string]*Stock) []string {
	codes := make([]string, 0, len(stocks))
	for code := range stocks {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// barIndex maps each bar timestamp to its position in the series.
func barIndex(sr *series.Series) map[int64]int {
	idx := make(map[int64]int, len(sr.Bars))
	for i, b := range sr.Bars {
		idx[b.Timestamp.UnixNano()] = i
	}
	return idx
}

// Registry holds a named collection of strategies for lookup and
// enumeration.
type Registry struct {
	strategies map[string]Strategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds a strategy, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns the sorted names of all registered strategies.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtins returns a registry with the built-in strategies under default
// parameters.
func Builtins() *Registry {
	r := NewRegistry()
	r.Register(NewMACross(5, 20))
	r.Register(NewMACDCross(12, 26, 9))
	r.Register(NewExtremum(20, 10))
	r.Register(NewRotation(20))
	return r
}

// New resolves a built-in strategy by name.
func New(name string) (Strategy, error) {
	s, ok := Builtins().Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (have %v)", name, Builtins().List())
	}
	return s, nil
}
