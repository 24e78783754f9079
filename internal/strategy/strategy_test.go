package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbt/internal/account"
	"stockbt/internal/instrument"
	"stockbt/internal/series"
)

func day(d int) time.Time {
	return time.Date(2019, time.January, d, 0, 0, 0, 0, time.UTC)
}

func stockFromCloses(t *testing.T, raw string, closes []float64) *Stock {
	t.Helper()
	spec, err := instrument.ParseSpec(raw)
	require.NoError(t, err)

	bars := make([]series.Bar, len(closes))
	for i, c := range closes {
		bars[i] = series.Bar{
			Timestamp: day(i + 1),
			Open:      c, Close: c, High: c, Low: c,
			Volume: 1000,
		}
	}
	return &Stock{
		Spec:    spec,
		Series:  map[instrument.Period]*series.Series{spec.Period: {Spec: spec, Bars: bars}},
		Missing: map[instrument.Period]*series.Series{},
	}
}

func axisFor(stocks ...*Stock) []time.Time {
	longest := 0
	for _, s := range stocks {
		if n := len(s.Series[s.Spec.Period].Bars); n > longest {
			longest = n
		}
	}
	axis := make([]time.Time, longest)
	for i := range axis {
		axis[i] = day(i + 1)
	}
	return axis
}

func TestRegistry(t *testing.T) {
	r := Builtins()
	assert.Equal(t, []string{"extremum", "macdcross", "macross", "rotation"}, r.List())

	s, ok := r.Get("macross")
	require.True(t, ok)
	assert.Equal(t, "macross", s.Name())
	assert.NotEmpty(t, s.Description())

	_, ok = r.Get("nope")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	s, err := New("macdcross")
	require.NoError(t, err)
	assert.Equal(t, "macdcross", s.Name())

	_, err = New("unknown")
	assert.Error(t, err)
}

func TestMACrossTradesOnCrossovers(t *testing.T) {
	closes := []float64{10, 9, 8, 7, 8, 9, 10, 11, 12, 9, 7, 6, 5}
	stock := stockFromCloses(t, "000001.sz-1Day", closes)
	stocks := map[string]*Stock{"000001": stock}

	acct := account.New(10000, 0, 0, 5.0, day(1))
	strat := NewMACross(2, 3)

	err := strat.ComputeTradingPoints(acct, stocks, axisFor(stock), 0)
	require.NoError(t, err)

	records := acct.Records()
	require.Len(t, records, 3) // opening record, one buy, one sell

	// golden cross at the 9.00 close buys 11 lots with the full cash
	buy := records[1]
	assert.Equal(t, day(6), buy.Timestamp)
	assert.Equal(t, 11, buy.Shares["000001"])
	assert.InDelta(t, 100.0, buy.Cash, 1e-9)

	// death cross back at 9.00 liquidates, restoring the capital
	sell := records[2]
	assert.Equal(t, day(10), sell.Timestamp)
	assert.NotContains(t, sell.Shares, "000001")
	assert.InDelta(t, 10000.0, sell.Cash, 1e-9)
}

func TestMACrossSkipsShortSeries(t *testing.T) {
	stock := stockFromCloses(t, "000001.sz-1Day", []float64{10, 11})
	acct := account.New(10000, 0, 0, 5.0, day(1))

	err := NewMACross(5, 20).ComputeTradingPoints(acct, map[string]*Stock{"000001": stock}, axisFor(stock), 0)
	require.NoError(t, err)
	assert.Len(t, acct.Records(), 1)
}

func TestMACrossIgnoresCrossesInsideWarmup(t *testing.T) {
	// the golden cross at day 6 falls inside the warm-up bars and must not
	// trade; the one at day 14 is on the axis and must
	closes := []float64{10, 9, 8, 7, 8, 9, 10, 11, 12, 9, 7, 6, 7, 9, 11}
	stock := stockFromCloses(t, "000001.sz-1Day", closes)
	stock.Series[stock.Spec.Period].ActualLookback = 7

	axis := make([]time.Time, 8)
	for i := range axis {
		axis[i] = day(i + 8)
	}

	acct := account.New(10000, 0, 0, 5.0, axis[0])
	err := NewMACross(2, 3).ComputeTradingPoints(acct, map[string]*Stock{"000001": stock}, axis, 7)
	require.NoError(t, err)

	records := acct.Records()
	require.Len(t, records, 2)
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].Timestamp.Before(records[i-1].Timestamp))
	}
	assert.False(t, records[0].Timestamp.Before(axis[0]))

	buy := records[1]
	assert.Equal(t, day(14), buy.Timestamp)
	assert.Equal(t, 11, buy.Shares["000001"])
	assert.InDelta(t, 100.0, buy.Cash, 1e-9)
}

func TestMACrossTwoStocksKeepsRecordsOrdered(t *testing.T) {
	closes := []float64{10, 9, 8, 7, 8, 9, 10, 11, 12, 9, 7, 6, 5}
	first := stockFromCloses(t, "000001.sz-1Day", closes)
	second := stockFromCloses(t, "600004.byjc-1Day", closes)
	stocks := map[string]*Stock{"000001": first, "600004": second}

	acct := account.New(10000, 0, 0, 5.0, day(1))
	err := NewMACross(2, 3).ComputeTradingPoints(acct, stocks, axisFor(first, second), 0)
	require.NoError(t, err)

	records := acct.Records()
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].Timestamp.Before(records[i-1].Timestamp),
			"record %d at %s precedes record %d", i, records[i].Timestamp, i-1)
	}

	// the first code in order takes the golden cross; the second is left
	// without cash for a lot and never trades
	require.Len(t, records, 3)
	assert.Equal(t, []string{"000001"}, acct.TradedCodes())
	assert.Empty(t, acct.Shares())
	assert.InDelta(t, 10000.0, acct.Cash(), 1e-9)
}

func TestStrategiesTradeOnlyOnAxisTimestamps(t *testing.T) {
	pattern := []float64{10, 11, 12, 11, 10, 9}
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = pattern[i%len(pattern)]
	}
	stock := stockFromCloses(t, "600004.byjc-1Day", closes)
	stock.Series[stock.Spec.Period].ActualLookback = 10
	stocks := map[string]*Stock{"600004": stock}

	axis := make([]time.Time, 20)
	for i := range axis {
		axis[i] = day(i + 11)
	}

	for _, strat := range []Strategy{NewMACross(2, 3), NewMACDCross(3, 6, 3), NewExtremum(3, 2)} {
		t.Run(strat.Name(), func(t *testing.T) {
			acct := account.New(10000, 0, 0, 5.0, axis[0])
			require.NoError(t, strat.ComputeTradingPoints(acct, stocks, axis, 10))

			records := acct.Records()
			for i, r := range records {
				assert.False(t, r.Timestamp.Before(axis[0]),
					"record %d at %s precedes the axis start", i, r.Timestamp)
				if i > 0 {
					assert.False(t, r.Timestamp.Before(records[i-1].Timestamp))
				}
			}
		})
	}
}

func TestExtremumBreakout(t *testing.T) {
	spec, err := instrument.ParseSpec("600004.byjc-1Day")
	require.NoError(t, err)

	type hlc struct{ high, low, close float64 }
	data := []hlc{
		{10, 9, 9.5},
		{10, 9, 9.5},
		{10, 9, 9.5},
		{11.2, 10, 11},   // close above the 3-bar high: entry
		{11, 10.5, 10.8}, // holds
		{10.5, 8.5, 8.8}, // close below the 2-bar low: exit
	}
	bars := make([]series.Bar, len(data))
	for i, d := range data {
		bars[i] = series.Bar{Timestamp: day(i + 1), Open: d.close, Close: d.close, High: d.high, Low: d.low}
	}
	stock := &Stock{
		Spec:    spec,
		Series:  map[instrument.Period]*series.Series{spec.Period: {Spec: spec, Bars: bars}},
		Missing: map[instrument.Period]*series.Series{},
	}

	acct := account.New(10000, 0, 0, 5.0, day(1))
	err = NewExtremum(3, 2).ComputeTradingPoints(acct, map[string]*Stock{"600004": stock}, axisFor(stock), 0)
	require.NoError(t, err)

	records := acct.Records()
	require.Len(t, records, 3)
	assert.Equal(t, 9, records[1].Shares["600004"]) // floor(10000 / 1100)
	assert.NotContains(t, records[2].Shares, "600004")
	assert.InDelta(t, 100+9*880.0, records[2].Cash, 1e-9)
}

func TestRotationPicksStrongestAtMonthBoundary(t *testing.T) {
	mkStock := func(raw string, closes []float64, from time.Time) *Stock {
		spec, err := instrument.ParseSpec(raw)
		require.NoError(t, err)
		bars := make([]series.Bar, len(closes))
		for i, c := range closes {
			bars[i] = series.Bar{Timestamp: from.AddDate(0, 0, i), Open: c, Close: c, High: c, Low: c}
		}
		return &Stock{
			Spec:    spec,
			Series:  map[instrument.Period]*series.Series{spec.Period: {Spec: spec, Bars: bars}},
			Missing: map[instrument.Period]*series.Series{},
		}
	}

	from := time.Date(2019, time.January, 28, 0, 0, 0, 0, time.UTC)
	slow := mkStock("000001.sz-1Day", []float64{10, 10.1, 10.2, 10.3, 10.4, 10.5}, from)
	fast := mkStock("600004.byjc-1Day", []float64{10, 10.5, 11, 11.5, 12, 12.5}, from)

	axis := make([]time.Time, 6)
	for i := range axis {
		axis[i] = from.AddDate(0, 0, i)
	}

	acct := account.New(10000, 0, 0, 5.0, axis[0])
	stocks := map[string]*Stock{"000001": slow, "600004": fast}

	err := NewRotation(2).ComputeTradingPoints(acct, stocks, axis, 0)
	require.NoError(t, err)

	// at the February boundary the faster mover is bought with all cash
	shares := acct.Shares()
	assert.Equal(t, 8, shares["600004"]) // floor(10000 / 1200)
	assert.NotContains(t, shares, "000001")
}

func TestRotationMomentumTiePicksFirstCode(t *testing.T) {
	mkStock := func(raw string, closes []float64, from time.Time) *Stock {
		spec, err := instrument.ParseSpec(raw)
		require.NoError(t, err)
		bars := make([]series.Bar, len(closes))
		for i, c := range closes {
			bars[i] = series.Bar{Timestamp: from.AddDate(0, 0, i), Open: c, Close: c, High: c, Low: c}
		}
		return &Stock{
			Spec:    spec,
			Series:  map[instrument.Period]*series.Series{spec.Period: {Spec: spec, Bars: bars}},
			Missing: map[instrument.Period]*series.Series{},
		}
	}

	from := time.Date(2019, time.January, 28, 0, 0, 0, 0, time.UTC)
	closes := []float64{10, 10.5, 11, 11.5, 12, 12.5}
	a := mkStock("000001.sz-1Day", closes, from)
	b := mkStock("600004.byjc-1Day", closes, from)

	axis := make([]time.Time, 6)
	for i := range axis {
		axis[i] = from.AddDate(0, 0, i)
	}

	acct := account.New(10000, 0, 0, 5.0, axis[0])
	stocks := map[string]*Stock{"000001": a, "600004": b}

	require.NoError(t, NewRotation(2).ComputeTradingPoints(acct, stocks, axis, 0))

	// identical momentum on both codes: the lexicographically first wins
	shares := acct.Shares()
	assert.Equal(t, 8, shares["000001"])
	assert.NotContains(t, shares, "600004")
}

func TestStockCloseAtFallsBackToMissing(t *testing.T) {
	spec, err := instrument.ParseSpec("000001.sz-1Day")
	require.NoError(t, err)

	real := &series.Series{Spec: spec, Bars: []series.Bar{{Timestamp: day(1), Close: 10}}}
	missing := &series.Series{Spec: spec, Bars: []series.Bar{{Timestamp: day(2), Close: 10}}}
	stock := &Stock{
		Spec:    spec,
		Series:  map[instrument.Period]*series.Series{spec.Period: real},
		Missing: map[instrument.Period]*series.Series{spec.Period: missing},
	}

	c, ok := stock.CloseAt(spec.Period, day(1))
	require.True(t, ok)
	assert.Equal(t, 10.0, c)

	c, ok = stock.CloseAt(spec.Period, day(2))
	require.True(t, ok)
	assert.Equal(t, 10.0, c)

	_, ok = stock.CloseAt(spec.Period, day(3))
	assert.False(t, ok)
}
