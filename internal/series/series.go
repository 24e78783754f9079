// Package series holds candlestick bar data for one (instrument, period)
// pair and the missing-bar synthesis used to align instruments to a shared
// trading calendar.
package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"stockbt/internal/instrument"
)

// Bar is a single candlestick: one OHLCV record for a fixed time period.
// Turnover is optional and zero when the dataset does not carry it.
type Bar struct {
	Timestamp time.Time
	Open      float64
	Close     float64
	High      float64
	Low       float64
	Volume    float64
	Turnover  float64
}

// Validate checks a bar for internally consistent prices. Synthetic zero
// bars (produced before any history exists) are allowed.
func (b Bar) Validate() error {
	if b.Timestamp.IsZero() {
		return errors.New("bar timestamp is zero")
	}
	if b.Open == 0 && b.Close == 0 && b.High == 0 && b.Low == 0 {
		return nil
	}
	if b.Open <= 0 || b.Close <= 0 || b.High <= 0 || b.Low <= 0 {
		return errors.New("bar prices must be positive")
	}
	if b.High < b.Low {
		return errors.New("bar high cannot be less than low")
	}
	if b.Volume < 0 {
		return errors.New("bar volume cannot be negative")
	}
	return nil
}

// Series is an ordered sequence of bars for one (instrument, period) pair.
// Bars cover [start - lookback, end]; ActualLookback counts how many bars
// precede the requested window and may be smaller than the lookback the
// caller asked for when history does not reach far enough back.
type Series struct {
	Spec           instrument.Spec
	Bars           []Bar
	ActualLookback int
}

// Validate checks ascending timestamp order and uniqueness. A duplicate
// timestamp is data corruption, not a recoverable condition.
func (s *Series) Validate() error {
	for i := 1; i < len(s.Bars); i++ {
		prev, cur := s.Bars[i-1].Timestamp, s.Bars[i].Timestamp
		if cur.Equal(prev) {
			return fmt.Errorf("series %s has duplicate timestamp %s", s.Spec, cur.Format(time.DateTime))
		}
		if cur.Before(prev) {
			return fmt.Errorf("series %s is not sorted at %s", s.Spec, cur.Format(time.DateTime))
		}
	}
	return nil
}

// At returns the bar with exactly timestamp t.
func (s *Series) At(t time.Time) (Bar, bool) {
	i := sort.Search(len(s.Bars), func(i int) bool {
		return !s.Bars[i].Timestamp.Before(t)
	})
	if i < len(s.Bars) && s.Bars[i].Timestamp.Equal(t) {
		return s.Bars[i], true
	}
	return Bar{}, false
}

// First returns the earliest bar.
func (s *Series) First() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[0], true
}

// Last returns the latest bar.
func (s *Series) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Closes returns the close price of every bar, lookback portion included.
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Timestamps returns the timestamp of every bar, lookback portion included.
func (s *Series) Timestamps() []time.Time {
	ts := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		ts[i] = b.Timestamp
	}
	return ts
}

// Sort orders bars ascending by timestamp in place.
func Sort(bars []Bar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
}

// FillMissing synthesizes bars for every axis timestamp absent from s: a
// copy of the last preceding real bar, or an all-zero bar when no real bar
// exists yet. The result is a separate side table; s is never modified.
// This distinguishes a suspended trading day from genuine absence of data.
func FillMissing(s *Series, axis []time.Time) *Series {
	missing := &Series{Spec: s.Spec}

	var last Bar
	haveLast := false
	for _, t := range axis {
		if b, ok := s.At(t); ok {
			last = b
			haveLast = true
			continue
		}
		synth := Bar{Timestamp: t}
		if haveLast {
			synth = last
			synth.Timestamp = t
		}
		missing.Bars = append(missing.Bars, synth)
	}
	return missing
}
