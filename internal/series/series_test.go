package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbt/internal/instrument"
)

func day(d int) time.Time {
	return time.Date(2019, time.January, d, 0, 0, 0, 0, time.UTC)
}

func testSpec(t *testing.T) instrument.Spec {
	t.Helper()
	spec, err := instrument.ParseSpec("510300.300etf-1Day")
	require.NoError(t, err)
	return spec
}

func TestSeriesValidate(t *testing.T) {
	spec := testSpec(t)

	tests := []struct {
		name    string
		bars    []Bar
		wantErr bool
	}{
		{
			name: "sorted unique",
			bars: []Bar{
				{Timestamp: day(1), Open: 1, Close: 1, High: 1, Low: 1},
				{Timestamp: day(2), Open: 1, Close: 1, High: 1, Low: 1},
			},
		},
		{name: "empty", bars: nil},
		{
			name: "duplicate timestamp",
			bars: []Bar{
				{Timestamp: day(1), Open: 1, Close: 1, High: 1, Low: 1},
				{Timestamp: day(1), Open: 2, Close: 2, High: 2, Low: 2},
			},
			wantErr: true,
		},
		{
			name: "out of order",
			bars: []Bar{
				{Timestamp: day(2), Open: 1, Close: 1, High: 1, Low: 1},
				{Timestamp: day(1), Open: 1, Close: 1, High: 1, Low: 1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Series{Spec: spec, Bars: tt.bars}
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSeriesAt(t *testing.T) {
	s := &Series{
		Spec: testSpec(t),
		Bars: []Bar{
			{Timestamp: day(1), Close: 10},
			{Timestamp: day(3), Close: 11},
			{Timestamp: day(5), Close: 12},
		},
	}

	b, ok := s.At(day(3))
	require.True(t, ok)
	assert.Equal(t, 11.0, b.Close)

	_, ok = s.At(day(2))
	assert.False(t, ok)

	_, ok = s.At(day(6))
	assert.False(t, ok)
}

func TestFillMissing(t *testing.T) {
	spec := testSpec(t)
	axis := []time.Time{day(1), day(2), day(3)}

	t.Run("gap copies last real bar", func(t *testing.T) {
		s := &Series{
			Spec: spec,
			Bars: []Bar{
				{Timestamp: day(1), Open: 9.8, Close: 10, High: 10.2, Low: 9.7, Volume: 1000},
				{Timestamp: day(3), Open: 10, Close: 10.5, High: 10.6, Low: 9.9, Volume: 1200},
			},
		}

		missing := FillMissing(s, axis)
		require.Len(t, missing.Bars, 1)

		synth := missing.Bars[0]
		assert.Equal(t, day(2), synth.Timestamp)
		assert.Equal(t, 10.0, synth.Close)
		assert.Equal(t, 9.8, synth.Open)
		assert.Equal(t, 1000.0, synth.Volume)

		// side table only, source untouched
		assert.Len(t, s.Bars, 2)
		_, ok := s.At(day(2))
		assert.False(t, ok)
	})

	t.Run("zero fill before history starts", func(t *testing.T) {
		s := &Series{
			Spec: spec,
			Bars: []Bar{
				{Timestamp: day(3), Open: 10, Close: 10.5, High: 10.6, Low: 9.9},
			},
		}

		missing := FillMissing(s, axis)
		require.Len(t, missing.Bars, 2)
		for i, synth := range missing.Bars {
			assert.Equal(t, axis[i], synth.Timestamp)
			assert.Zero(t, synth.Close)
			assert.Zero(t, synth.Volume)
		}
	})

	t.Run("full coverage yields empty table", func(t *testing.T) {
		s := &Series{
			Spec: spec,
			Bars: []Bar{
				{Timestamp: day(1), Close: 10},
				{Timestamp: day(2), Close: 10.1},
				{Timestamp: day(3), Close: 10.2},
			},
		}
		assert.Empty(t, FillMissing(s, axis).Bars)
	})
}

func TestBarValidate(t *testing.T) {
	assert.NoError(t, Bar{Timestamp: day(1), Open: 1, Close: 1, High: 2, Low: 0.5}.Validate())
	assert.NoError(t, Bar{Timestamp: day(1)}.Validate()) // synthetic zero bar
	assert.Error(t, Bar{}.Validate())
	assert.Error(t, Bar{Timestamp: day(1), Open: 1, Close: 1, High: 1, Low: 2}.Validate())
	assert.Error(t, Bar{Timestamp: day(1), Open: -1, Close: 1, High: 1, Low: 1}.Validate())
}
