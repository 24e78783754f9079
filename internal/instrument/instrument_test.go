package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Spec
		wantErr bool
	}{
		{
			name: "daily etf",
			raw:  "510300.300etf-1Day",
			want: Spec{
				Instrument: Instrument{Code: "510300", Name: "300etf"},
				Period:     Period1Day,
			},
		},
		{
			name: "minute bars",
			raw:  "600004.byjc-5Minute",
			want: Spec{
				Instrument: Instrument{Code: "600004", Name: "byjc"},
				Period:     Period5Minute,
			},
		},
		{name: "missing period", raw: "510300.300etf", wantErr: true},
		{name: "unknown period", raw: "510300.300etf-2Day", wantErr: true},
		{name: "missing name", raw: "510300-1Day", wantErr: true},
		{name: "empty code", raw: ".300etf-1Day", wantErr: true},
		{name: "empty string", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpec(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpecString_RoundTrip(t *testing.T) {
	raw := "000001.sz-1Day"
	spec, err := ParseSpec(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, spec.String())
}

func TestPeriodValid(t *testing.T) {
	assert.True(t, Period1Day.Valid())
	assert.True(t, Period60Minute.Valid())
	assert.False(t, Period("1Year").Valid())
	assert.False(t, Period("").Valid())
}
