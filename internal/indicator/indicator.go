// Package indicator computes lag-based technical indicators over close
// prices. Warm-up positions, where the indicator is not yet defined, are
// NaN so callers can align indicator slices with their price slices
// one-to-one.
package indicator

import "math"

// CalculateSMA returns the simple moving average of values over period.
// Returns nil when the input is shorter than period or period is invalid.
func CalculateSMA(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}
	sma := make([]float64, len(values))
	for i := 0; i < period-1; i++ {
		sma[i] = math.NaN()
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			sma[i] = sum / float64(period)
		}
	}
	return sma
}

// CalculateEMA returns the exponential moving average of values over period,
// seeded with the simple average of the first period values.
func CalculateEMA(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}
	ema := make([]float64, len(values))
	for i := 0; i < period-1; i++ {
		ema[i] = math.NaN()
	}
	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema[period-1] = sum / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema[i] = (values[i]-ema[i-1])*multiplier + ema[i-1]
	}
	return ema
}

// CalculateMACD returns the DIF line (fast EMA minus slow EMA), the DEA
// signal line (EMA of DIF over signal), and the histogram (DIF minus DEA).
// Conventional periods are 12, 26, 9.
func CalculateMACD(values []float64, fast, slow, signal int) (dif, dea, hist []float64) {
	if fast <= 0 || slow <= fast || signal <= 0 || len(values) < slow+signal-1 {
		return nil, nil, nil
	}

	fastEMA := CalculateEMA(values, fast)
	slowEMA := CalculateEMA(values, slow)

	dif = make([]float64, len(values))
	for i := range values {
		dif[i] = fastEMA[i] - slowEMA[i]
	}

	// DEA is an EMA over the defined portion of DIF, shifted back into place.
	defined := dif[slow-1:]
	deaTail := CalculateEMA(defined, signal)

	dea = make([]float64, len(values))
	hist = make([]float64, len(values))
	for i := range values {
		if i < slow-1 {
			dea[i] = math.NaN()
		} else {
			dea[i] = deaTail[i-(slow-1)]
		}
		hist[i] = dif[i] - dea[i]
	}
	return dif, dea, hist
}
