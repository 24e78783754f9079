// Package instrument parses dataset identifiers of the form
// <code>.<name>-<period>, e.g. "510300.300etf-1Day".
package instrument

import (
	"fmt"
	"strings"
)

// Period is the bar period encoded in a dataset filename.
type Period string

const (
	Period1Minute  Period = "1Minute"
	Period5Minute  Period = "5Minute"
	Period15Minute Period = "15Minute"
	Period30Minute Period = "30Minute"
	Period60Minute Period = "60Minute"
	Period1Day     Period = "1Day"
	Period1Week    Period = "1Week"
	Period1Month   Period = "1Month"
)

var supportedPeriods = map[Period]bool{
	Period1Minute:  true,
	Period5Minute:  true,
	Period15Minute: true,
	Period30Minute: true,
	Period60Minute: true,
	Period1Day:     true,
	Period1Week:    true,
	Period1Month:   true,
}

// Valid reports whether p is one of the supported periods.
func (p Period) Valid() bool {
	return supportedPeriods[p]
}

// Instrument identifies a tradeable instrument by exchange code and short
// name. It is immutable once parsed.
type Instrument struct {
	Code string
	Name string
}

func (id Instrument) String() string {
	return id.Code + "." + id.Name
}

// Spec identifies one (instrument, period) series, matching the dataset
// filename without path or extension.
type Spec struct {
	Instrument Instrument
	Period     Period
}

func (s Spec) String() string {
	return s.Instrument.String() + "-" + string(s.Period)
}

// ParseSpec parses "<code>.<name>-<period>" into a Spec.
func ParseSpec(raw string) (Spec, error) {
	idPart, periodPart, ok := strings.Cut(raw, "-")
	if !ok {
		return Spec{}, fmt.Errorf("instrument spec %q is not in the format <code>.<name>-<period>", raw)
	}

	period := Period(periodPart)
	if !period.Valid() {
		return Spec{}, fmt.Errorf("instrument spec %q has unsupported period %q", raw, periodPart)
	}

	code, name, ok := strings.Cut(idPart, ".")
	if !ok || code == "" || name == "" {
		return Spec{}, fmt.Errorf("instrument spec %q has malformed identifier %q, want <code>.<name>", raw, idPart)
	}

	return Spec{
		Instrument: Instrument{Code: code, Name: name},
		Period:     period,
	}, nil
}
