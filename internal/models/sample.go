// Package models defines the core domain entities for the humanbattery application.
// These models represent per-activity value series, logged days and the
// overnight snapshot used to measure sleep.
//
// Terminology (matching the energy log's own naming):
//   - Activity: a named recurring thing the user does, each occurrence
//     optionally carrying an energy value.
//   - Sample: one observation of an activity's energy value, or the
//     "auto" placeholder when the value is not yet known.
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UnknownToken is the wire form of an unknown sample.
const UnknownToken = "auto"

// Sample is a single observation in a value series: either a known numeric
// value or the unknown placeholder. The zero value is Unknown.
type Sample struct {
	value float64
	known bool
}

// Known returns a sample carrying v.
func Known(v float64) Sample {
	return Sample{value: v, known: true}
}

// Unknown returns the "not yet observed" placeholder.
func Unknown() Sample {
	return Sample{}
}

// IsKnown reports whether the sample carries a numeric value.
func (s Sample) IsKnown() bool {
	return s.known
}

// Value returns the numeric value and whether it is known.
func (s Sample) Value() (float64, bool) {
	return s.value, s.known
}

// String renders the sample the way it is written on the wire.
func (s Sample) String() string {
	if !s.known {
		return UnknownToken
	}
	return strconv.FormatFloat(s.value, 'f', -1, 64)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ParseSample turns user or legacy input into a Sample.
// Blank input and "auto" are Unknown; anything else must parse as a finite
// float.
func ParseSample(raw string) (Sample, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, UnknownToken) {
		return Unknown(), nil
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return Sample{}, &InvalidSampleError{Value: raw, Err: err}
	}
	if !IsFinite(v) {
		return Sample{}, &InvalidSampleError{Value: raw, Err: ErrNotFinite}
	}
	return Known(v), nil
}

// MarshalJSON writes known samples as numbers and unknown ones as "auto".
func (s Sample) MarshalJSON() ([]byte, error) {
	if !s.known {
		return json.Marshal(UnknownToken)
	}
	return json.Marshal(s.value)
}

// UnmarshalJSON accepts a number, "auto", a numeric string (older saves
// stored values as strings) or null, which older saves produced for values
// that failed to parse and is read back as Unknown.
func (s *Sample) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = Unknown()
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*s = Known(num)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("sample must be a number or string: %w", err)
	}
	parsed, err := ParseSample(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
