package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// DefaultWindow is the number of samples a series keeps before evicting
// the oldest one.
const DefaultWindow = 10

// ValueSeries is the rolling sample history of one activity. A fixed value,
// when set, overrides every derived reading and ignores the window.
type ValueSeries struct {
	name    string
	samples []Sample
	fixed   *float64
	note    string
	window  int
}

// NewValueSeries creates an empty series. A non-positive window falls back
// to DefaultWindow.
func NewValueSeries(name string, window int) *ValueSeries {
	if window <= 0 {
		window = DefaultWindow
	}
	return &ValueSeries{
		name:    name,
		samples: make([]Sample, 0, window),
		window:  window,
	}
}

// Name returns the activity name.
func (v *ValueSeries) Name() string { return v.name }

// Note returns the free-text annotation.
func (v *ValueSeries) Note() string { return v.note }

// SetNote replaces the annotation.
func (v *ValueSeries) SetNote(note string) { v.note = note }

// Window returns the sample capacity.
func (v *ValueSeries) Window() int { return v.window }

// SetWindow changes the capacity, evicting the oldest samples if needed.
func (v *ValueSeries) SetWindow(window int) {
	if window <= 0 {
		window = DefaultWindow
	}
	v.window = window
	v.trim()
}

// Len returns the number of stored samples, unknown ones included.
func (v *ValueSeries) Len() int { return len(v.samples) }

// Samples returns a copy of the stored samples, oldest first.
func (v *ValueSeries) Samples() []Sample {
	out := make([]Sample, len(v.samples))
	copy(out, v.samples)
	return out
}

// Last returns the most recent sample.
func (v *ValueSeries) Last() (Sample, bool) {
	if len(v.samples) == 0 {
		return Sample{}, false
	}
	return v.samples[len(v.samples)-1], true
}

// AddSample appends s, evicting the oldest sample when the window is full.
func (v *ValueSeries) AddSample(s Sample) {
	v.samples = append(v.samples, s)
	v.trim()
}

// AddValue parses raw and appends it. Unparseable input is rejected with an
// InvalidSampleError and leaves the series untouched.
func (v *ValueSeries) AddValue(raw string) error {
	s, err := ParseSample(raw)
	if err != nil {
		return err
	}
	v.AddSample(s)
	return nil
}

func (v *ValueSeries) trim() {
	if over := len(v.samples) - v.window; over > 0 {
		v.samples = append(v.samples[:0], v.samples[over:]...)
	}
}

// Fixed returns the manual override, if any.
func (v *ValueSeries) Fixed() (float64, bool) {
	if v.fixed == nil {
		return 0, false
	}
	return *v.fixed, true
}

// SetFixed sets a manual override. Samples are left alone.
func (v *ValueSeries) SetFixed(value float64) {
	v.fixed = &value
}

// ClearFixed removes the manual override.
func (v *ValueSeries) ClearFixed() {
	v.fixed = nil
}

// HasValue reports whether the series holds a known sample or a fixed value.
func (v *ValueSeries) HasValue() bool {
	if v.fixed != nil {
		return true
	}
	for _, s := range v.samples {
		if s.known {
			return true
		}
	}
	return false
}

// knownValues returns the numeric samples in insertion order.
func (v *ValueSeries) knownValues() []float64 {
	values := make([]float64, 0, len(v.samples))
	for _, s := range v.samples {
		if s.known {
			values = append(values, s.value)
		}
	}
	return values
}

// Estimate returns the fixed value, or the mean of the known samples.
// It is undefined for a series without either.
func (v *ValueSeries) Estimate() (float64, bool) {
	if v.fixed != nil {
		return *v.fixed, true
	}
	values := v.knownValues()
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, x := range values {
		sum += x
	}
	return sum / float64(len(values)), true
}

// Total returns the fixed value, or the sum of the known samples.
func (v *ValueSeries) Total() (float64, bool) {
	if v.fixed != nil {
		return *v.fixed, true
	}
	values := v.knownValues()
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, x := range values {
		sum += x
	}
	return sum, true
}

// Impact returns the fixed value, or the sum of absolute known samples.
// An empty series has zero impact.
func (v *ValueSeries) Impact() float64 {
	if v.fixed != nil {
		return *v.fixed
	}
	var sum float64
	for _, x := range v.knownValues() {
		sum += math.Abs(x)
	}
	return sum
}

// Range returns the smallest and largest known samples.
func (v *ValueSeries) Range() (lo, hi float64, ok bool) {
	values := v.knownValues()
	if len(values) == 0 {
		return 0, 0, false
	}
	lo, hi = values[0], values[0]
	for _, x := range values[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi, true
}

// RangeString renders Range as "~v" when all samples agree, "[lo ~ hi]"
// otherwise, and "" when there is nothing to show.
func (v *ValueSeries) RangeString(precision int) string {
	lo, hi, ok := v.Range()
	if !ok {
		return ""
	}
	if lo == hi {
		return "~" + strconv.FormatFloat(lo, 'f', precision, 64)
	}
	return fmt.Sprintf("[%s ~ %s]",
		strconv.FormatFloat(lo, 'f', precision, 64),
		strconv.FormatFloat(hi, 'f', precision, 64))
}

// SeriesJSON is the persisted shape of a ValueSeries. Activities embedded
// in logged days use the same shape.
type SeriesJSON struct {
	Name       string   `json:"name"`
	Values     []Sample `json:"values"`
	FixedValue *float64 `json:"fixed_value"`
	Note       string   `json:"note"`
}

// ToJSON converts the series to its persisted shape.
func (v *ValueSeries) ToJSON() SeriesJSON {
	out := SeriesJSON{
		Name:   v.name,
		Values: v.Samples(),
		Note:   v.note,
	}
	if v.fixed != nil {
		f := *v.fixed
		out.FixedValue = &f
	}
	return out
}

// SeriesFromJSON rebuilds a series, keeping only the newest window samples.
func SeriesFromJSON(in SeriesJSON, window int) *ValueSeries {
	v := NewValueSeries(in.Name, window)
	for _, s := range in.Values {
		v.AddSample(s)
	}
	if in.FixedValue != nil {
		v.SetFixed(*in.FixedValue)
	}
	v.note = in.Note
	return v
}

// Clone returns an independent copy of the series.
func (v *ValueSeries) Clone() *ValueSeries {
	return SeriesFromJSON(v.ToJSON(), v.window)
}

// MarshalJSON writes the persisted shape.
func (v *ValueSeries) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToJSON())
}

// UnmarshalJSON reads the persisted shape with the default window.
func (v *ValueSeries) UnmarshalJSON(data []byte) error {
	var in SeriesJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*v = *SeriesFromJSON(in, DefaultWindow)
	return nil
}
