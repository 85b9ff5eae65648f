package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of a DateKey.
const DateLayout = "2006-01-02"

// DateKey identifies a calendar day. Two days are the same day exactly
// when their keys are equal.
type DateKey string

// DateKeyOf returns the key of the local calendar day containing t.
func DateKeyOf(t time.Time) DateKey {
	return DateKey(t.Format(DateLayout))
}

// ParseDateKey accepts a plain date or an RFC 3339 timestamp. Timestamps
// are mapped to the local calendar day they fall on.
func ParseDateKey(s string) (DateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("date must not be empty")
	}
	if t, err := time.ParseInLocation(DateLayout, s, time.Local); err == nil {
		return DateKeyOf(t), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return "", fmt.Errorf("unrecognized date %q: %w", s, err)
	}
	return DateKeyOf(t.In(time.Local)), nil
}

// Time returns local midnight of the day.
func (d DateKey) Time() (time.Time, error) {
	return time.ParseInLocation(DateLayout, string(d), time.Local)
}

// Occurrence is one performance of an activity on a logged day. The same
// activity may occur several times in a day.
type Occurrence struct {
	Name  string
	Value Sample
}

// Validate checks that the occurrence names an activity and that a known
// value is finite.
func (o Occurrence) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return ErrEmptyActivityName
	}
	if v, ok := o.Value.Value(); ok && !IsFinite(v) {
		return &InvalidSampleError{Value: o.Value.String(), Err: ErrNotFinite}
	}
	return nil
}

// MarshalJSON writes the occurrence in series shape with a single sample.
func (o Occurrence) MarshalJSON() ([]byte, error) {
	return json.Marshal(SeriesJSON{Name: o.Name, Values: []Sample{o.Value}})
}

// UnmarshalJSON reads a series-shaped object, or a string holding one.
func (o *Occurrence) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return errors.New("occurrence must not be null")
	}
	if len(data) > 0 && data[0] == '"' {
		var nested string
		if err := json.Unmarshal(data, &nested); err != nil {
			return err
		}
		data = []byte(nested)
	}

	var in SeriesJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("occurrence is not a series: %w", err)
	}
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyActivityName
	}

	// A series-shaped occurrence is usually ["auto"] or [value]; older
	// saves could hold several samples or a fixed value.
	o.Name = in.Name
	o.Value = Unknown()
	if est, ok := SeriesFromJSON(in, len(in.Values)).Estimate(); ok {
		o.Value = Known(est)
	}
	return nil
}

// ParseOccurrences normalizes a stored occurrence list. It accepts a JSON
// array of occurrences, or a JSON string wrapping such an array as written
// by an interrupted save.
func ParseOccurrences(raw json.RawMessage) ([]Occurrence, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []Occurrence{}, nil
	}
	if raw[0] == '"' {
		var nested string
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, err
		}
		raw = bytes.TrimSpace([]byte(nested))
		if len(raw) > 0 && raw[0] == '"' {
			return nil, errors.New("occurrence list is encoded more than once")
		}
	}

	var occurrences []Occurrence
	if err := json.Unmarshal(raw, &occurrences); err != nil {
		return nil, fmt.Errorf("occurrence list: %w", err)
	}
	if occurrences == nil {
		occurrences = []Occurrence{}
	}
	return occurrences, nil
}

// SortOccurrences orders occurrences by activity name, keeping the logged
// order among equal names.
func SortOccurrences(occurrences []Occurrence) {
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].Name < occurrences[j].Name
	})
}

// DayRecord is one logged day waiting to be explained.
type DayRecord struct {
	Date           DateKey
	StartingEnergy float64
	EndingEnergy   float64
	Occurrences    []Occurrence

	// Settled is the energy already explained by explicit values that were
	// trimmed from Occurrences and applied to the registry.
	Settled float64

	// RawOccurrences holds the stored occurrence payload until it has been
	// normalized. It is nil for a normalized day.
	RawOccurrences json.RawMessage
}

// EnergyTotal is the part of the day's energy change not yet explained.
func (d *DayRecord) EnergyTotal() float64 {
	return d.EndingEnergy - d.StartingEnergy - d.Settled
}

// Normalized reports whether Occurrences can be used.
func (d *DayRecord) Normalized() bool {
	return d.RawOccurrences == nil
}

// Normalize decodes RawOccurrences. On failure the raw payload is kept so
// a later attempt (or a later save) still sees it.
func (d *DayRecord) Normalize() error {
	if d.RawOccurrences == nil {
		return nil
	}
	occurrences, err := ParseOccurrences(d.RawOccurrences)
	if err != nil {
		return CorruptDayError{Date: d.Date, Err: err}
	}
	d.Occurrences = occurrences
	d.RawOccurrences = nil
	return nil
}

// Validate checks that all day fields are valid.
func (d *DayRecord) Validate() error {
	if d.Date == "" {
		return errors.New("day date must not be empty")
	}
	if !IsFinite(d.StartingEnergy) {
		return fmt.Errorf("starting energy %v: %w", d.StartingEnergy, ErrNotFinite)
	}
	if !IsFinite(d.EndingEnergy) {
		return fmt.Errorf("ending energy %v: %w", d.EndingEnergy, ErrNotFinite)
	}
	for _, o := range d.Occurrences {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type dayJSON struct {
	Date           string          `json:"date"`
	Events         json.RawMessage `json:"events"`
	StartingEnergy flexFloat       `json:"starting_energy"`
	EndingEnergy   flexFloat       `json:"ending_energy"`
	Settled        float64         `json:"settled,omitempty"`
}

// MarshalJSON writes the day; an undecoded payload is written back as-is.
func (d DayRecord) MarshalJSON() ([]byte, error) {
	events := d.RawOccurrences
	if events == nil {
		occurrences := d.Occurrences
		if occurrences == nil {
			occurrences = []Occurrence{}
		}
		encoded, err := json.Marshal(occurrences)
		if err != nil {
			return nil, err
		}
		events = encoded
	}
	return json.Marshal(dayJSON{
		Date:           string(d.Date),
		Events:         events,
		StartingEnergy: flexFloat(d.StartingEnergy),
		EndingEnergy:   flexFloat(d.EndingEnergy),
		Settled:        d.Settled,
	})
}

// UnmarshalJSON reads a day. Its occurrence payload is normalized when
// possible and otherwise kept raw for the engine to report.
func (d *DayRecord) UnmarshalJSON(data []byte) error {
	var in dayJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	date, err := ParseDateKey(in.Date)
	if err != nil {
		return err
	}
	*d = DayRecord{
		Date:           date,
		StartingEnergy: float64(in.StartingEnergy),
		EndingEnergy:   float64(in.EndingEnergy),
		Settled:        in.Settled,
	}
	if len(in.Events) > 0 {
		d.RawOccurrences = append(json.RawMessage(nil), in.Events...)
	}
	_ = d.Normalize()
	return nil
}

// flexFloat reads a JSON number or a numeric string. Energy levels taken
// straight from form inputs were saved as strings.
type flexFloat float64

func (f flexFloat) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat(num)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("expected a number: %w", err)
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil || !IsFinite(num) {
		return fmt.Errorf("expected a number, got %q", str)
	}
	*f = flexFloat(num)
	return nil
}
