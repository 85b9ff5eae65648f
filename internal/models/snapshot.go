package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EndOfDay is the last energy level logged before sleep. The next morning's
// starting level minus this value is one sleep sample.
type EndOfDay struct {
	Date  *DateKey `json:"date"`
	Value *float64 `json:"value"`
}

// NewEndOfDay returns a snapshot for date with the given level.
func NewEndOfDay(date DateKey, value float64) EndOfDay {
	return EndOfDay{Date: &date, Value: &value}
}

// Known reports whether both date and value are set.
func (e EndOfDay) Known() bool {
	return e.Date != nil && e.Value != nil
}

// ParseEndOfDay normalizes every stored snapshot shape:
//   - absent or null: empty snapshot
//   - a bare number or numeric string: that level, dated the day before now
//   - an object: its date and value
func ParseEndOfDay(raw json.RawMessage, now time.Time) (EndOfDay, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return EndOfDay{}, nil
	}

	yesterday := DateKeyOf(now.AddDate(0, 0, -1))

	switch raw[0] {
	case '{':
		var obj struct {
			Date  *string         `json:"date"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return EndOfDay{}, fmt.Errorf("end of day: %w", err)
		}
		var out EndOfDay
		if obj.Date != nil {
			date, err := ParseDateKey(*obj.Date)
			if err != nil {
				return EndOfDay{}, fmt.Errorf("end of day: %w", err)
			}
			out.Date = &date
		}
		value, err := ParseLevel(obj.Value)
		if err != nil {
			return EndOfDay{}, fmt.Errorf("end of day: %w", err)
		}
		out.Value = value
		return out, nil

	default:
		value, err := ParseLevel(raw)
		if err != nil {
			return EndOfDay{}, fmt.Errorf("end of day: %w", err)
		}
		if value == nil {
			return EndOfDay{}, nil
		}
		return EndOfDay{Date: &yesterday, Value: value}, nil
	}
}

// ParseLevel reads an energy level stored as a JSON number or numeric
// string. Null or absent yields nil.
func ParseLevel(raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return &num, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil, errors.New("level must be a number")
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return nil, fmt.Errorf("level %q is not a number", str)
	}
	return &num, nil
}
