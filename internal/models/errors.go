package models

import (
	"errors"
	"fmt"
)

// ErrEmptyActivityName is returned when an occurrence or series has no name.
var ErrEmptyActivityName = errors.New("activity name must not be empty")

// ErrNotFinite is returned for NaN and infinite values.
var ErrNotFinite = errors.New("value must be finite")

// InvalidSampleError reports a value that is neither numeric nor the
// unknown placeholder.
type InvalidSampleError struct {
	Value string
	Err   error
}

func (e *InvalidSampleError) Error() string {
	return fmt.Sprintf("invalid sample %q: must be a number or %q", e.Value, UnknownToken)
}

func (e *InvalidSampleError) Unwrap() error {
	return e.Err
}

// CorruptDayError reports a backlog day whose occurrence list could not be
// normalized. The day stays in the backlog and is retried on the next pass.
type CorruptDayError struct {
	Date DateKey
	Err  error
}

func (e CorruptDayError) Error() string {
	return fmt.Sprintf("corrupt day %s: %v", e.Date, e.Err)
}

func (e CorruptDayError) Unwrap() error {
	return e.Err
}
