package engine

import (
	"math"

	"github.com/rewired-gh/humanbattery/internal/models"
)

// Balance is the verdict of a forecast.
type Balance string

const (
	Deficit  Balance = "deficit"
	Surplus  Balance = "surplus"
	Balanced Balance = "balanced"
)

// Energy levels are percentages of a full battery.
const (
	MinEnergy = 0.0
	MaxEnergy = 100.0
)

// PlannedActivity is one line of a planned day.
type PlannedActivity struct {
	Name  string
	Count int
}

// ForecastLine is the expected effect of one planned activity.
type ForecastLine struct {
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	Estimate float64 `json:"estimate"`
	Subtotal float64 `json:"subtotal"`
	// Known is false for activities the registry cannot estimate. They
	// count as zero.
	Known bool `json:"known"`
	// RunningTotal is the planned change after this line.
	RunningTotal float64 `json:"running_total"`
}

// Forecast is the expected outcome of a planned day.
type Forecast struct {
	Lines          []ForecastLine `json:"lines"`
	StartingEnergy float64        `json:"starting_energy"`
	Total          float64        `json:"total"`
	EndingEnergy   float64        `json:"ending_energy"`
	SleepEstimate  float64        `json:"sleep_estimate"`
	NextMorning    float64        `json:"next_morning"`
	Balance        Balance        `json:"balance"`
	// Missing lists planned activities without an estimate.
	Missing []string `json:"missing,omitempty"`
}

// Forecast predicts the end-of-day and next-morning levels for a plan
// starting at startingEnergy. Activities without an estimate contribute
// nothing and are listed in Missing.
func (e *Engine) Forecast(startingEnergy float64, plan []PlannedActivity) Forecast {
	f := Forecast{StartingEnergy: startingEnergy}
	for _, item := range plan {
		count := item.Count
		if count <= 0 {
			count = 1
		}
		line := ForecastLine{Name: item.Name, Count: count}
		if est, ok := e.registry.Estimate(item.Name); ok {
			line.Estimate = est
			line.Subtotal = est * float64(count)
			line.Known = true
		} else {
			f.Missing = append(f.Missing, item.Name)
		}
		f.Total += line.Subtotal
		line.RunningTotal = f.Total
		f.Lines = append(f.Lines, line)
	}

	f.EndingEnergy = startingEnergy + f.Total
	if est, ok := e.sleep.Estimate(); ok {
		f.SleepEstimate = est
	}
	f.NextMorning = f.EndingEnergy + f.SleepEstimate

	switch {
	case f.NextMorning < startingEnergy:
		f.Balance = Deficit
	case f.NextMorning > startingEnergy:
		f.Balance = Surplus
	default:
		f.Balance = Balanced
	}
	return f
}

// EstimatedStartingEnergy guesses today's starting level from the last
// end-of-day level and the sleep estimate, clamped to a valid level. It
// returns fallback when no end-of-day level was logged.
func (e *Engine) EstimatedStartingEnergy(fallback float64) float64 {
	if !e.lastEndOfDay.Known() {
		return fallback
	}
	level := *e.lastEndOfDay.Value
	if est, ok := e.sleep.Estimate(); ok {
		level += est
	}
	return ClampEnergy(level)
}

// ClampEnergy limits level to the valid energy range.
func ClampEnergy(level float64) float64 {
	return math.Max(MinEnergy, math.Min(MaxEnergy, level))
}

// ActivityEstimate returns the estimate for name, or ErrNoEstimate.
func (e *Engine) ActivityEstimate(name string) (float64, error) {
	if est, ok := e.registry.Estimate(name); ok {
		return est, nil
	}
	return 0, ErrNoEstimate
}

// FillUnknowns replaces unknown occurrence values with registry estimates
// where one exists. Logging a day with estimates filled in treats them as
// typed-in values.
func (e *Engine) FillUnknowns(occurrences []models.Occurrence) []models.Occurrence {
	out := make([]models.Occurrence, len(occurrences))
	for i, occ := range occurrences {
		out[i] = occ
		if occ.Value.IsKnown() {
			continue
		}
		if est, ok := e.registry.Estimate(occ.Name); ok {
			out[i].Value = models.Known(est)
		}
	}
	return out
}
