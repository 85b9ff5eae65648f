package profile

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rewired-gh/humanbattery/internal/engine"
	"github.com/rewired-gh/humanbattery/internal/models"
	"gopkg.in/yaml.v3"
)

// Bounds of a typed-in activity value.
const (
	MinActivityValue = -100.0
	MaxActivityValue = 100.0
)

// countWords are the spelled-out repetition counts accepted on input.
var countWords = map[string]int{
	"once":   1,
	"twice":  2,
	"thrice": 3,
	"a lot":  5,
	"alot":   5,
}

// ParseCount reads a repetition count given as a number or a word. An
// empty count is one.
func ParseCount(raw string) (int, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return 1, nil
	}
	if n, ok := countWords[raw]; ok {
		return n, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid count %q", raw)
	}
	return n, nil
}

// Expand builds the occurrences of one activity repeated count times.
// Known values are clamped to the valid range.
func Expand(name, rawValue string, count int) ([]models.Occurrence, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.ErrEmptyActivityName
	}
	value, err := models.ParseSample(rawValue)
	if err != nil {
		return nil, err
	}
	if v, ok := value.Value(); ok {
		value = models.Known(clamp(v, MinActivityValue, MaxActivityValue))
	}
	if count < 1 {
		count = 1
	}
	out := make([]models.Occurrence, count)
	for i := range out {
		out[i] = models.Occurrence{Name: name, Value: value}
	}
	return out, nil
}

// ParseActivityArg reads one command-line activity in the form
// NAME[*COUNT][=VALUE], for example "Run", "Run=-10", "Chores*2" or
// "Chores*twice=auto".
func ParseActivityArg(arg string) ([]models.Occurrence, error) {
	name, rawValue, _ := strings.Cut(arg, "=")
	name, rawCount, _ := strings.Cut(name, "*")
	count, err := ParseCount(rawCount)
	if err != nil {
		return nil, fmt.Errorf("activity %q: %w", arg, err)
	}
	occ, err := Expand(name, rawValue, count)
	if err != nil {
		return nil, fmt.Errorf("activity %q: %w", arg, err)
	}
	return occ, nil
}

// ParsePlanArg reads one forecast line in the form NAME[*COUNT].
func ParsePlanArg(arg string) (engine.PlannedActivity, error) {
	name, rawCount, _ := strings.Cut(arg, "*")
	name = strings.TrimSpace(name)
	if name == "" {
		return engine.PlannedActivity{}, models.ErrEmptyActivityName
	}
	count, err := ParseCount(rawCount)
	if err != nil {
		return engine.PlannedActivity{}, fmt.Errorf("activity %q: %w", arg, err)
	}
	return engine.PlannedActivity{Name: name, Count: count}, nil
}

// ImportedDay is one day read from an import file.
type ImportedDay struct {
	Date        models.DateKey
	Start       float64
	End         float64
	Occurrences []models.Occurrence
}

type yamlActivity struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
	Count string `yaml:"count"`
}

type yamlDay struct {
	Date       string         `yaml:"date"`
	Start      *float64       `yaml:"start"`
	End        *float64       `yaml:"end"`
	Activities []yamlActivity `yaml:"activities"`
}

// ReadDays parses a YAML list of days:
//
//	- date: 2024-03-01
//	  start: 60
//	  end: 35
//	  activities:
//	    - name: Run
//	      value: -10
//	    - name: Chores
//	      count: 2
func ReadDays(r io.Reader) ([]ImportedDay, error) {
	var in []yamlDay
	if err := yaml.NewDecoder(r).Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse days: %w", err)
	}

	days := make([]ImportedDay, 0, len(in))
	for i, d := range in {
		date, err := models.ParseDateKey(d.Date)
		if err != nil {
			return nil, fmt.Errorf("day %d: %w", i+1, err)
		}
		if d.Start == nil || d.End == nil {
			return nil, fmt.Errorf("day %s: start and end energy are required", date)
		}
		day := ImportedDay{
			Date:        date,
			Start:       engine.ClampEnergy(*d.Start),
			End:         engine.ClampEnergy(*d.End),
			Occurrences: []models.Occurrence{},
		}
		for _, a := range d.Activities {
			count, err := ParseCount(a.Count)
			if err != nil {
				return nil, fmt.Errorf("day %s: %w", date, err)
			}
			occ, err := Expand(a.Name, a.Value, count)
			if err != nil {
				return nil, fmt.Errorf("day %s: %w", date, err)
			}
			day.Occurrences = append(day.Occurrences, occ...)
		}
		days = append(days, day)
	}
	return days, nil
}

// ImportResult reports what ImportDays did with each day.
type ImportResult struct {
	Added   []models.DateKey
	Skipped []models.DateKey
}

// ImportDays reads days from r and logs them in file order. Days already
// logged are skipped unless overwrite is set.
func (p *Profile) ImportDays(r io.Reader, overwrite bool) (ImportResult, error) {
	days, err := ReadDays(r)
	if err != nil {
		return ImportResult{}, err
	}
	var result ImportResult
	for _, d := range days {
		added, err := p.Engine.AddDay(d.Date, d.Occurrences, d.Start, d.End, overwrite)
		if err != nil {
			return result, fmt.Errorf("day %s: %w", d.Date, err)
		}
		if added {
			result.Added = append(result.Added, d.Date)
		} else {
			result.Skipped = append(result.Skipped, d.Date)
		}
	}
	return result, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
