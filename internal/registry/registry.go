// Package registry keeps the per-activity value series learned so far and
// derives the read-only views the report layer needs: rankings, confident
// subsets and activities still waiting for a value.
package registry

import (
	"sort"

	"github.com/rewired-gh/humanbattery/internal/models"
)

// DefaultConfidentThreshold is the number of samples an activity needs
// before its estimate is shown as trustworthy.
const DefaultConfidentThreshold = 5

// Registry maps activity names to their value series. Names are matched
// exactly, case included.
type Registry struct {
	entries map[string]*models.ValueSeries
	window  int
}

// New creates an empty registry whose series keep window samples.
func New(window int) *Registry {
	if window <= 0 {
		window = models.DefaultWindow
	}
	return &Registry{
		entries: make(map[string]*models.ValueSeries),
		window:  window,
	}
}

// Window returns the sample capacity given to new series.
func (r *Registry) Window() int {
	return r.window
}

// Len returns the number of tracked activities.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Upsert records value for name. A nil value only makes sure the activity
// exists; it never touches an existing series.
func (r *Registry) Upsert(name string, value *models.Sample) {
	series, exists := r.entries[name]
	if !exists {
		series = models.NewValueSeries(name, r.window)
		r.entries[name] = series
	}
	if value != nil {
		series.AddSample(*value)
	}
}

// UpsertValue is Upsert for raw input, where an empty string means no
// value. Unparseable input returns an InvalidSampleError and changes nothing.
func (r *Registry) UpsertValue(name, raw string) error {
	if raw == "" {
		r.Upsert(name, nil)
		return nil
	}
	s, err := models.ParseSample(raw)
	if err != nil {
		return err
	}
	r.Upsert(name, &s)
	return nil
}

// Put stores series under its own name, replacing any existing entry.
// It is used when restoring a saved registry.
func (r *Registry) Put(series *models.ValueSeries) {
	series.SetWindow(r.window)
	r.entries[series.Name()] = series
}

// Lookup returns the series for name.
func (r *Registry) Lookup(name string) (*models.ValueSeries, bool) {
	series, ok := r.entries[name]
	return series, ok
}

// Estimate returns the current estimate for name, if the activity is known
// and has one.
func (r *Registry) Estimate(name string) (float64, bool) {
	series, ok := r.entries[name]
	if !ok {
		return 0, false
	}
	return series.Estimate()
}

// Remove deletes name. It reports whether the activity existed.
func (r *Registry) Remove(name string) bool {
	if _, ok := r.entries[name]; !ok {
		return false
	}
	delete(r.entries, name)
	return true
}

// Names returns every tracked activity name in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every series in name order.
func (r *Registry) All() []*models.ValueSeries {
	out := make([]*models.ValueSeries, 0, len(r.entries))
	for _, name := range r.Names() {
		out = append(out, r.entries[name])
	}
	return out
}

// RankByEstimate returns all series ordered by estimate, highest first
// unless ascending is set. Series without an estimate rank lowest.
func (r *Registry) RankByEstimate(ascending bool) []*models.ValueSeries {
	return r.rank(ascending, func(s *models.ValueSeries) (float64, bool) {
		return s.Estimate()
	})
}

// RankByImpact returns all series ordered by impact, highest first unless
// ascending is set.
func (r *Registry) RankByImpact(ascending bool) []*models.ValueSeries {
	return r.rank(ascending, func(s *models.ValueSeries) (float64, bool) {
		return s.Impact(), true
	})
}

func (r *Registry) rank(ascending bool, reading func(*models.ValueSeries) (float64, bool)) []*models.ValueSeries {
	sorted := r.All()

	// Undefined readings are the lowest in either direction. Ties keep
	// name order.
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, okI := reading(sorted[i])
		vj, okJ := reading(sorted[j])
		if okI != okJ {
			if ascending {
				return !okI
			}
			return okI
		}
		if !okI || vi == vj {
			return false
		}
		if ascending {
			return vi < vj
		}
		return vi > vj
	})
	return sorted
}

// ConfidentSubset returns a new registry holding copies of the activities
// with at least threshold samples. A non-positive threshold uses the
// default. Changes to the subset do not reach r.
func (r *Registry) ConfidentSubset(threshold int) *Registry {
	if threshold <= 0 {
		threshold = DefaultConfidentThreshold
	}
	subset := New(r.window)
	for name, series := range r.entries {
		if series.Len() >= threshold {
			subset.entries[name] = series.Clone()
		}
	}
	return subset
}

// NeedingValues returns the activities whose latest sample is unknown, in
// name order.
func (r *Registry) NeedingValues() []*models.ValueSeries {
	var out []*models.ValueSeries
	for _, series := range r.All() {
		if last, ok := series.Last(); ok && !last.IsKnown() {
			out = append(out, series)
		}
	}
	return out
}
