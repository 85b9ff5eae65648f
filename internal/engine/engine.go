// Package engine attributes each logged day's energy change to the
// activities performed that day.
//
// Every day is one equation: the sum of its activities' values equals the
// day's energy change (end minus start). Values the user typed in are
// applied directly; the remaining unknowns are solved in three shapes:
//
//	all names known   → the residual is split equally and pushed as new samples
//	one unknown left  → it takes the whole residual
//	n copies of one   → each copy takes residual / n
//
// Anything else (two or more distinct unknowns) waits in the backlog until
// other days teach the registry enough to eliminate them. Resolve runs
// passes until one makes no progress.
package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rewired-gh/humanbattery/internal/logger"
	"github.com/rewired-gh/humanbattery/internal/models"
	"github.com/rewired-gh/humanbattery/internal/registry"
)

// SleepActivityName names the series that records overnight recovery.
const SleepActivityName = "Sleep Quality"

// Engine owns one profile's backlog of unexplained days, its activity
// registry and its sleep series. It is not safe for concurrent use.
type Engine struct {
	backlog      []*models.DayRecord
	registry     *registry.Registry
	sleep        *models.ValueSeries
	lastEndOfDay models.EndOfDay
	lastResolve  ResolveResult
}

// State is the persisted part of an Engine.
type State struct {
	Registry     *registry.Registry
	Sleep        *models.ValueSeries
	LastEndOfDay models.EndOfDay
	Backlog      []*models.DayRecord
}

// New creates an engine with an empty backlog around reg.
func New(reg *registry.Registry) *Engine {
	if reg == nil {
		reg = registry.New(models.DefaultWindow)
	}
	return &Engine{
		registry: reg,
		sleep:    models.NewValueSeries(SleepActivityName, reg.Window()),
	}
}

// FromState rebuilds an engine from saved state. Missing parts are
// replaced with empty ones.
func FromState(s State) *Engine {
	e := New(s.Registry)
	if s.Sleep != nil {
		e.sleep = s.Sleep
	}
	e.lastEndOfDay = s.LastEndOfDay
	for _, day := range s.Backlog {
		if day != nil {
			e.backlog = append(e.backlog, day)
		}
	}
	return e
}

// State returns the engine's persisted state. The returned values are
// shared with the engine.
func (e *Engine) State() State {
	return State{
		Registry:     e.registry,
		Sleep:        e.sleep,
		LastEndOfDay: e.lastEndOfDay,
		Backlog:      e.Backlog(),
	}
}

// Registry returns the activity registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Sleep returns the sleep series.
func (e *Engine) Sleep() *models.ValueSeries { return e.sleep }

// LastEndOfDay returns the most recent end-of-day snapshot.
func (e *Engine) LastEndOfDay() models.EndOfDay { return e.lastEndOfDay }

// LastResolve returns the result of the most recent Resolve call.
func (e *Engine) LastResolve() ResolveResult { return e.lastResolve }

// Backlog returns the days still waiting to be explained, in logged order.
func (e *Engine) Backlog() []*models.DayRecord {
	out := make([]*models.DayRecord, len(e.backlog))
	copy(out, e.backlog)
	return out
}

// Day returns the backlog day logged for date.
func (e *Engine) Day(date models.DateKey) (*models.DayRecord, bool) {
	for _, day := range e.backlog {
		if day.Date == date {
			return day, true
		}
	}
	return nil, false
}

// RemoveDay drops date from the backlog without attributing it.
func (e *Engine) RemoveDay(date models.DateKey) bool {
	for i, day := range e.backlog {
		if day.Date == date {
			e.backlog = append(e.backlog[:i:i], e.backlog[i+1:]...)
			return true
		}
	}
	return false
}

// AddDay logs a day and resolves the backlog. It returns false, and
// changes nothing, when date was already logged and overwrite is not set.
//
// A day counts as already logged while it waits in the backlog, and also
// when it is the most recent end-of-day snapshot, so a day that resolved
// straight away cannot be counted twice by accident. Overwriting a day that
// already resolved logs it again; its earlier contribution stays.
func (e *Engine) AddDay(date models.DateKey, occurrences []models.Occurrence, startingEnergy, endingEnergy float64, overwrite bool) (bool, error) {
	day := &models.DayRecord{
		Date:           date,
		StartingEnergy: startingEnergy,
		EndingEnergy:   endingEnergy,
		Occurrences:    append([]models.Occurrence{}, occurrences...),
	}
	if err := day.Validate(); err != nil {
		return false, fmt.Errorf("invalid day: %w", err)
	}

	existing := -1
	for i, d := range e.backlog {
		if d.Date == date {
			existing = i
			break
		}
	}
	lastLogged := e.lastEndOfDay.Date != nil && *e.lastEndOfDay.Date == date
	if (existing >= 0 || lastLogged) && !overwrite {
		logger.Debug("AddDay: %s already logged, overwrite not confirmed", date)
		return false, nil
	}

	e.recordSleep(date, startingEnergy)
	e.advanceEndOfDay(date, endingEnergy)
	e.flagUnknowns(day.Occurrences)

	if existing >= 0 {
		e.backlog[existing] = day
	} else {
		e.backlog = append(e.backlog, day)
	}

	e.Resolve()
	return true, nil
}

// recordSleep adds the overnight change between the previous logged day and
// a newer one. Back-filled days do not describe a night and are skipped.
func (e *Engine) recordSleep(date models.DateKey, startingEnergy float64) {
	if !e.lastEndOfDay.Known() || date <= *e.lastEndOfDay.Date {
		return
	}
	delta := startingEnergy - *e.lastEndOfDay.Value
	e.sleep.AddSample(models.Known(delta))
	logger.Debug("Sleep sample %+.2f between %s and %s", delta, *e.lastEndOfDay.Date, date)
}

// advanceEndOfDay moves the snapshot forward; it never moves back in time.
func (e *Engine) advanceEndOfDay(date models.DateKey, level float64) {
	if e.lastEndOfDay.Date != nil && date < *e.lastEndOfDay.Date {
		return
	}
	e.lastEndOfDay = models.NewEndOfDay(date, level)
}

// flagUnknowns marks activities logged without a value so they show up as
// needing one, unless the registry can already estimate them.
func (e *Engine) flagUnknowns(occurrences []models.Occurrence) {
	for _, occ := range occurrences {
		if occ.Value.IsKnown() {
			continue
		}
		series, exists := e.registry.Lookup(occ.Name)
		if exists && series.HasValue() {
			continue
		}
		if exists {
			if last, ok := series.Last(); ok && !last.IsKnown() {
				continue
			}
		}
		unknown := models.Unknown()
		e.registry.Upsert(occ.Name, &unknown)
	}
}

// ErrNoEstimate is returned by queries that need a value the registry does
// not have yet.
var ErrNoEstimate = errors.New("no estimate available")

// sortBacklogByWork orders days with fewer occurrences first. Cheap days
// resolve first and feed what they teach to the harder ones.
func sortBacklogByWork(days []*models.DayRecord) {
	sort.SliceStable(days, func(i, j int) bool {
		return len(days[i].Occurrences) < len(days[j].Occurrences)
	})
}
