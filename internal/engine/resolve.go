package engine

import (
	"errors"
	"sort"

	"github.com/rewired-gh/humanbattery/internal/logger"
	"github.com/rewired-gh/humanbattery/internal/models"
)

// ResolveResult summarizes one Resolve call.
type ResolveResult struct {
	// Resolved lists the days removed from the backlog, in removal order.
	Resolved []models.DateKey
	// Passes is the number of passes run over the backlog.
	Passes int
	// Restarts counts passes cut short because a day taught the registry
	// something new.
	Restarts int
	// Deferred is the number of days left in the backlog.
	Deferred int
	// Capped is set when the pass limit stopped the loop early.
	Capped bool
	// Errors lists days whose stored occurrences could not be decoded.
	// They stay in the backlog and are retried on every call.
	Errors []models.CorruptDayError
}

// passLimit bounds the passes of one Resolve call for a backlog of the
// given size. It is a package-level var to allow test injection.
var passLimit = func(backlog int) int { return backlog + 2 }

type outcome int

const (
	deferred outcome = iota
	// progressed means explicit values were applied but the day stays.
	progressed
	resolved
	// resolvedRestart means registry knowledge changed enough that days
	// already visited in this pass may now be solvable.
	resolvedRestart
)

// Resolve explains as much of the backlog as the registry allows. A pass
// that removes a day or applies an explicit value is followed by another
// pass; the loop stops at the first pass without progress. Every pass but
// the last removes a day or drains the explicit values, so the loop is
// capped at two more passes than the starting backlog size.
//
// Calling Resolve again without adding a day changes nothing.
func (e *Engine) Resolve() ResolveResult {
	var result ResolveResult
	corrupt := make(map[models.DateKey]models.CorruptDayError)

	limit := passLimit(len(e.backlog))
	for {
		result.Passes++
		if !e.pass(&result, corrupt) {
			break
		}
		if result.Passes >= limit {
			result.Capped = true
			logger.Warn("Resolve stopped after %d passes with %d days left", result.Passes, len(e.backlog))
			break
		}
	}

	for _, err := range corrupt {
		result.Errors = append(result.Errors, err)
	}
	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].Date < result.Errors[j].Date
	})
	result.Deferred = len(e.backlog)

	logger.Debug("Resolve statistics: passes=%d, restarts=%d, resolved=%d, deferred=%d, corrupt=%d",
		result.Passes, result.Restarts, len(result.Resolved), result.Deferred, len(result.Errors))

	e.lastResolve = result
	return result
}

// pass runs once over the backlog and reports whether it made progress.
func (e *Engine) pass(result *ResolveResult, corrupt map[models.DateKey]models.CorruptDayError) bool {
	ready := make([]*models.DayRecord, 0, len(e.backlog))
	for _, day := range e.backlog {
		if err := day.Normalize(); err != nil {
			var cde models.CorruptDayError
			if errors.As(err, &cde) {
				if _, seen := corrupt[day.Date]; !seen {
					logger.Warn("Skipping day %s: %v", day.Date, cde.Err)
				}
				corrupt[day.Date] = cde
			}
			continue
		}
		models.SortOccurrences(day.Occurrences)
		ready = append(ready, day)
	}
	sortBacklogByWork(ready)

	removed := make(map[*models.DayRecord]bool)
	progress := false
	for _, day := range ready {
		switch e.resolveDay(day) {
		case progressed:
			progress = true
		case resolved:
			removed[day] = true
			result.Resolved = append(result.Resolved, day.Date)
			progress = true
		case resolvedRestart:
			removed[day] = true
			result.Resolved = append(result.Resolved, day.Date)
			e.dropRemoved(removed)
			result.Restarts++
			return true
		}
	}
	e.dropRemoved(removed)
	return progress
}

// dropRemoved rebuilds the backlog without the removed days, keeping the
// logged order of the rest.
func (e *Engine) dropRemoved(removed map[*models.DayRecord]bool) {
	if len(removed) == 0 {
		return
	}
	kept := make([]*models.DayRecord, 0, len(e.backlog)-len(removed))
	for _, day := range e.backlog {
		if !removed[day] {
			kept = append(kept, day)
		}
	}
	e.backlog = kept
}

// resolveDay applies the attribution rules to one normalized day.
func (e *Engine) resolveDay(day *models.DayRecord) outcome {
	if len(day.Occurrences) == 0 {
		return e.resolveEmptyDay(day)
	}

	applied := e.applyExplicitValues(day)
	total := day.EnergyTotal()
	if len(day.Occurrences) == 0 {
		logger.Debug("Day %s explained by explicit values, residual %+.2f", day.Date, total)
		return resolved
	}

	if e.adjustAllKnown(day, total) {
		return resolved
	}

	working := total
	var unknowns []models.Occurrence
	for _, occ := range day.Occurrences {
		if est, ok := e.registry.Estimate(occ.Name); ok {
			working -= est
			continue
		}
		unknowns = append(unknowns, occ)
	}

	switch {
	case len(unknowns) == 1:
		value := models.Known(working)
		e.registry.Upsert(unknowns[0].Name, &value)
		logger.Debug("Day %s: %s = %+.2f by elimination", day.Date, unknowns[0].Name, working)
		return resolvedRestart

	case len(unknowns) > 1 && sameActivity(unknowns):
		share := working / float64(len(unknowns))
		value := models.Known(share)
		e.registry.Upsert(unknowns[0].Name, &value)
		logger.Debug("Day %s: %s = %+.2f split over %d occurrences", day.Date, unknowns[0].Name, share, len(unknowns))
		return resolvedRestart
	}

	if applied {
		return progressed
	}
	return deferred
}

// resolveEmptyDay handles a day with nothing left to attribute. A day that
// never had occurrences is pure rest and feeds the sleep series; a zero
// change is an empty save and is dropped.
func (e *Engine) resolveEmptyDay(day *models.DayRecord) outcome {
	if day.Settled != 0 {
		return resolved
	}
	total := day.EnergyTotal()
	if total == 0 {
		logger.Debug("Discarding empty day %s", day.Date)
		return resolved
	}
	e.sleep.AddSample(models.Known(total))
	e.advanceEndOfDay(day.Date, day.EndingEnergy)
	logger.Debug("Day %s without activities: sleep sample %+.2f", day.Date, total)
	return resolved
}

// applyExplicitValues moves every occurrence with a typed-in value into the
// registry and into day.Settled. It reports whether anything was applied.
func (e *Engine) applyExplicitValues(day *models.DayRecord) bool {
	remaining := make([]models.Occurrence, 0, len(day.Occurrences))
	applied := false
	for _, occ := range day.Occurrences {
		v, ok := occ.Value.Value()
		if !ok {
			remaining = append(remaining, occ)
			continue
		}
		value := models.Known(v)
		e.registry.Upsert(occ.Name, &value)
		day.Settled += v
		applied = true
	}
	day.Occurrences = remaining
	return applied
}

// adjustAllKnown handles a day whose every remaining activity already has an
// estimate: the gap between the day's total and the expected total is
// shared equally and each activity learns estimate plus its share.
func (e *Engine) adjustAllKnown(day *models.DayRecord, total float64) bool {
	estimates := make([]float64, len(day.Occurrences))
	expected := 0.0
	for i, occ := range day.Occurrences {
		est, ok := e.registry.Estimate(occ.Name)
		if !ok {
			return false
		}
		estimates[i] = est
		expected += est
	}

	adjustment := (total - expected) / float64(len(day.Occurrences))
	for i, occ := range day.Occurrences {
		value := models.Known(estimates[i] + adjustment)
		e.registry.Upsert(occ.Name, &value)
	}
	logger.Debug("Day %s: all activities known, adjustment %+.2f each", day.Date, adjustment)
	return true
}

func sameActivity(occurrences []models.Occurrence) bool {
	for _, occ := range occurrences[1:] {
		if occ.Name != occurrences[0].Name {
			return false
		}
	}
	return true
}
