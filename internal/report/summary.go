package report

import (
	"fmt"
	"strings"

	"github.com/rewired-gh/humanbattery/internal/engine"
	"github.com/rewired-gh/humanbattery/internal/registry"
)

// Entry is one activity in a summary.
type Entry struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"estimate"`
}

// Summary is a short digest of a profile, sent as the daily notification.
type Summary struct {
	Profile        string   `json:"profile"`
	Drains         []Entry  `json:"drains"`
	Boosts         []Entry  `json:"boosts"`
	Pending        []string `json:"pending"`
	Backlog        int      `json:"backlog"`
	SleepEstimate  *float64 `json:"sleep_estimate"`
	EstimatedStart float64  `json:"estimated_start"`
}

// BuildSummary picks the top n drains and boosts among the confident
// activities of e.
func BuildSummary(name string, e *engine.Engine, n, confidentThreshold int, defaultEnergy float64) Summary {
	s := Summary{
		Profile:        name,
		Drains:         []Entry{},
		Boosts:         []Entry{},
		Pending:        []string{},
		Backlog:        len(e.Backlog()),
		EstimatedStart: e.EstimatedStartingEnergy(defaultEnergy),
	}

	confident := e.Registry().ConfidentSubset(confidentThreshold)
	s.Drains = topEntries(confident, true, n, func(v float64) bool { return v < 0 })
	s.Boosts = topEntries(confident, false, n, func(v float64) bool { return v > 0 })

	for _, series := range e.Registry().NeedingValues() {
		s.Pending = append(s.Pending, series.Name())
	}
	if est, ok := e.Sleep().Estimate(); ok {
		s.SleepEstimate = &est
	}
	return s
}

func topEntries(reg *registry.Registry, ascending bool, n int, keep func(float64) bool) []Entry {
	out := []Entry{}
	for _, series := range reg.RankByEstimate(ascending) {
		if len(out) == n {
			break
		}
		est, ok := series.Estimate()
		if !ok || !keep(est) {
			continue
		}
		out = append(out, Entry{Name: series.Name(), Estimate: est})
	}
	return out
}

// Text renders the summary as plain text.
func (s Summary) Text(precision int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Energy summary for %s\n", s.Profile)
	fmt.Fprintf(&b, "Estimated starting energy: %.*f\n", precision, s.EstimatedStart)
	if s.SleepEstimate != nil {
		fmt.Fprintf(&b, "Sleep: %+.*f\n", precision, *s.SleepEstimate)
	}
	writeEntries(&b, "Biggest drains", s.Drains, precision)
	writeEntries(&b, "Best boosts", s.Boosts, precision)
	if len(s.Pending) > 0 {
		fmt.Fprintf(&b, "Needs a value: %s\n", strings.Join(s.Pending, ", "))
	}
	if s.Backlog > 0 {
		fmt.Fprintf(&b, "Days pending: %d\n", s.Backlog)
	}
	return b.String()
}

func writeEntries(b *strings.Builder, title string, entries []Entry, precision int) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, e := range entries {
		fmt.Fprintf(b, "  %s %+.*f\n", e.Name, precision, e.Estimate)
	}
}
