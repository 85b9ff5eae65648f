package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rewired-gh/humanbattery/internal/models"
)

// ActivityRow is one ranked activity.
type ActivityRow struct {
	Rank     int      `json:"rank"`
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Estimate *float64 `json:"estimate"`
	Total    *float64 `json:"total"`
	Impact   float64  `json:"impact"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Samples  int      `json:"samples"`
	Fixed    *float64 `json:"fixed_value"`
	Note     string   `json:"note,omitempty"`
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// ActivityRows converts ranked series into rows, keeping their order.
func ActivityRows(series []*models.ValueSeries) []ActivityRow {
	rows := make([]ActivityRow, len(series))
	for i, s := range series {
		est, estOK := s.Estimate()
		total, totalOK := s.Total()
		lo, hi, rangeOK := s.Range()
		fixed, fixedOK := s.Fixed()
		rows[i] = ActivityRow{
			Rank:     i + 1,
			Name:     s.Name(),
			Label:    PlainLabel(est, estOK),
			Estimate: optional(est, estOK),
			Total:    optional(total, totalOK),
			Impact:   s.Impact(),
			Min:      optional(lo, rangeOK),
			Max:      optional(hi, rangeOK),
			Samples:  s.Len(),
			Fixed:    optional(fixed, fixedOK),
			Note:     s.Note(),
		}
	}
	return rows
}

// WriteActivities renders a ranking in the configured format.
func WriteActivities(w io.Writer, series []*models.ValueSeries, opts Options) error {
	rows := ActivityRows(series)
	switch opts.Format {
	case JSONOut:
		return writeJSON(w, rows)
	case CSVOut:
		return writeActivitiesCSV(w, rows, opts)
	default:
		return writeActivitiesTable(w, series, opts)
	}
}

func writeActivitiesTable(w io.Writer, series []*models.ValueSeries, opts Options) error {
	if len(series) == 0 {
		_, err := fmt.Fprintln(w, "No activities tracked yet.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Activity", "Estimate", "Range", "Impact", "Samples", "Label", "Note"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, s := range series {
		est, ok := s.Estimate()
		estimate := opts.fmtOptional(est, ok)
		if _, fixed := s.Fixed(); fixed {
			estimate += " (fixed)"
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			s.Name(),
			estimate,
			s.RangeString(opts.Precision),
			opts.fmtFloat(s.Impact()),
			strconv.Itoa(s.Len()),
			opts.label(est, ok),
			s.Note(),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeActivitiesCSV(w io.Writer, rows []ActivityRow, opts Options) error {
	header := []string{"rank", "name", "label", "estimate", "total", "impact", "min", "max", "samples", "fixed_value", "note"}
	ptr := func(v *float64) string {
		if v == nil {
			return ""
		}
		return opts.fmtFloat(*v)
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range rows {
			rec := []string{
				strconv.Itoa(r.Rank),
				r.Name,
				r.Label,
				ptr(r.Estimate),
				ptr(r.Total),
				opts.fmtFloat(r.Impact),
				ptr(r.Min),
				ptr(r.Max),
				strconv.Itoa(r.Samples),
				ptr(r.Fixed),
				r.Note,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// PendingDay is a backlog day still waiting for values.
type PendingDay struct {
	Date        models.DateKey `json:"date"`
	EnergyTotal float64        `json:"energy_total"`
	Activities  []string       `json:"activities"`
	Corrupt     bool           `json:"corrupt,omitempty"`
}

// Pending lists activities needing a value and the days they hold up.
type Pending struct {
	Activities []string     `json:"activities"`
	Days       []PendingDay `json:"days"`
}

// BuildPending collects what is still unexplained.
func BuildPending(needing []*models.ValueSeries, backlog []*models.DayRecord) Pending {
	p := Pending{Activities: []string{}, Days: []PendingDay{}}
	for _, s := range needing {
		p.Activities = append(p.Activities, s.Name())
	}
	for _, day := range backlog {
		pd := PendingDay{
			Date:        day.Date,
			EnergyTotal: day.EnergyTotal(),
			Activities:  []string{},
			Corrupt:     !day.Normalized(),
		}
		for _, occ := range day.Occurrences {
			pd.Activities = append(pd.Activities, occ.Name)
		}
		p.Days = append(p.Days, pd)
	}
	return p
}

// WritePending renders the pending activities and days.
func WritePending(w io.Writer, p Pending, opts Options) error {
	switch opts.Format {
	case JSONOut:
		return writeJSON(w, p)
	case CSVOut:
		return writeCSVWithHeader(w, []string{"date", "energy_total", "activities", "corrupt"}, func(cw *csv.Writer) error {
			for _, d := range p.Days {
				rec := []string{
					string(d.Date),
					opts.fmtFloat(d.EnergyTotal),
					strings.Join(d.Activities, "|"),
					strconv.FormatBool(d.Corrupt),
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if len(p.Activities) == 0 && len(p.Days) == 0 {
		_, err := fmt.Fprintln(w, "Nothing pending. Every logged day is explained.")
		return err
	}
	if len(p.Activities) > 0 {
		if _, err := fmt.Fprintf(w, "Activities needing a value: %s\n", strings.Join(p.Activities, ", ")); err != nil {
			return err
		}
	}
	if len(p.Days) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Date", "Unexplained", "Activities"})
	var data [][]string
	for _, d := range p.Days {
		activities := strings.Join(d.Activities, ", ")
		if d.Corrupt {
			activities = "(unreadable)"
		}
		data = append(data, []string{string(d.Date), opts.fmtFloat(d.EnergyTotal), activities})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// WriteNames prints one name per line.
func WriteNames(w io.Writer, names []string) error {
	for _, name := range names {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}
