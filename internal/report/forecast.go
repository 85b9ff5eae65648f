package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rewired-gh/humanbattery/internal/engine"
	"github.com/rewired-gh/humanbattery/internal/models"
)

func (o Options) balance(b engine.Balance) string {
	text := string(b)
	if !o.UseColors {
		return text
	}
	switch b {
	case engine.Deficit:
		return DrainColor.Sprint(text)
	case engine.Surplus:
		return BoostColor.Sprint(text)
	default:
		return NeutralColor.Sprint(text)
	}
}

// WriteForecast renders a planned day line by line with the verdict.
func WriteForecast(w io.Writer, f engine.Forecast, opts Options) error {
	switch opts.Format {
	case JSONOut:
		return writeJSON(w, f)
	case CSVOut:
		return writeCSVWithHeader(w, []string{"name", "count", "estimate", "subtotal", "running_total", "known"}, func(cw *csv.Writer) error {
			for _, l := range f.Lines {
				rec := []string{
					l.Name,
					strconv.Itoa(l.Count),
					opts.fmtFloat(l.Estimate),
					opts.fmtFloat(l.Subtotal),
					opts.fmtFloat(l.RunningTotal),
					strconv.FormatBool(l.Known),
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
			return nil
		})
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Activity", "Count", "Each", "Subtotal", "Running"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, l := range f.Lines {
		data = append(data, []string{
			l.Name,
			strconv.Itoa(l.Count),
			opts.fmtOptional(l.Estimate, l.Known),
			opts.fmtFloat(l.Subtotal),
			opts.fmtFloat(l.RunningTotal),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Start %s, end of day %s, next morning %s (sleep %+.*f): %s\n",
		opts.fmtFloat(f.StartingEnergy), opts.fmtFloat(f.EndingEnergy), opts.fmtFloat(f.NextMorning),
		opts.Precision, f.SleepEstimate, opts.balance(f.Balance)); err != nil {
		return err
	}
	if len(f.Missing) > 0 {
		if _, err := fmt.Fprintf(w, "No estimate yet for: %v (counted as 0)\n", f.Missing); err != nil {
			return err
		}
	}
	return nil
}

// SleepReport summarizes the sleep series and the next expected start.
type SleepReport struct {
	Samples          int      `json:"samples"`
	Estimate         *float64 `json:"estimate"`
	Min              *float64 `json:"min"`
	Max              *float64 `json:"max"`
	LastDate         *string  `json:"last_date"`
	LastLevel        *float64 `json:"last_level"`
	EstimatedStart   float64  `json:"estimated_start"`
	RangeDescription string   `json:"range"`
}

// BuildSleepReport collects the sleep readings.
func BuildSleepReport(sleep *models.ValueSeries, eod models.EndOfDay, estimatedStart float64, precision int) SleepReport {
	est, estOK := sleep.Estimate()
	lo, hi, rangeOK := sleep.Range()
	r := SleepReport{
		Samples:          sleep.Len(),
		Estimate:         optional(est, estOK),
		Min:              optional(lo, rangeOK),
		Max:              optional(hi, rangeOK),
		EstimatedStart:   estimatedStart,
		RangeDescription: sleep.RangeString(precision),
	}
	if eod.Date != nil {
		d := string(*eod.Date)
		r.LastDate = &d
	}
	r.LastLevel = eod.Value
	return r
}

// WriteSleep renders the sleep summary.
func WriteSleep(w io.Writer, r SleepReport, opts Options) error {
	switch opts.Format {
	case JSONOut:
		return writeJSON(w, r)
	case CSVOut:
		ptr := func(v *float64) string {
			if v == nil {
				return ""
			}
			return opts.fmtFloat(*v)
		}
		return writeCSVWithHeader(w, []string{"samples", "estimate", "min", "max", "estimated_start"}, func(cw *csv.Writer) error {
			return cw.Write([]string{
				strconv.Itoa(r.Samples), ptr(r.Estimate), ptr(r.Min), ptr(r.Max), opts.fmtFloat(r.EstimatedStart),
			})
		})
	}

	if r.Estimate == nil {
		if _, err := fmt.Fprintln(w, "No nights recorded yet."); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintf(w, "Sleep restores %s on average %s over %d nights.\n",
			opts.fmtFloat(*r.Estimate), r.RangeDescription, r.Samples); err != nil {
			return err
		}
	}
	if r.LastDate != nil && r.LastLevel != nil {
		if _, err := fmt.Fprintf(w, "Last logged: %s ending at %s.\n", *r.LastDate, opts.fmtFloat(*r.LastLevel)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Estimated starting energy: %s\n", opts.fmtFloat(r.EstimatedStart))
	return err
}

// WriteResolution reports what a resolve run achieved.
func WriteResolution(w io.Writer, res engine.ResolveResult, opts Options) error {
	if opts.Format == JSONOut {
		type corruptDay struct {
			Date  models.DateKey `json:"date"`
			Error string         `json:"error"`
		}
		out := struct {
			Resolved []models.DateKey `json:"resolved"`
			Deferred int              `json:"deferred"`
			Passes   int              `json:"passes"`
			Restarts int              `json:"restarts"`
			Capped   bool             `json:"capped"`
			Errors   []corruptDay     `json:"errors"`
		}{
			Resolved: res.Resolved,
			Deferred: res.Deferred,
			Passes:   res.Passes,
			Restarts: res.Restarts,
			Capped:   res.Capped,
			Errors:   []corruptDay{},
		}
		if out.Resolved == nil {
			out.Resolved = []models.DateKey{}
		}
		for _, e := range res.Errors {
			out.Errors = append(out.Errors, corruptDay{Date: e.Date, Error: e.Err.Error()})
		}
		return writeJSON(w, out)
	}
	if _, err := fmt.Fprintf(w, "Explained %d day(s), %d still pending.\n", len(res.Resolved), res.Deferred); err != nil {
		return err
	}
	for _, e := range res.Errors {
		if _, err := fmt.Fprintf(w, "Could not read %s: %v\n", e.Date, e.Err); err != nil {
			return err
		}
	}
	return nil
}
