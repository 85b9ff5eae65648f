// Package report renders registry rankings, pending work, sleep and
// forecasts as tables, JSON or CSV.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Output formats.
const (
	TableOut = "table"
	JSONOut  = "json"
	CSVOut   = "csv"
)

// Options controls rendering.
type Options struct {
	Format    string
	Precision int
	UseColors bool
}

// Energy labels.
const (
	DrainValue   = "Drain"
	BoostValue   = "Boost"
	NeutralValue = "Neutral"
	UnknownValue = "Unknown"
)

// Color variables for console output.
var (
	DrainColor   = color.New(color.FgRed, color.Bold)
	BoostColor   = color.New(color.FgGreen, color.Bold)
	NeutralColor = color.New(color.FgYellow)
	UnknownColor = color.New(color.FgCyan)
)

// PlainLabel classifies an estimate. Negative values cost energy.
func PlainLabel(estimate float64, ok bool) string {
	switch {
	case !ok:
		return UnknownValue
	case estimate < 0:
		return DrainValue
	case estimate > 0:
		return BoostValue
	default:
		return NeutralValue
	}
}

func (o Options) label(estimate float64, ok bool) string {
	text := PlainLabel(estimate, ok)
	if !o.UseColors {
		return text
	}
	switch text {
	case DrainValue:
		return DrainColor.Sprint(text)
	case BoostValue:
		return BoostColor.Sprint(text)
	case NeutralValue:
		return NeutralColor.Sprint(text)
	default:
		return UnknownColor.Sprint(text)
	}
}

// fmtFloat formats v with the configured precision.
func (o Options) fmtFloat(v float64) string {
	return fmt.Sprintf("%.*f", o.Precision, v)
}

// fmtOptional formats v, or returns "-" when it is undefined.
func (o Options) fmtOptional(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return o.fmtFloat(v)
}

// WithFile runs write against the file at path, or stdout when path is
// empty.
func WithFile(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader writes header and then the rows produced by writeRows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writeRows(csvWriter); err != nil {
		return err
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
