package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rewired-gh/humanbattery/internal/engine"
	"github.com/rewired-gh/humanbattery/internal/logger"
	"github.com/rewired-gh/humanbattery/internal/models"
	"github.com/rewired-gh/humanbattery/internal/profile"
	"github.com/rewired-gh/humanbattery/internal/report"
	"github.com/spf13/cobra"
)

func (a *app) logCmd() *cobra.Command {
	var (
		date      string
		start     float64
		end       float64
		overwrite bool
		fill      bool
	)

	cmd := &cobra.Command{
		Use:   "log [activity...]",
		Short: "Log a day's energy and activities.",
		Long: `Log one day: the energy you started and ended with, and what you did.

Each activity is NAME[*COUNT][=VALUE]. COUNT is a number or once, twice,
thrice or "a lot". VALUE is the energy the activity cost (negative) or gave
(positive); leave it out to let humanbattery work it out.

Examples:
  # A day with two unknown activities
  humanbattery log --start 70 --end 35 Work Gym

  # Yesterday, with a known cost and a repeated activity
  humanbattery log --date 2024-03-01 --end 40 "Meeting*3" Walk=5

  # Use current estimates for activities that already have one
  humanbattery log --end 30 --fill Work Gym`,
		RunE: func(cmd *cobra.Command, args []string) error {
			day := models.DateKeyOf(a.now())
			if date != "" {
				parsed, err := models.ParseDateKey(date)
				if err != nil {
					return err
				}
				day = parsed
			}

			e := a.profile.Engine
			if !cmd.Flags().Changed("start") {
				start = e.EstimatedStartingEnergy(a.cfg.Engine.DefaultEnergy)
				logger.Info("Starting energy not given, using estimate %.1f", start)
			}

			var occurrences []models.Occurrence
			for _, arg := range args {
				occ, err := profile.ParseActivityArg(arg)
				if err != nil {
					return err
				}
				occurrences = append(occurrences, occ...)
			}
			if fill {
				occurrences = e.FillUnknowns(occurrences)
			}

			added, result, err := a.profile.LogDay(day, occurrences, engine.ClampEnergy(start), engine.ClampEnergy(end), overwrite)
			if err != nil {
				return err
			}
			if !added {
				return fmt.Errorf("day %s is already logged; use --overwrite to replace it", day)
			}
			if err := a.save(cmd.Context()); err != nil {
				return err
			}
			return report.WriteResolution(cmd.OutOrStdout(), result, a.reportOptions())
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day to log as YYYY-MM-DD (default today)")
	cmd.Flags().Float64Var(&start, "start", 0, "Energy at the start of the day, 0-100 (default estimated)")
	cmd.Flags().Float64Var(&end, "end", 0, "Energy at the end of the day, 0-100")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the day if it is already logged")
	cmd.Flags().BoolVar(&fill, "fill", false, "Use current estimates for activities given without a value")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func (a *app) thinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "think",
		Short: "Re-run attribution over the pending days.",
		Long: `Run attribution again over every day that is not fully explained yet.

Logging a day already does this; think is useful after fixing an activity's
value or restoring a backup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result := a.profile.Engine.Resolve()
			if err := a.save(cmd.Context()); err != nil {
				return err
			}
			return report.WriteResolution(cmd.OutOrStdout(), result, a.reportOptions())
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Log days from a YAML file.",
		Long: `Log every day listed in a YAML file, in file order. Use - to read stdin.

  - date: 2024-03-01
    start: 60
    end: 35
    activities:
      - name: Run
        value: -10
      - name: Chores
        count: twice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open import file: %w", err)
				}
				defer file.Close()
				r = file
			}

			result, err := a.profile.ImportDays(r, overwrite)
			if len(result.Added) > 0 {
				if saveErr := a.save(cmd.Context()); saveErr != nil {
					return saveErr
				}
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d day(s).\n", len(result.Added))
			if len(result.Skipped) > 0 {
				fmt.Fprintf(out, "Skipped %d already logged: %v (use --overwrite to replace)\n", len(result.Skipped), result.Skipped)
			}
			return report.WriteResolution(out, a.profile.Engine.LastResolve(), a.reportOptions())
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace days that are already logged")
	return cmd
}

func (a *app) forecastCmd() *cobra.Command {
	var start float64

	cmd := &cobra.Command{
		Use:   "forecast activity...",
		Short: "Predict how a planned day ends.",
		Long: `Add up the estimates of a planned day and predict the end-of-day and
next-morning energy. Each activity is NAME[*COUNT].

Examples:
  humanbattery forecast Work "Meeting*2" Walk
  humanbattery forecast --start 40 Gym --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := a.profile.Engine
			if !cmd.Flags().Changed("start") {
				start = e.EstimatedStartingEnergy(a.cfg.Engine.DefaultEnergy)
			}
			if !models.IsFinite(start) {
				return fmt.Errorf("invalid starting energy %v", start)
			}

			plan := make([]engine.PlannedActivity, 0, len(args))
			for _, arg := range args {
				item, err := profile.ParsePlanArg(arg)
				if err != nil {
					return err
				}
				plan = append(plan, item)
			}

			f := e.Forecast(engine.ClampEnergy(start), plan)
			if len(f.Missing) > 0 {
				logger.Info("No estimate for %v", f.Missing)
			}
			return report.WriteForecast(cmd.OutOrStdout(), f, a.reportOptions())
		},
	}

	cmd.Flags().Float64Var(&start, "start", 0, "Starting energy, 0-100 (default estimated)")
	return cmd
}
