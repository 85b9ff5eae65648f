package main

import (
	"fmt"
	"io"

	"github.com/rewired-gh/humanbattery/internal/models"
	"github.com/rewired-gh/humanbattery/internal/report"
	"github.com/rewired-gh/humanbattery/internal/telegram"
	"github.com/spf13/cobra"
)

func (a *app) reportCmd() *cobra.Command {
	var (
		by         string
		ascending  bool
		confident  bool
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Rank activities by their effect on energy.",
		Long: `Rank every tracked activity by its estimated energy change (drains first)
or by its total impact.

Examples:
  # Biggest boosts first
  humanbattery report --asc=false

  # Only activities with enough samples to trust, as CSV
  humanbattery report --confident --output csv --output-file activities.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := a.profile.Engine.Registry()
			if confident {
				reg = reg.ConfidentSubset(a.cfg.Engine.ConfidentThreshold)
			}

			var series []*models.ValueSeries
			switch by {
			case "estimate":
				series = reg.RankByEstimate(ascending)
			case "impact":
				series = reg.RankByImpact(ascending)
			default:
				return fmt.Errorf("unknown ranking %q (want estimate or impact)", by)
			}

			return emit(cmd, outputFile, func(w io.Writer) error {
				return report.WriteActivities(w, series, a.reportOptions())
			})
		},
	}

	cmd.Flags().StringVar(&by, "by", "estimate", "Rank by estimate or impact")
	cmd.Flags().BoolVar(&ascending, "asc", true, "Lowest first (biggest drains when ranking by estimate)")
	cmd.Flags().BoolVar(&confident, "confident", false, "Only activities with enough samples")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "Optional path to write output to")
	return cmd
}

func (a *app) pendingCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Show activities needing a value and unexplained days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := a.profile.Engine
			p := report.BuildPending(e.Registry().NeedingValues(), e.Backlog())
			return emit(cmd, outputFile, func(w io.Writer) error {
				return report.WritePending(w, p, a.reportOptions())
			})
		},
	}

	cmd.Flags().StringVar(&outputFile, "output-file", "", "Optional path to write output to")
	return cmd
}

func (a *app) sleepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sleep",
		Short: "Show how much a night's sleep restores.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := a.profile.Engine
			r := report.BuildSleepReport(
				e.Sleep(),
				e.LastEndOfDay(),
				e.EstimatedStartingEnergy(a.cfg.Engine.DefaultEnergy),
				a.cfg.Output.Precision,
			)
			return report.WriteSleep(cmd.OutOrStdout(), r, a.reportOptions())
		},
	}
}

func (a *app) namesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "names",
		Short: "List tracked activity names.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return report.WriteNames(cmd.OutOrStdout(), a.profile.Engine.Registry().Names())
		},
	}
}

func (a *app) notifyCmd() *cobra.Command {
	var (
		top    int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a daily summary to Telegram.",
		Long: `Build a short summary (top drains and boosts, sleep, pending work) and send it
to the configured Telegram chat. With Telegram disabled, or with --dry-run,
the summary is printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary := report.BuildSummary(
				a.profile.Name,
				a.profile.Engine,
				top,
				a.cfg.Engine.ConfidentThreshold,
				a.cfg.Engine.DefaultEnergy,
			)

			tg := a.cfg.Telegram
			if dryRun || !tg.Enabled {
				_, err := fmt.Fprint(cmd.OutOrStdout(), summary.Text(a.cfg.Output.Precision))
				return err
			}

			client, err := telegram.NewClient(tg.BotToken, tg.ChatID, tg.MaxRetries, tg.RetryDelayBase, a.cfg.Output.Precision)
			if err != nil {
				return fmt.Errorf("failed to initialize Telegram client: %w", err)
			}
			if err := client.Send(cmd.Context(), summary); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Summary sent.")
			return err
		},
	}

	cmd.Flags().IntVar(&top, "top", 3, "Number of drains and boosts to include")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the summary instead of sending it")
	return cmd
}
