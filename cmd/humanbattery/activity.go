package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rewired-gh/humanbattery/internal/logger"
	"github.com/rewired-gh/humanbattery/internal/models"
	"github.com/rewired-gh/humanbattery/internal/profile"
	"github.com/spf13/cobra"
)

func (a *app) activityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Adjust a tracked activity.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "fixed NAME VALUE",
			Short: "Pin an activity to a fixed value.",
			Long: `Pin an activity's estimate to VALUE regardless of its samples. Pending days
are re-examined afterwards.`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				value, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
				if err != nil || !models.IsFinite(value) {
					return fmt.Errorf("invalid value %q", args[1])
				}
				if value < profile.MinActivityValue || value > profile.MaxActivityValue {
					return fmt.Errorf("value must be between %.0f and %.0f", profile.MinActivityValue, profile.MaxActivityValue)
				}
				return a.updateActivity(cmd, args[0], true, func(s *models.ValueSeries) {
					s.SetFixed(value)
				})
			},
		},
		&cobra.Command{
			Use:   "unfix NAME",
			Short: "Go back to estimating an activity from its samples.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.updateActivity(cmd, args[0], true, (*models.ValueSeries).ClearFixed)
			},
		},
		&cobra.Command{
			Use:   "note NAME TEXT...",
			Short: "Attach a note to an activity.",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				note := strings.Join(args[1:], " ")
				return a.updateActivity(cmd, args[0], false, func(s *models.ValueSeries) {
					s.SetNote(note)
				})
			},
		},
		&cobra.Command{
			Use:   "remove NAME",
			Short: "Forget an activity and its samples.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if !a.profile.Engine.Registry().Remove(args[0]) {
					return fmt.Errorf("unknown activity %q", args[0])
				}
				if err := a.save(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", args[0])
				return err
			},
		},
	)
	return cmd
}

// updateActivity applies change to the named activity and saves. With
// resolve set, pending days are re-examined before saving.
func (a *app) updateActivity(cmd *cobra.Command, name string, resolve bool, change func(*models.ValueSeries)) error {
	e := a.profile.Engine
	series, ok := e.Registry().Lookup(name)
	if !ok {
		return fmt.Errorf("unknown activity %q", name)
	}
	change(series)

	if resolve {
		result := e.Resolve()
		if len(result.Resolved) > 0 {
			logger.Info("Explained %d pending day(s)", len(result.Resolved))
		}
	}
	if err := a.save(cmd.Context()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Updated %s.\n", name)
	return err
}
