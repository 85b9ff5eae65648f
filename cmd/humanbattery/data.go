package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rewired-gh/humanbattery/internal/storage"
	"github.com/spf13/cobra"
)

func (a *app) backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup FILE",
		Short: "Copy the saved profile to a file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			perm := os.FileMode(a.cfg.Storage.FilePermissions)
			if err := storage.Backup(cmd.Context(), a.store, args[0], perm); err != nil {
				if errors.Is(err, storage.ErrNothingSaved) {
					return fmt.Errorf("nothing to back up yet: log a day first")
				}
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Backed up to %s.\n", args[0])
			return err
		},
	}
}

func (a *app) restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore FILE",
		Short: "Replace the saved profile with a backup.",
		Long: `Replace the saved profile with a backup file. Backups from older versions are
accepted; anything that cannot be read is reported as a warning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.Restore(cmd.Context(), a.store, args[0]); err != nil {
				return err
			}
			if err := a.loadProfile(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Restored profile %s from %s.\n", a.profile.Name, args[0])
			return err
		},
	}
}

func (a *app) revisionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revisions",
		Short: "List saved revisions (sqlite backend).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, ok := a.store.(*storage.SQLiteStore)
			if !ok {
				return fmt.Errorf("revisions require the %s backend", storage.BackendSQLite)
			}
			revisions, err := db.Revisions(cmd.Context())
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header([]string{"Saved", "ID", "Bytes"})
			var data [][]string
			for _, r := range revisions {
				data = append(data, []string{r.SavedAt.Local().Format(time.DateTime), r.ID, fmt.Sprint(r.Size)})
			}
			if err := table.Bulk(data); err != nil {
				return err
			}
			return table.Render()
		},
	}
}
