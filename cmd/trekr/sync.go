// ABOUTME: Sync command for the remote trip store
// ABOUTME: Runs reconcile cycles, shows status, and resolves conflicts

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bradwbu/Trekr/internal/config"
	"github.com/bradwbu/Trekr/internal/models"
	"github.com/bradwbu/Trekr/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync trips with the remote store",
	Long: `Run one reconcile cycle: pull remote changes, then push local edits.

Conflicting edits never silently overwrite each other; both copies are kept
and the trip is flagged until you resolve it.

Examples:
  trekr sync
  trekr sync status
  trekr sync resolve 4f3a2b1c --keep local`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := newReconciler()
		if err != nil {
			return err
		}

		report, err := rec.Cycle(cmd.Context())
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		fmt.Printf("Pulled %d, pushed %d trip(s).\n", report.Pulled, report.Pushed)
		if report.Deferred > 0 {
			color.Yellow("%d trip(s) waiting out a retry backoff.", report.Deferred)
		}
		if report.Failed > 0 {
			color.Yellow("%d push(es) failed and will be retried.", report.Failed)
		}
		for _, id := range report.Rejected {
			color.Red("✗ Trip %s was rejected by the remote store.", id.String()[:8])
		}
		for _, c := range report.Conflicts {
			color.Red("✗ Conflict on %s (%s): resolve with 'trekr sync resolve %s --keep local|remote'",
				c.Local.ID.String()[:8], c.Local.Name, c.Local.ID.String()[:8])
		}
		if report.Failed == 0 && len(report.Conflicts) == 0 && len(report.Rejected) == 0 {
			color.Green("✓ Sync complete")
		}
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RemoteURL == "" {
			color.Yellow("Sync is not configured.")
			fmt.Printf("Set remote_url in %s to enable it.\n", config.GetConfigPath())
			return nil
		}
		fmt.Printf("Remote: %s\n", cfg.RemoteURL)

		marker, err := store.LastSyncMarker()
		if err != nil {
			return err
		}
		if marker.IsZero() {
			fmt.Println("Last sync: never")
		} else {
			fmt.Printf("Last sync: %s\n", ui.FormatRelativeTime(marker))
		}

		trips, err := store.All()
		if err != nil {
			return err
		}
		counts := map[models.SyncState]int{}
		for _, t := range trips {
			counts[t.SyncState]++
		}
		fmt.Println()
		for _, state := range []models.SyncState{
			models.SyncLocalOnly, models.SyncPendingPush, models.SyncSynced,
			models.SyncConflict, models.SyncRejected,
		} {
			if counts[state] > 0 {
				fmt.Printf("  %-14s %d\n", ui.FormatSyncState(state), counts[state])
			}
		}
		return nil
	},
}

var syncResolveCmd = &cobra.Command{
	Use:   "resolve <trip-id>",
	Short: "Resolve a sync conflict",
	Long: `Settle a conflicted trip by keeping one side.

  --keep local   push your copy to the remote store on the next sync
  --keep remote  replace your copy with the remote one`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetString("keep")
		if keep != "local" && keep != "remote" {
			return fmt.Errorf("unsupported --keep value: %s (use 'local' or 'remote')", keep)
		}

		trip, err := resolveTrip(args[0])
		if err != nil {
			return err
		}
		rec, err := newReconciler()
		if err != nil {
			return err
		}
		if err := rec.ResolveConflict(cmd.Context(), trip.ID, keep == "local"); err != nil {
			return fmt.Errorf("failed to resolve conflict: %w", err)
		}

		if keep == "local" {
			color.Green("✓ Kept the local copy; it will push on the next sync.")
		} else {
			color.Green("✓ Restored the remote copy.")
		}
		return nil
	},
}

func init() {
	syncResolveCmd.Flags().String("keep", "", "which copy to keep (local, remote)")
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncResolveCmd)
	rootCmd.AddCommand(syncCmd)
}
