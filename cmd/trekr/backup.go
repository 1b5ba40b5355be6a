// ABOUTME: Backup and restore commands for the local trip cache
// ABOUTME: Versioned YAML snapshots of every trip record

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bradwbu/Trekr/internal/cache"
)

var backupCmd = &cobra.Command{
	Use:   "backup [file]",
	Short: "Back up all trips to a YAML file",
	Long: `Write every trip in the local cache to a YAML snapshot.

Examples:
  trekr backup
  trekr backup trips-backup.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fmt.Sprintf("trekr-backup-%s.yaml", time.Now().Format("2006-01-02"))
		if len(args) == 1 {
			path = args[0]
		}

		data, err := cache.ExportBackup(store)
		if err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("failed to write backup: %w", err)
		}

		color.Green("✓ Backup written to %s", path)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore trips from a YAML backup",
	Long: `Restore trips from a snapshot created by 'trekr backup'.

Existing trips with the same id are overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read backup: %w", err)
		}

		count, err := cache.ImportBackup(store, data)
		if err != nil {
			return fmt.Errorf("failed to restore backup: %w", err)
		}

		color.Green("✓ Restored %d trip(s)", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}
