// ABOUTME: Trip delete command
// ABOUTME: Removes trips locally and, when asked, from the remote store

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <trip-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a trip",
	Long: `Delete a trip from the local cache.

With --remote the remote copy is removed first; deleting an already-gone
remote record is treated as success.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trip, err := resolveTrip(args[0])
		if err != nil {
			return err
		}

		force, _ := cmd.Flags().GetBool("force")
		if !force {
			fmt.Printf("Delete '%s' (%d samples)? (y/N): ", trip.Name, len(trip.Samples))
			reader := bufio.NewReader(os.Stdin)
			confirmation, _ := reader.ReadString('\n')
			confirmation = strings.ToLower(strings.TrimSpace(confirmation))
			if confirmation != "y" && confirmation != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		alsoRemote, _ := cmd.Flags().GetBool("remote")
		if alsoRemote && trip.RemoteID != "" {
			rec, err := newReconciler()
			if err != nil {
				return err
			}
			if err := rec.DeleteRemote(cmd.Context(), trip); err != nil {
				return err
			}
		}

		if err := store.Delete(trip.ID); err != nil {
			return fmt.Errorf("failed to delete trip: %w", err)
		}
		color.Green("✓ Deleted '%s'", trip.Name)
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolP("force", "f", false, "skip confirmation")
	deleteCmd.Flags().Bool("remote", false, "also delete the remote copy")
	rootCmd.AddCommand(deleteCmd)
}
