// ABOUTME: Trip list command
// ABOUTME: Date-filtered listings plus quarantined-record inspection

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bradwbu/Trekr/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recorded trips",
	Long: `List trips in the local cache, newest last.

Examples:
  trekr list
  trekr list --from 2026-03-01 --to 2026-03-07
  trekr list --search lakefront
  trekr list --quarantined`,
	RunE: func(cmd *cobra.Command, args []string) error {
		quarantined, _ := cmd.Flags().GetBool("quarantined")
		if quarantined {
			return listQuarantined()
		}

		var from, to time.Time
		var err error
		if v, _ := cmd.Flags().GetString("from"); v != "" {
			if from, err = parseDate(v); err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
		}
		if v, _ := cmd.Flags().GetString("to"); v != "" {
			if to, err = parseDate(v); err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			// Inclusive end of day.
			to = to.Add(24*time.Hour - time.Second)
		}

		summaries, err := store.ListByDateRange(from, to)
		if err != nil {
			return fmt.Errorf("failed to list trips: %w", err)
		}

		search, _ := cmd.Flags().GetString("search")
		if search != "" {
			needle := strings.ToLower(search)
			filtered := summaries[:0]
			for _, s := range summaries {
				if strings.Contains(strings.ToLower(s.Name), needle) ||
					strings.Contains(strings.ToLower(s.Description), needle) {
					filtered = append(filtered, s)
				}
			}
			summaries = filtered
		}

		if len(summaries) == 0 {
			fmt.Println("No trips recorded yet. Use 'trekr track' to start.")
			return nil
		}
		for _, s := range summaries {
			fmt.Println(ui.FormatSummary(s))
		}
		return nil
	},
}

func listQuarantined() error {
	ids, err := store.Quarantined()
	if err != nil {
		return fmt.Errorf("failed to list quarantine: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println("No quarantined records.")
		return nil
	}
	fmt.Printf("%d quarantined record(s):\n", len(ids))
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}
	return nil
}

// parseDate parses date strings in RFC3339 or YYYY-MM-DD format.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date format (use YYYY-MM-DD or RFC3339)")
}

func init() {
	listCmd.Flags().String("from", "", "start date (YYYY-MM-DD or RFC3339)")
	listCmd.Flags().String("to", "", "end date (YYYY-MM-DD or RFC3339)")
	listCmd.Flags().StringP("search", "s", "", "filter by name or description")
	listCmd.Flags().Bool("quarantined", false, "list quarantined (undecodable) records")
	rootCmd.AddCommand(listCmd)
}
