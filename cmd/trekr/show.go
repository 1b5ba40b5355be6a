// ABOUTME: Trip show command
// ABOUTME: Resolves an id prefix and prints full trip details

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bradwbu/Trekr/internal/models"
	"github.com/bradwbu/Trekr/internal/ui"
)

var showCmd = &cobra.Command{
	Use:     "show <trip-id>",
	Aliases: []string{"info"},
	Short:   "Show details for one trip",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trip, err := resolveTrip(args[0])
		if err != nil {
			return err
		}
		fmt.Println(ui.FormatTrip(trip))
		return nil
	},
}

// resolveTrip finds a trip by full id or unambiguous prefix.
func resolveTrip(idArg string) (*models.Trip, error) {
	trips, err := store.All()
	if err != nil {
		return nil, fmt.Errorf("failed to scan trips: %w", err)
	}

	var matches []*models.Trip
	for _, t := range trips {
		if strings.HasPrefix(t.ID.String(), idArg) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no trip matches '%s'", idArg)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("'%s' is ambiguous (%d matches); use more of the id", idArg, len(matches))
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
}
