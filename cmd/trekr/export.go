// ABOUTME: Export command for GPX and GeoJSON output
// ABOUTME: Supports point and line geometry with file or stdout targets

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bradwbu/Trekr/internal/geojson"
	"github.com/bradwbu/Trekr/internal/gpx"
)

var exportCmd = &cobra.Command{
	Use:     "export <trip-id>",
	Aliases: []string{"e"},
	Short:   "Export a trip as GPX or GeoJSON",
	Long: `Export a trip in an interchange format.

Examples:
  # GPX track for another app
  trekr export 4f3a2b1c --format gpx --output ride.gpx

  # GeoJSON LineString for a map
  trekr export 4f3a2b1c --format geojson --geometry line

  # GeoJSON points to stdout
  trekr export 4f3a2b1c --format geojson`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "gpx" && format != "geojson" {
			return fmt.Errorf("unsupported format: %s (use 'gpx' or 'geojson')", format)
		}
		geometry, _ := cmd.Flags().GetString("geometry")
		if geometry != "points" && geometry != "line" {
			return fmt.Errorf("unsupported geometry: %s (use 'points' or 'line')", geometry)
		}

		trip, err := resolveTrip(args[0])
		if err != nil {
			return err
		}

		var data []byte
		switch format {
		case "gpx":
			data, err = gpx.Encode(trip)
			if err != nil {
				return fmt.Errorf("failed to generate GPX: %w", err)
			}
		default:
			var fc *geojson.FeatureCollection
			if geometry == "line" {
				fc = geojson.ToLineFeatureCollection(trip)
			} else {
				fc = geojson.ToPointsFeatureCollection(trip)
			}
			data, err = fc.ToJSONIndent()
			if err != nil {
				return fmt.Errorf("failed to generate GeoJSON: %w", err)
			}
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" && format == "gpx" {
			output = gpx.Filename(trip.Name)
		}
		if output != "" && output != "-" {
			if err := os.WriteFile(output, data, 0644); err != nil { //nolint:gosec // 0644 is intentional for data export files
				return fmt.Errorf("failed to write file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Wrote %d samples to %s\n", len(trip.Samples), output)
			return nil
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("format", "f", "gpx", "output format (gpx, geojson)")
	exportCmd.Flags().StringP("geometry", "g", "points", "geojson geometry (points, line)")
	exportCmd.Flags().StringP("output", "o", "", "output file (default: derived name for gpx, stdout for geojson)")
	rootCmd.AddCommand(exportCmd)
}
