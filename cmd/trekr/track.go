// ABOUTME: Track command reading a sample stream into the trip engine
// ABOUTME: JSON-lines stdin input, dual-rate modes, graceful shutdown

package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bradwbu/Trekr/internal/ingest"
	"github.com/bradwbu/Trekr/internal/models"
	"github.com/bradwbu/Trekr/internal/reconcile"
	"github.com/bradwbu/Trekr/internal/segment"
	"github.com/bradwbu/Trekr/internal/tracker"
	"github.com/bradwbu/Trekr/internal/ui"
)

// rawSample is the JSON-lines input format. A missing timestamp means "now"
// and a missing id gets generated, so hand-fed streams stay convenient.
type rawSample struct {
	ID        *uuid.UUID `json:"id,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Accuracy  *float64   `json:"accuracy,omitempty"`
	Altitude  *float64   `json:"altitude,omitempty"`
	Speed     *float64   `json:"speed,omitempty"`
	Heading   *float64   `json:"heading,omitempty"`
}

func (r rawSample) toSample() models.Sample {
	s := models.Sample{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Accuracy:  r.Accuracy,
		Altitude:  r.Altitude,
		Speed:     r.Speed,
		Heading:   r.Heading,
	}
	if r.ID != nil {
		s.ID = *r.ID
	}
	if r.Timestamp != nil {
		s.Timestamp = *r.Timestamp
	}
	return s
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Track trips from a stream of position samples",
	Long: `Read position samples from stdin (one JSON object per line) and group
them into trips. Trips close on a 30 minute pause or at midnight and sync in
the background when a remote store is configured.

Sample format:
  {"latitude": 41.8781, "longitude": -87.6298, "accuracy": 12.0}

Examples:
  gpspipe -w | jq -c --unbuffered '...' | trekr track
  trekr track --mode significant-change < samples.jsonl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		modeFlag, _ := cmd.Flags().GetString("mode")
		var mode ingest.Mode
		switch modeFlag {
		case "continuous":
			mode = ingest.ModeContinuous
		case "significant-change":
			mode = ingest.ModeSignificantChange
		default:
			return fmt.Errorf("unsupported mode: %s (use 'continuous' or 'significant-change')", modeFlag)
		}

		tr := tracker.New(store, tracker.Options{
			OwnerID:             cfg.GetOwnerID(),
			Zone:                cfg.GetLocation(),
			AccuracyCeiling:     cfg.GetAccuracyCeiling(),
			SignificantDistance: cfg.GetSignificantDistance(),
			InactivityGap:       cfg.GetInactivityGap(),
			Remote:              remoteStore(),
			SyncInterval:        cfg.GetSyncInterval(),
			Events: segment.Events{
				OnTripClosed: func(t *models.Trip) {
					fmt.Fprintf(os.Stderr, "closed trip %s: %s over %s\n",
						t.ID.String()[:8],
						ui.FormatDistance(t.Stats.TotalDistanceMeters),
						ui.FormatDuration(t.Stats.TotalDurationSeconds))
				},
			},
		})
		tr.SetMode(mode)

		if err := tr.Start(cmd.Context()); err != nil {
			return err
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		lines := make(chan string)
		stopRead := make(chan struct{})
		scanErr := make(chan error, 1)
		go func() {
			scanErr <- readLines(os.Stdin, lines, stopRead)
		}()

		accepted, dropped := 0, 0
	loop:
		for {
			select {
			case <-sig:
				fmt.Fprintln(os.Stderr, "\nstopping...")
				close(stopRead)
				break loop
			case line, ok := <-lines:
				if !ok {
					if err := <-scanErr; err != nil {
						fmt.Fprintf(os.Stderr, "warning: input error: %v\n", err)
					}
					break loop
				}
				if line == "" {
					continue
				}
				var raw rawSample
				if err := json.Unmarshal([]byte(line), &raw); err != nil {
					fmt.Fprintf(os.Stderr, "warning: skipping malformed line: %v\n", err)
					continue
				}
				err := tr.Accept(raw.toSample())
				switch {
				case err == nil:
					accepted++
				case errors.Is(err, ingest.ErrInvalidSample):
					dropped++
				default:
					return err
				}
			}
		}

		if err := tr.Stop(); err != nil {
			return err
		}
		color.Green("✓ Tracking stopped")
		fmt.Printf("Accepted %d samples, dropped %d.\n", accepted, dropped)
		return nil
	},
}

// readLines scans r line by line into lines, closing it on EOF. A close of
// stop releases the reader even when nobody is draining lines, so shutdown
// does not strand the goroutine on a send.
func readLines(r io.Reader, lines chan<- string, stop <-chan struct{}) error {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-stop:
			return nil
		}
	}
	return scanner.Err()
}

// remoteStore returns the configured remote store as the interface the
// tracker expects, or a truly nil interface when sync is disabled.
func remoteStore() reconcile.RemoteStore {
	if c := newRemoteClient(); c != nil {
		return c
	}
	return nil
}

func init() {
	trackCmd.Flags().StringP("mode", "m", "continuous",
		"sampling mode (continuous, significant-change)")
	rootCmd.AddCommand(trackCmd)
}
