// ABOUTME: Tests for CLI commands
// ABOUTME: Covers command metadata, flags, and trip id resolution

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bradwbu/Trekr/internal/cache"
	"github.com/bradwbu/Trekr/internal/models"
)

// testCache opens a temporary cache and sets the global store variable.
func testCache(t *testing.T) {
	t.Helper()
	var err error
	store, err = cache.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open test cache: %v", err)
	}
	t.Cleanup(func() {
		if store != nil {
			_ = store.Close()
			store = nil
		}
	})
}

func TestRootCmd_Metadata(t *testing.T) {
	if rootCmd.Use != "trekr" {
		t.Errorf("expected Use 'trekr', got %q", rootCmd.Use)
	}
	if !strings.Contains(rootCmd.Long, "Track trips") {
		t.Error("expected description in Long")
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"track", "list", "show", "export", "sync", "delete",
		"backup", "restore", "serve", "simulate"}
	registered := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestTrackCmd_Flags(t *testing.T) {
	if trackCmd.Flags().Lookup("mode") == nil {
		t.Error("expected --mode flag")
	}
}

func TestListCmd_Flags(t *testing.T) {
	for _, name := range []string{"from", "to", "search", "quarantined"} {
		if listCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag", name)
		}
	}
}

func TestExportCmd_Flags(t *testing.T) {
	for _, name := range []string{"format", "geometry", "output"} {
		if exportCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag", name)
		}
	}
}

func TestResolveTrip(t *testing.T) {
	testCache(t)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	trip := models.NewTrip("brad", models.NewSample(41.8781, -87.6298, base))
	if err := store.Put(trip); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := resolveTrip(trip.ID.String()[:8])
	if err != nil {
		t.Fatalf("resolve by prefix: %v", err)
	}
	if got.ID != trip.ID {
		t.Errorf("resolved %s, want %s", got.ID, trip.ID)
	}

	if _, err := resolveTrip("zzzzzzzz"); err == nil {
		t.Error("expected error for unknown prefix")
	}
}

func TestParseDate(t *testing.T) {
	if _, err := parseDate("2026-03-01"); err != nil {
		t.Errorf("YYYY-MM-DD rejected: %v", err)
	}
	if _, err := parseDate("2026-03-01T09:00:00Z"); err != nil {
		t.Errorf("RFC3339 rejected: %v", err)
	}
	if _, err := parseDate("yesterday"); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestReadLinesStopReleasesReader(t *testing.T) {
	lines := make(chan string)
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- readLines(strings.NewReader("one\ntwo\nthree\n"), lines, stop)
	}()

	if got := <-lines; got != "one" {
		t.Fatalf("first line = %q, want one", got)
	}

	// Nobody drains the rest; closing stop must still release the reader.
	close(stop)
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("readLines err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reader stayed blocked after stop")
	}
}

func TestReadLinesDeliversAllUntilEOF(t *testing.T) {
	lines := make(chan string)
	done := make(chan error, 1)
	go func() {
		done <- readLines(strings.NewReader("a\nb\n"), lines, make(chan struct{}))
	}()

	var got []string
	for line := range lines {
		got = append(got, line)
	}
	if err := <-done; err != nil {
		t.Fatalf("readLines err = %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("lines = %v", got)
	}
}

func TestRawSampleDefaults(t *testing.T) {
	s := rawSample{Latitude: 41.8781, Longitude: -87.6298}.toSample()
	if s.ID == uuid.Nil {
		t.Error("expected generated id")
	}
	if s.Timestamp.IsZero() {
		t.Error("expected timestamp defaulted to now")
	}

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	id := uuid.New()
	explicit := rawSample{ID: &id, Timestamp: &at, Latitude: 1, Longitude: 2}.toSample()
	if explicit.ID != id || !explicit.Timestamp.Equal(at) {
		t.Error("explicit id and timestamp should be preserved")
	}
}
