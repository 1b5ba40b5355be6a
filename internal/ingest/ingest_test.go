// ABOUTME: Tests for the sample ingestor
// ABOUTME: Covers accuracy rejection, ordering, and significant-change filtering

package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/bradwbu/Trekr/internal/models"
)

type captureSink struct {
	samples []models.Sample
	err     error
}

func (c *captureSink) Consume(s models.Sample) error {
	if c.err != nil {
		return c.err
	}
	c.samples = append(c.samples, s)
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func sampleAt(t *testing.T, lat, lng float64, offset time.Duration) models.Sample {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return models.NewSample(lat, lng, base.Add(offset))
}

func TestAcceptForwardsInArrivalOrder(t *testing.T) {
	sink := &captureSink{}
	ing := New(sink, Options{})

	first := sampleAt(t, 41.0, -87.0, 0)
	second := sampleAt(t, 41.001, -87.0, time.Minute)
	third := sampleAt(t, 41.002, -87.0, 2*time.Minute)

	for _, s := range []models.Sample{first, second, third} {
		if err := ing.Accept(s); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}

	if len(sink.samples) != 3 {
		t.Fatalf("forwarded %d samples, want 3", len(sink.samples))
	}
	if sink.samples[0].ID != first.ID || sink.samples[2].ID != third.ID {
		t.Error("samples forwarded out of order")
	}
}

func TestAcceptRejectsPoorAccuracy(t *testing.T) {
	sink := &captureSink{}
	ing := New(sink, Options{AccuracyCeiling: 100})

	tests := []struct {
		name     string
		accuracy *float64
		wantErr  bool
	}{
		{"absent accuracy accepted", nil, false},
		{"good fix accepted", floatPtr(12), false},
		{"at ceiling rejected", floatPtr(100), true},
		{"above ceiling rejected", floatPtr(250), true},
		{"negative rejected", floatPtr(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleAt(t, 41.0, -87.0, 0)
			s.Accuracy = tt.accuracy
			err := ing.Accept(s)
			if tt.wantErr && !errors.Is(err, ErrInvalidSample) {
				t.Errorf("got %v, want ErrInvalidSample", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAcceptRejectsBadCoordinates(t *testing.T) {
	sink := &captureSink{}
	ing := New(sink, Options{})

	s := sampleAt(t, 91.0, 0, 0)
	if err := ing.Accept(s); !errors.Is(err, ErrInvalidSample) {
		t.Errorf("got %v, want ErrInvalidSample", err)
	}
	if len(sink.samples) != 0 {
		t.Error("invalid sample reached the sink")
	}
}

func TestAcceptAllowsDuplicateTimestamps(t *testing.T) {
	sink := &captureSink{}
	ing := New(sink, Options{})

	a := sampleAt(t, 41.0, -87.0, 0)
	b := sampleAt(t, 41.0001, -87.0, 0) // same instant, different fix
	if err := ing.Accept(a); err != nil {
		t.Fatalf("accept a: %v", err)
	}
	if err := ing.Accept(b); err != nil {
		t.Fatalf("accept b: %v", err)
	}
	if len(sink.samples) != 2 {
		t.Errorf("forwarded %d, want 2 (dedup is the segmenter's job)", len(sink.samples))
	}
}

func TestSignificantChangeModeFilters(t *testing.T) {
	sink := &captureSink{}
	ing := New(sink, Options{SignificantDistance: 250})

	if err := ing.Accept(sampleAt(t, 41.0, -87.0, 0)); err != nil {
		t.Fatalf("accept: %v", err)
	}

	ing.SetMode(ModeSignificantChange)

	// ~110m north of the last forwarded fix: filtered, not an error.
	if err := ing.Accept(sampleAt(t, 41.001, -87.0, time.Minute)); err != nil {
		t.Fatalf("filtered sample returned error: %v", err)
	}
	if len(sink.samples) != 1 {
		t.Fatalf("forwarded %d, want 1 after filtering", len(sink.samples))
	}

	// ~550m north: significant, forwarded.
	if err := ing.Accept(sampleAt(t, 41.005, -87.0, 2*time.Minute)); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if len(sink.samples) != 2 {
		t.Fatalf("forwarded %d, want 2", len(sink.samples))
	}

	// Foregrounded again: full rate resumes.
	ing.SetMode(ModeContinuous)
	if err := ing.Accept(sampleAt(t, 41.0051, -87.0, 3*time.Minute)); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if len(sink.samples) != 3 {
		t.Errorf("forwarded %d, want 3 in continuous mode", len(sink.samples))
	}
}

func TestAcceptPropagatesSinkError(t *testing.T) {
	sinkErr := errors.New("cache unavailable")
	sink := &captureSink{err: sinkErr}
	ing := New(sink, Options{})

	err := ing.Accept(sampleAt(t, 41.0, -87.0, 0))
	if !errors.Is(err, sinkErr) {
		t.Errorf("got %v, want wrapped sink error", err)
	}
}
