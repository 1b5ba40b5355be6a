// ABOUTME: Core data models for trips and position samples
// ABOUTME: Provides constructors, validation, and sync state tracking

package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SyncState tracks where a trip stands relative to the remote store.
type SyncState string

const (
	// SyncLocalOnly means the trip exists only on this device.
	SyncLocalOnly SyncState = "local_only"
	// SyncPendingPush means a push is queued or in flight.
	SyncPendingPush SyncState = "pending_push"
	// SyncSynced means local and remote copies agree.
	SyncSynced SyncState = "synced"
	// SyncConflict means both sides were modified independently.
	SyncConflict SyncState = "conflict"
	// SyncRejected means the remote store definitively refused the trip.
	SyncRejected SyncState = "rejected"
)

// ValidateCoordinates checks if latitude and longitude are within valid ranges.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return fmt.Errorf("coordinates cannot be NaN")
	}
	if math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return fmt.Errorf("coordinates cannot be infinite")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateName checks if a trip name is valid (non-empty, within length limits).
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("name cannot be empty or whitespace")
	}
	if len(name) > 255 {
		return fmt.Errorf("name too long (max 255 characters)")
	}
	return nil
}

// Sample represents one raw, timestamped position reading.
// Samples are immutable once created and belong to exactly one trip.
type Sample struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
}

// Validate checks the static invariants of a sample.
// The accuracy ceiling is ingestion policy, not a model invariant.
func (s *Sample) Validate() error {
	if err := ValidateCoordinates(s.Latitude, s.Longitude); err != nil {
		return err
	}
	if s.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if s.Heading != nil && (*s.Heading < 0 || *s.Heading > 360) {
		return fmt.Errorf("heading must be between 0 and 360")
	}
	if s.Speed != nil && *s.Speed < 0 {
		return fmt.Errorf("speed cannot be negative")
	}
	return nil
}

// NewSample creates a sample with a generated UUID.
func NewSample(lat, lng float64, at time.Time) Sample {
	return Sample{
		ID:        uuid.New(),
		Timestamp: at,
		Latitude:  lat,
		Longitude: lng,
	}
}

// TripStats holds the derived kinematic aggregates for a trip.
// All values are non-negative and recomputed whenever samples change.
type TripStats struct {
	TotalDistanceMeters  float64 `json:"total_distance_m"`
	TotalDurationSeconds float64 `json:"total_duration_s"`
	AverageSpeedMps      float64 `json:"average_speed_mps"`
	MaxSpeedMps          float64 `json:"max_speed_mps"`
	ElevationGainMeters  float64 `json:"elevation_gain_m"`
	ElevationLossMeters  float64 `json:"elevation_loss_m"`
}

// Trip is a contiguous, time-bounded sequence of position samples
// representing one tracked outing.
type Trip struct {
	ID          uuid.UUID `json:"id"`
	RemoteID    string    `json:"remote_id,omitempty"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Samples     []Sample  `json:"samples"`
	Stats       TripStats `json:"stats"`
	SyncState   SyncState `json:"sync_state"`
	Open        bool      `json:"open"`

	// IdempotencyKey is generated once per trip so a retried push never
	// creates a duplicate remote record.
	IdempotencyKey uuid.UUID `json:"idempotency_key"`

	// LastModified advances on every local mutation; LastSynced records the
	// modification stamp the remote store last acknowledged.
	LastModified time.Time `json:"last_modified"`
	LastSynced   time.Time `json:"last_synced,omitempty"`
}

// NewTrip opens a trip with the given sample as its first.
func NewTrip(ownerID string, first Sample) *Trip {
	return &Trip{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Name:           "Trip " + first.Timestamp.Format("Jan 2, 2006"),
		StartTime:      first.Timestamp,
		EndTime:        first.Timestamp,
		Samples:        []Sample{first},
		SyncState:      SyncLocalOnly,
		Open:           true,
		IdempotencyKey: uuid.New(),
		LastModified:   time.Now().UTC(),
	}
}

// Append adds a sample to the trip, keeping the start/end invariants.
// Samples with an ID already present are dropped (devices may re-emit).
func (t *Trip) Append(s Sample) bool {
	for i := range t.Samples {
		if t.Samples[i].ID == s.ID {
			return false
		}
	}
	t.Samples = append(t.Samples, s)
	if len(t.Samples) == 1 || s.Timestamp.Before(t.StartTime) {
		t.StartTime = s.Timestamp
	}
	if s.Timestamp.After(t.EndTime) {
		t.EndTime = s.Timestamp
	}
	t.Touch()
	return true
}

// Touch advances the modification stamp. The stamp stays strictly
// increasing even under coarse clocks so edit ordering is deterministic.
func (t *Trip) Touch() {
	now := time.Now().UTC()
	if !now.After(t.LastModified) {
		now = t.LastModified.Add(time.Nanosecond)
	}
	t.LastModified = now
}

// Dirty reports whether the trip has local edits the remote has not seen.
func (t *Trip) Dirty() bool {
	return t.LastModified.After(t.LastSynced)
}

// Day returns the calendar day of the trip's first sample in the given zone.
func (t *Trip) Day(loc *time.Location) string {
	return DayKey(t.StartTime, loc)
}

// DayKey formats a timestamp as a calendar-day bucket key.
func DayKey(at time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return at.In(loc).Format("2006-01-02")
}

// Summary is a trip without its sample payload, for listings.
type Summary struct {
	ID          uuid.UUID `json:"id"`
	RemoteID    string    `json:"remote_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	SampleCount int       `json:"sample_count"`
	Stats       TripStats `json:"stats"`
	SyncState   SyncState `json:"sync_state"`
	Open        bool      `json:"open"`
}

// Summarize strips the sample payload from a trip.
func (t *Trip) Summarize() Summary {
	return Summary{
		ID:          t.ID,
		RemoteID:    t.RemoteID,
		Name:        t.Name,
		Description: t.Description,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		SampleCount: len(t.Samples),
		Stats:       t.Stats,
		SyncState:   t.SyncState,
		Open:        t.Open,
	}
}
