// ABOUTME: Wire contract types shared by the remote store client and server
// ABOUTME: JSON request/response bodies for trip create, list, and errors

package remote

import (
	"time"

	"github.com/google/uuid"

	"github.com/bradwbu/Trekr/internal/models"
	"github.com/bradwbu/Trekr/internal/stats"
)

// Location is one position reading on the wire.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
}

// CreateTripRequest is the body for creating (or replacing) a remote trip.
type CreateTripRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Locations   []Location `json:"locations"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
}

// Trip is a trip record as the remote store returns it.
type Trip struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Locations   []Location `json:"locations,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     time.Time  `json:"endTime"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Pagination describes a page of list results.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ListResponse is the envelope for trip listings.
type ListResponse struct {
	Routes     []Trip     `json:"routes"`
	Pagination Pagination `json:"pagination"`
}

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body of a 4xx/5xx response.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

// ListQuery filters and pages a trip listing.
type ListQuery struct {
	Page         int
	Limit        int
	From         time.Time
	To           time.Time
	Search       string
	UpdatedSince time.Time
}

// RequestFromTrip converts a local trip into its wire representation.
func RequestFromTrip(t *models.Trip) CreateTripRequest {
	locs := make([]Location, len(t.Samples))
	for i, s := range t.Samples {
		locs[i] = Location{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Timestamp: s.Timestamp,
			Altitude:  s.Altitude,
			Speed:     s.Speed,
			Accuracy:  s.Accuracy,
			Heading:   s.Heading,
		}
	}
	return CreateTripRequest{
		Name:        t.Name,
		Description: t.Description,
		Locations:   locs,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
	}
}

// ToLocalTrip materializes a remote trip as a local model. Sample ids are
// local identifiers, so fresh ones are generated; stats are rederived.
func (rt Trip) ToLocalTrip(ownerID string) *models.Trip {
	samples := make([]models.Sample, len(rt.Locations))
	for i, l := range rt.Locations {
		samples[i] = models.Sample{
			ID:        uuid.New(),
			Timestamp: l.Timestamp,
			Latitude:  l.Latitude,
			Longitude: l.Longitude,
			Altitude:  l.Altitude,
			Speed:     l.Speed,
			Accuracy:  l.Accuracy,
			Heading:   l.Heading,
		}
	}
	trip := &models.Trip{
		ID:             uuid.New(),
		RemoteID:       rt.ID,
		OwnerID:        ownerID,
		Name:           rt.Name,
		Description:    rt.Description,
		StartTime:      rt.StartTime,
		EndTime:        rt.EndTime,
		Samples:        samples,
		SyncState:      models.SyncSynced,
		IdempotencyKey: uuid.New(),
		LastModified:   rt.UpdatedAt,
		LastSynced:     rt.UpdatedAt,
	}
	trip.Stats = stats.Compute(trip.Samples)
	return trip
}

// ApplyToLocalTrip overwrites a local trip's content with the remote copy,
// preserving local identity (id, idempotency key, owner).
func (rt Trip) ApplyToLocalTrip(t *models.Trip) {
	samples := make([]models.Sample, len(rt.Locations))
	for i, l := range rt.Locations {
		samples[i] = models.Sample{
			ID:        uuid.New(),
			Timestamp: l.Timestamp,
			Latitude:  l.Latitude,
			Longitude: l.Longitude,
			Altitude:  l.Altitude,
			Speed:     l.Speed,
			Accuracy:  l.Accuracy,
			Heading:   l.Heading,
		}
	}
	t.RemoteID = rt.ID
	t.Name = rt.Name
	t.Description = rt.Description
	t.StartTime = rt.StartTime
	t.EndTime = rt.EndTime
	t.Samples = samples
	t.Stats = stats.Compute(samples)
	t.SyncState = models.SyncSynced
	t.Open = false
	t.LastModified = rt.UpdatedAt
	t.LastSynced = rt.UpdatedAt
}
