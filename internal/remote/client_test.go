// ABOUTME: Tests for the remote store HTTP client
// ABOUTME: Covers status mapping, auth headers, idempotency, and paging

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/bradwbu/Trekr/internal/models"
)

func sampleRequest() CreateTripRequest {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return CreateTripRequest{
		Name: "Morning Ride",
		Locations: []Location{
			{Latitude: 41.8781, Longitude: -87.6298, Timestamp: start},
			{Latitude: 41.8790, Longitude: -87.6298, Timestamp: start.Add(time.Minute)},
		},
		StartTime: start,
		EndTime:   start.Add(time.Minute),
	}
}

func TestCreateTripSendsAuthAndIdempotencyKey(t *testing.T) {
	var gotAuth, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("Idempotency-Key")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Trip{ID: "r-1", UpdatedAt: time.Now().UTC()})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Tokens: StaticToken("secret")})
	trip, err := c.CreateTrip(context.Background(), sampleRequest(), "key-123")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if trip.ID != "r-1" {
		t.Errorf("id = %s", trip.ID)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotKey != "key-123" {
		t.Errorf("idempotency key = %q", gotKey)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad token"}`, ErrUnauthorized},
		{"not found", http.StatusNotFound, `{"error":"missing"}`, ErrNotFound},
		{"validation", http.StatusBadRequest,
			`{"error":"validation failed","fields":[{"field":"locations","message":"at least 2 locations are required"}]}`,
			ErrRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL, Tokens: StaticToken("x")})
			_, err := c.GetTrip(context.Background(), "any")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUnauthorizedInvalidatesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := &countingTokens{token: "stale"}
	c := NewClient(Config{BaseURL: srv.URL, Tokens: tokens})
	_, err := c.GetTrip(context.Background(), "any")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if tokens.invalidated != 1 {
		t.Errorf("invalidated %d times, want 1", tokens.invalidated)
	}
}

type countingTokens struct {
	token       string
	invalidated int
}

func (c *countingTokens) Token(context.Context) (string, error) { return c.token, nil }
func (c *countingTokens) Invalidate()                           { c.invalidated++ }

func TestDeleteTripTreatsNotFoundAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Tokens: StaticToken("x")})
	if err := c.DeleteTrip(context.Background(), "gone"); err != nil {
		t.Errorf("delete of missing trip: %v", err)
	}
}

func TestTripsSincePaginates(t *testing.T) {
	var pagesServed []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pagesServed = append(pagesServed, page)
		if since := r.URL.Query().Get("updated_since"); since == "" {
			t.Error("updated_since query missing")
		}

		resp := ListResponse{
			Routes:     []Trip{{ID: "p" + strconv.Itoa(page)}},
			Pagination: Pagination{Page: page, Limit: 100, Total: 3, Pages: 3},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Tokens: StaticToken("x")})
	trips, err := c.TripsSince(context.Background(), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("trips since: %v", err)
	}
	if len(trips) != 3 {
		t.Fatalf("got %d trips, want 3", len(trips))
	}
	if len(pagesServed) != 3 || pagesServed[2] != 3 {
		t.Errorf("pages served = %v", pagesServed)
	}
}

func TestListTripsQueryParams(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{}
		for k := range r.URL.Query() {
			got[k] = r.URL.Query().Get(k)
		}
		_ = json.NewEncoder(w).Encode(ListResponse{})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Tokens: StaticToken("x")})
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := c.ListTrips(context.Background(), ListQuery{
		Page:   2,
		Limit:  25,
		From:   from,
		To:     from.AddDate(0, 0, 7),
		Search: "lakefront",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := map[string]string{
		"page":   "2",
		"limit":  "25",
		"from":   "2026-03-01T00:00:00Z",
		"to":     "2026-03-08T00:00:00Z",
		"search": "lakefront",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("query %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestRoundTripThroughLocalTrip(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	trip := models.NewTrip("brad", models.NewSample(41.8781, -87.6298, base))
	alt := 181.0
	second := models.NewSample(41.8790, -87.6298, base.Add(time.Minute))
	second.Altitude = &alt
	trip.Append(second)
	trip.Open = false

	req := RequestFromTrip(trip)
	if len(req.Locations) != 2 {
		t.Fatalf("got %d locations", len(req.Locations))
	}
	if req.Locations[1].Altitude == nil || *req.Locations[1].Altitude != alt {
		t.Error("altitude lost in conversion")
	}

	rt := Trip{
		ID:        "r-9",
		Name:      req.Name,
		Locations: req.Locations,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		UpdatedAt: time.Now().UTC(),
	}
	local := rt.ToLocalTrip("brad")
	if local.RemoteID != "r-9" || local.SyncState != models.SyncSynced {
		t.Errorf("remote id = %s, state = %s", local.RemoteID, local.SyncState)
	}
	if len(local.Samples) != 2 {
		t.Fatalf("got %d samples", len(local.Samples))
	}
	if local.Stats.TotalDistanceMeters <= 0 {
		t.Error("stats not derived")
	}
	if local.Dirty() {
		t.Error("pulled trip should be clean")
	}
}
