// ABOUTME: Tests for the remote trip store API
// ABOUTME: Exercises validation, idempotent create, listing filters, and export

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/bradwbu/Trekr/internal/remote"
)

func testApp(t *testing.T) (*fiber.App, *TripStore) {
	t.Helper()
	store, err := NewTripStore(filepath.Join(t.TempDir(), "trips.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(store, Config{Token: "test-token", Log: log}), store
}

func validRequest() remote.CreateTripRequest {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return remote.CreateTripRequest{
		Name: "Morning Ride",
		Locations: []remote.Location{
			{Latitude: 41.8781, Longitude: -87.6298, Timestamp: start},
			{Latitude: 41.8790, Longitude: -87.6298, Timestamp: start.Add(time.Minute)},
		},
		StartTime: start,
		EndTime:   start.Add(time.Minute),
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, headers map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer test-token")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	_ = resp.Body.Close()
	return out
}

func TestCreateTrip(t *testing.T) {
	app, _ := testApp(t)

	resp := doJSON(t, app, http.MethodPost, "/trips", validRequest(), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	trip := decode[remote.Trip](t, resp)
	if trip.ID == "" {
		t.Error("created trip has no id")
	}
	if trip.UpdatedAt.IsZero() {
		t.Error("created trip has no updatedAt")
	}
	if len(trip.Locations) != 2 {
		t.Errorf("got %d locations, want 2", len(trip.Locations))
	}
}

func TestCreateTripValidation(t *testing.T) {
	app, _ := testApp(t)

	tests := []struct {
		name   string
		mutate func(*remote.CreateTripRequest)
		field  string
	}{
		{
			name:   "missing name",
			mutate: func(r *remote.CreateTripRequest) { r.Name = "" },
			field:  "name",
		},
		{
			name:   "single location",
			mutate: func(r *remote.CreateTripRequest) { r.Locations = r.Locations[:1] },
			field:  "locations",
		},
		{
			name:   "latitude out of range",
			mutate: func(r *remote.CreateTripRequest) { r.Locations[0].Latitude = 91 },
			field:  "locations[0]",
		},
		{
			name:   "end before start",
			mutate: func(r *remote.CreateTripRequest) { r.EndTime = r.StartTime.Add(-time.Minute) },
			field:  "endTime",
		},
		{
			name:   "end equals start",
			mutate: func(r *remote.CreateTripRequest) { r.EndTime = r.StartTime },
			field:  "endTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			resp := doJSON(t, app, http.MethodPost, "/trips", req, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			body := decode[remote.ErrorResponse](t, resp)
			found := false
			for _, f := range body.Fields {
				if f.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no field error for %q in %+v", tt.field, body.Fields)
			}
		})
	}
}

func TestCreateTripIdempotency(t *testing.T) {
	app, _ := testApp(t)
	headers := map[string]string{"Idempotency-Key": "key-1"}

	first := decode[remote.Trip](t,
		doJSON(t, app, http.MethodPost, "/trips", validRequest(), headers))
	replayResp := doJSON(t, app, http.MethodPost, "/trips", validRequest(), headers)
	if replayResp.StatusCode != http.StatusCreated {
		t.Fatalf("replay status = %d, want 201", replayResp.StatusCode)
	}
	replay := decode[remote.Trip](t, replayResp)

	if replay.ID != first.ID {
		t.Errorf("replay created a second trip: %s vs %s", replay.ID, first.ID)
	}

	list := decode[remote.ListResponse](t,
		doJSON(t, app, http.MethodGet, "/trips", nil, nil))
	if list.Pagination.Total != 1 {
		t.Errorf("total = %d, want 1", list.Pagination.Total)
	}
}

func TestRequiresToken(t *testing.T) {
	app, _ := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestListTripsPaginationAndSearch(t *testing.T) {
	app, _ := testApp(t)

	for i := 0; i < 5; i++ {
		req := validRequest()
		req.Name = fmt.Sprintf("Ride %d", i)
		req.StartTime = req.StartTime.Add(time.Duration(i) * time.Hour)
		req.EndTime = req.StartTime.Add(time.Minute)
		req.Locations[0].Timestamp = req.StartTime
		req.Locations[1].Timestamp = req.EndTime
		doJSON(t, app, http.MethodPost, "/trips", req, nil)
	}
	hike := validRequest()
	hike.Name = "Canyon Hike"
	doJSON(t, app, http.MethodPost, "/trips", hike, nil)

	page := decode[remote.ListResponse](t,
		doJSON(t, app, http.MethodGet, "/trips?page=2&limit=2", nil, nil))
	if page.Pagination.Total != 6 || page.Pagination.Pages != 3 {
		t.Errorf("pagination = %+v", page.Pagination)
	}
	if len(page.Routes) != 2 {
		t.Errorf("got %d routes on page 2, want 2", len(page.Routes))
	}

	search := decode[remote.ListResponse](t,
		doJSON(t, app, http.MethodGet, "/trips?search=Canyon", nil, nil))
	if len(search.Routes) != 1 || search.Routes[0].Name != "Canyon Hike" {
		t.Errorf("search results = %+v", search.Routes)
	}
}

func TestListTripsUpdatedSince(t *testing.T) {
	app, _ := testApp(t)

	created := decode[remote.Trip](t,
		doJSON(t, app, http.MethodPost, "/trips", validRequest(), nil))

	cutoff := created.UpdatedAt.Add(time.Nanosecond)
	path := "/trips?updated_since=" + cutoff.Format(time.RFC3339Nano)
	after := decode[remote.ListResponse](t, doJSON(t, app, http.MethodGet, path, nil, nil))
	if len(after.Routes) != 0 {
		t.Errorf("got %d routes after cutoff, want 0", len(after.Routes))
	}

	path = "/trips?updated_since=" + created.UpdatedAt.Add(-time.Second).Format(time.RFC3339Nano)
	before := decode[remote.ListResponse](t, doJSON(t, app, http.MethodGet, path, nil, nil))
	if len(before.Routes) != 1 {
		t.Errorf("got %d routes before cutoff, want 1", len(before.Routes))
	}
}

func TestUpdateTrip(t *testing.T) {
	app, _ := testApp(t)

	created := decode[remote.Trip](t,
		doJSON(t, app, http.MethodPost, "/trips", validRequest(), nil))

	update := validRequest()
	update.Name = "Renamed Ride"
	resp := doJSON(t, app, http.MethodPut, "/trips/"+created.ID, update, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	updated := decode[remote.Trip](t, resp)
	if updated.Name != "Renamed Ride" {
		t.Errorf("name = %s", updated.Name)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Error("updatedAt did not advance")
	}

	missing := doJSON(t, app, http.MethodPut, "/trips/nonexistent", update, nil)
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing update status = %d, want 404", missing.StatusCode)
	}
}

func TestDeleteTrip(t *testing.T) {
	app, _ := testApp(t)

	created := decode[remote.Trip](t,
		doJSON(t, app, http.MethodPost, "/trips", validRequest(), nil))

	resp := doJSON(t, app, http.MethodDelete, "/trips/"+created.ID, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	again := doJSON(t, app, http.MethodDelete, "/trips/"+created.ID, nil, nil)
	if again.StatusCode != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", again.StatusCode)
	}
}

func TestExportTrip(t *testing.T) {
	app, _ := testApp(t)

	req := validRequest()
	req.Name = "Lake & Shore!"
	alt := 180.5
	req.Locations[0].Altitude = &alt
	created := decode[remote.Trip](t,
		doJSON(t, app, http.MethodPost, "/trips", req, nil))

	resp := doJSON(t, app, http.MethodGet, "/trips/"+created.ID+"/export", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/gpx+xml" {
		t.Errorf("content type = %s", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Lake_Shore.gpx") {
		t.Errorf("content disposition = %s", cd)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "<trkpt") {
		t.Error("export body has no track points")
	}
	if !strings.Contains(string(body), "<ele>180.5</ele>") {
		t.Error("export body missing elevation")
	}

	missing := doJSON(t, app, http.MethodGet, "/trips/nope/export", nil, nil)
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing export status = %d, want 404", missing.StatusCode)
	}
}
