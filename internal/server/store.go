// ABOUTME: SQLite persistence for the remote trip store
// ABOUTME: Trip records, idempotency keys, pagination, and search queries

package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/bradwbu/Trekr/internal/remote"
)

// ErrNotFound is returned when a requested trip does not exist.
var ErrNotFound = errors.New("not found")

// TripStore persists remote trips in a local SQLite database.
type TripStore struct {
	db   *sql.DB
	path string
}

// NewTripStore creates the store, its directory, and its schema.
func NewTripStore(path string) (*TripStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &TripStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *TripStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS trips (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			locations TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS idempotency_keys (
			key TEXT PRIMARY KEY,
			trip_id TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_trips_updated_at ON trips(updated_at);
		CREATE INDEX IF NOT EXISTS idx_trips_start_time ON trips(start_time);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *TripStore) Close() error {
	return s.db.Close()
}

// CreateTrip inserts a trip, honoring the idempotency key: a retried create
// with a known key returns the originally created record and created=false.
func (s *TripStore) CreateTrip(req remote.CreateTripRequest, idempotencyKey string) (*remote.Trip, bool, error) {
	if idempotencyKey != "" {
		var existingID string
		err := s.db.QueryRow(
			"SELECT trip_id FROM idempotency_keys WHERE key = ?", idempotencyKey,
		).Scan(&existingID)
		if err == nil {
			trip, getErr := s.GetTrip(existingID)
			if getErr != nil {
				return nil, false, getErr
			}
			return trip, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, fmt.Errorf("lookup idempotency key: %w", err)
		}
	}

	locations, err := json.Marshal(req.Locations)
	if err != nil {
		return nil, false, fmt.Errorf("encode locations: %w", err)
	}

	trip := remote.Trip{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Locations:   req.Locations,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		UpdatedAt:   time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`INSERT INTO trips (id, name, description, start_time, end_time, updated_at, locations)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trip.ID, trip.Name, trip.Description, trip.StartTime, trip.EndTime, trip.UpdatedAt, string(locations),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert trip: %w", err)
	}
	if idempotencyKey != "" {
		_, err = tx.Exec(
			"INSERT INTO idempotency_keys (key, trip_id) VALUES (?, ?)",
			idempotencyKey, trip.ID,
		)
		if err != nil {
			return nil, false, fmt.Errorf("insert idempotency key: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}
	return &trip, true, nil
}

// UpdateTrip replaces the content of an existing trip.
func (s *TripStore) UpdateTrip(id string, req remote.CreateTripRequest) (*remote.Trip, error) {
	locations, err := json.Marshal(req.Locations)
	if err != nil {
		return nil, fmt.Errorf("encode locations: %w", err)
	}
	updatedAt := time.Now().UTC()

	res, err := s.db.Exec(
		`UPDATE trips SET name = ?, description = ?, start_time = ?, end_time = ?, updated_at = ?, locations = ?
		 WHERE id = ?`,
		req.Name, req.Description, req.StartTime, req.EndTime, updatedAt, string(locations), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetTrip(id)
}

// GetTrip retrieves one trip with its locations.
func (s *TripStore) GetTrip(id string) (*remote.Trip, error) {
	row := s.db.QueryRow(
		`SELECT id, name, description, start_time, end_time, updated_at, locations
		 FROM trips WHERE id = ?`, id,
	)
	return scanTrip(row.Scan)
}

// DeleteTrip removes a trip. Returns ErrNotFound when the id is unknown,
// which callers may treat as already-deleted.
func (s *TripStore) DeleteTrip(id string) error {
	res, err := s.db.Exec("DELETE FROM trips WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTrips returns a filtered, paginated listing with full locations.
func (s *TripStore) ListTrips(q remote.ListQuery) (*remote.ListResponse, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var conds []string
	var args []interface{}
	if !q.From.IsZero() {
		conds = append(conds, "end_time >= ?")
		args = append(args, q.From)
	}
	if !q.To.IsZero() {
		conds = append(conds, "start_time <= ?")
		args = append(args, q.To)
	}
	if !q.UpdatedSince.IsZero() {
		conds = append(conds, "updated_at > ?")
		args = append(args, q.UpdatedSince)
	}
	if q.Search != "" {
		conds = append(conds, "(name LIKE ? OR description LIKE ?)")
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM trips"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count trips: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT id, name, description, start_time, end_time, updated_at, locations
		 FROM trips`+where+` ORDER BY start_time DESC LIMIT ? OFFSET ?`,
		append(args, limit, (page-1)*limit)...,
	)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer func() { _ = rows.Close() }()

	trips := []remote.Trip{}
	for rows.Next() {
		trip, err := scanTrip(rows.Scan)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trips: %w", err)
	}

	pages := (total + limit - 1) / limit
	if pages == 0 {
		pages = 1
	}
	return &remote.ListResponse{
		Routes: trips,
		Pagination: remote.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

func scanTrip(scan func(...interface{}) error) (*remote.Trip, error) {
	var trip remote.Trip
	var locations string
	err := scan(&trip.ID, &trip.Name, &trip.Description,
		&trip.StartTime, &trip.EndTime, &trip.UpdatedAt, &locations)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan trip: %w", err)
	}
	if err := json.Unmarshal([]byte(locations), &trip.Locations); err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}
	return &trip, nil
}
