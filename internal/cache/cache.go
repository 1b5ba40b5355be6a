// ABOUTME: Durable local trip cache backed by BadgerDB
// ABOUTME: Atomic per-trip records, sync marker, and corrupt-record quarantine

package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bradwbu/Trekr/internal/models"
)

// ErrNotFound is returned when a requested trip does not exist.
var ErrNotFound = errors.New("not found")

// ErrCorrupt is returned when a trip record fails to decode. The record is
// quarantined and excluded from active listings; it is a maintenance signal,
// not a crash.
var ErrCorrupt = errors.New("corrupt trip record")

const (
	tripPrefix       = "trip:"
	quarantinePrefix = "quarantine:"
	markerKey        = "marker:last-sync"
)

// Store is the on-device trip cache. It exclusively owns the persisted
// bytes; collaborators get snapshots and commit changes through Put.
type Store struct {
	db   *badger.DB
	lock keyedLock
	log  *logrus.Entry
}

// Open creates or opens a cache at the given directory.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &Store{
		db:  db,
		log: logrus.WithField("component", "cache"),
	}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func tripKey(id uuid.UUID) []byte {
	return []byte(tripPrefix + id.String())
}

// Put writes a trip record atomically. Writers to the same trip id
// serialize in submission order; writers to different ids do not block
// each other.
func (s *Store) Put(trip *models.Trip) error {
	unlock := s.lock.acquire(trip.ID.String())
	defer unlock()

	data, err := json.Marshal(trip)
	if err != nil {
		return fmt.Errorf("encode trip: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tripKey(trip.ID), data)
	})
	if err != nil {
		return fmt.Errorf("write trip: %w", err)
	}
	return nil
}

// Get retrieves a full trip by id. A record that fails to decode is moved
// to quarantine and reported as ErrCorrupt.
func (s *Store) Get(id uuid.UUID) (*models.Trip, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tripKey(id))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read trip: %w", err)
	}

	var trip models.Trip
	if err := json.Unmarshal(raw, &trip); err != nil {
		s.quarantine(id, raw)
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, id)
	}
	return &trip, nil
}

// Delete removes a trip record. Deleting an absent id is not an error.
func (s *Store) Delete(id uuid.UUID) error {
	unlock := s.lock.acquire(id.String())
	defer unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(tripKey(id))
	})
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	return nil
}

// ListByDateRange returns summaries (samples omitted) of trips whose time
// span overlaps [from, to], sorted by start time ascending. Zero bounds are
// open-ended. Corrupt records are quarantined and skipped.
func (s *Store) ListByDateRange(from, to time.Time) ([]models.Summary, error) {
	trips, err := s.scan()
	if err != nil {
		return nil, err
	}

	var out []models.Summary
	for _, trip := range trips {
		if !from.IsZero() && trip.EndTime.Before(from) {
			continue
		}
		if !to.IsZero() && trip.StartTime.After(to) {
			continue
		}
		out = append(out, trip.Summarize())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

// All returns every readable trip with full samples, for reconciliation.
func (s *Store) All() ([]*models.Trip, error) {
	return s.scan()
}

// OpenTripForDay returns the open trip whose calendar day (in loc) matches
// the given key, or ErrNotFound. This is how a restarted process reattaches
// to today's bucket instead of trusting volatile memory.
func (s *Store) OpenTripForDay(day string, loc *time.Location) (*models.Trip, error) {
	trips, err := s.scan()
	if err != nil {
		return nil, err
	}
	for _, trip := range trips {
		if trip.Open && trip.Day(loc) == day {
			return trip, nil
		}
	}
	return nil, ErrNotFound
}

// scan decodes all trip records, quarantining any that fail.
func (s *Store) scan() ([]*models.Trip, error) {
	type rawRecord struct {
		id  uuid.UUID
		raw []byte
	}
	var records []rawRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(tripPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id, err := uuid.Parse(string(item.Key())[len(tripPrefix):])
			if err != nil {
				continue
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			records = append(records, rawRecord{id: id, raw: raw})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan trips: %w", err)
	}

	var trips []*models.Trip
	for _, rec := range records {
		var trip models.Trip
		if err := json.Unmarshal(rec.raw, &trip); err != nil {
			s.quarantine(rec.id, rec.raw)
			continue
		}
		trips = append(trips, &trip)
	}
	return trips, nil
}

// quarantine moves an undecodable record out of the active key space so it
// stops poisoning listings but remains available for inspection.
func (s *Store) quarantine(id uuid.UUID, raw []byte) {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(quarantinePrefix+id.String()), raw); err != nil {
			return err
		}
		return txn.Delete(tripKey(id))
	})
	if err != nil {
		s.log.WithError(err).WithField("trip_id", id).Error("quarantine failed")
		return
	}
	s.log.WithField("trip_id", id).Warn("quarantined corrupt trip record")
}

// Quarantined lists the ids of quarantined records.
func (s *Store) Quarantined() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(quarantinePrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id, err := uuid.Parse(string(it.Item().Key())[len(quarantinePrefix):])
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan quarantine: %w", err)
	}
	return ids, nil
}

// LastSyncMarker returns the last successful sync cursor, or the zero time
// when no sync has completed yet.
func (s *Store) LastSyncMarker() (time.Time, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(markerKey))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read sync marker: %w", err)
	}
	marker, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("decode sync marker: %w", err)
	}
	return marker, nil
}

// SetLastSyncMarker durably records the last successful sync cursor.
func (s *Store) SetLastSyncMarker(at time.Time) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(markerKey), []byte(at.UTC().Format(time.RFC3339Nano)))
	})
	if err != nil {
		return fmt.Errorf("write sync marker: %w", err)
	}
	return nil
}

// keyedLock serializes operations per trip id without blocking across ids.
type keyedLock struct {
	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedLock) acquire(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*entryLock)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &entryLock{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
