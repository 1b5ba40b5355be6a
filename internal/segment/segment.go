// ABOUTME: Trip segmenter state machine over filtered position samples
// ABOUTME: Buckets samples into trips by calendar day and inactivity gaps

package segment

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bradwbu/Trekr/internal/cache"
	"github.com/bradwbu/Trekr/internal/models"
	"github.com/bradwbu/Trekr/internal/stats"
)

// DefaultInactivityGap is the pause after which a new sample starts a new
// trip instead of extending the current one.
const DefaultInactivityGap = 30 * time.Minute

// Config controls trip boundary decisions.
type Config struct {
	// OwnerID is stamped on every trip this segmenter opens.
	OwnerID string
	// InactivityGap closes a trip when the next sample arrives later than
	// this after the trip's last sample.
	InactivityGap time.Duration
	// Zone is the reference time zone for calendar-day boundaries.
	Zone *time.Location
}

// Events carries optional notifications. Callbacks run synchronously on the
// intake path and must not block.
type Events struct {
	OnSampleAppended func(trip *models.Trip, s models.Sample)
	OnTripClosed     func(trip *models.Trip)
}

// Segmenter groups ordered samples into trip buckets. The local cache is the
// authority for the open bucket; in-memory state is only a fast path that is
// rebuilt from the cache on restart.
type Segmenter struct {
	mu     sync.Mutex
	store  *cache.Store
	cfg    Config
	events Events
	open   *models.Trip
	log    *logrus.Entry
}

// New creates a segmenter persisting through the given cache.
func New(store *cache.Store, cfg Config, events Events) *Segmenter {
	if cfg.InactivityGap <= 0 {
		cfg.InactivityGap = DefaultInactivityGap
	}
	if cfg.Zone == nil {
		cfg.Zone = time.Local
	}
	return &Segmenter{
		store:  store,
		cfg:    cfg,
		events: events,
		log:    logrus.WithField("component", "segment"),
	}
}

// Restore reattaches to today's open trip from the cache, closing any stale
// open buckets left over from previous days. Called on process start so a
// relaunch never opens a duplicate trip for the same day.
func (sg *Segmenter) Restore(now time.Time) error {
	sg.mu.Lock()
	defer sg.mu.Unlock()

	trips, err := sg.store.All()
	if err != nil {
		return fmt.Errorf("restore open trip: %w", err)
	}

	today := models.DayKey(now, sg.cfg.Zone)
	for _, trip := range trips {
		if !trip.Open {
			continue
		}
		if trip.Day(sg.cfg.Zone) == today {
			sg.open = trip
			continue
		}
		// A bucket from an earlier day can never receive samples again.
		if err := sg.closeTripLocked(trip); err != nil {
			return err
		}
	}
	if sg.open != nil {
		sg.log.WithFields(logrus.Fields{
			"trip_id": sg.open.ID,
			"samples": len(sg.open.Samples),
		}).Info("reattached to open trip")
	}
	return nil
}

// Consume routes one sample into the current or a new trip bucket.
// It satisfies the ingestor's Sink interface.
func (sg *Segmenter) Consume(s models.Sample) error {
	sg.mu.Lock()
	defer sg.mu.Unlock()

	if sg.open != nil && sg.shouldClose(sg.open, s) {
		if err := sg.closeTripLocked(sg.open); err != nil {
			return err
		}
		sg.open = nil
	}

	if sg.open == nil {
		trip := models.NewTrip(sg.cfg.OwnerID, s)
		trip.Stats = stats.Compute(trip.Samples)
		if err := sg.store.Put(trip); err != nil {
			return fmt.Errorf("persist new trip: %w", err)
		}
		sg.open = trip
		if sg.events.OnSampleAppended != nil {
			sg.events.OnSampleAppended(trip, s)
		}
		return nil
	}

	if !sg.open.Append(s) {
		// Re-emitted sample id; nothing changed.
		return nil
	}
	sg.open.Stats = stats.Compute(sg.open.Samples)
	if err := sg.store.Put(sg.open); err != nil {
		return fmt.Errorf("persist trip append: %w", err)
	}
	if sg.events.OnSampleAppended != nil {
		sg.events.OnSampleAppended(sg.open, s)
	}
	return nil
}

// shouldClose applies the trip boundary rules to an incoming sample.
func (sg *Segmenter) shouldClose(open *models.Trip, s models.Sample) bool {
	if models.DayKey(s.Timestamp, sg.cfg.Zone) != open.Day(sg.cfg.Zone) {
		return true
	}
	last := open.Samples[len(open.Samples)-1]
	return s.Timestamp.Sub(last.Timestamp) > sg.cfg.InactivityGap
}

// Flush closes the current open trip, if any. Called when tracking stops.
func (sg *Segmenter) Flush() error {
	sg.mu.Lock()
	defer sg.mu.Unlock()

	if sg.open == nil {
		return nil
	}
	if err := sg.closeTripLocked(sg.open); err != nil {
		return err
	}
	sg.open = nil
	return nil
}

// closeTripLocked finalizes statistics and persists the trip as closed.
func (sg *Segmenter) closeTripLocked(trip *models.Trip) error {
	trip.Open = false
	trip.Stats = stats.Compute(trip.Samples)
	trip.Touch()
	if err := sg.store.Put(trip); err != nil {
		return fmt.Errorf("persist closed trip: %w", err)
	}
	sg.log.WithFields(logrus.Fields{
		"trip_id":    trip.ID,
		"samples":    len(trip.Samples),
		"distance_m": trip.Stats.TotalDistanceMeters,
	}).Info("closed trip")
	if sg.events.OnTripClosed != nil {
		sg.events.OnTripClosed(trip)
	}
	return nil
}

// Open returns a snapshot of the current open trip, or nil.
func (sg *Segmenter) Open() *models.Trip {
	sg.mu.Lock()
	defer sg.mu.Unlock()
	if sg.open == nil {
		return nil
	}
	snapshot := *sg.open
	snapshot.Samples = append([]models.Sample(nil), sg.open.Samples...)
	return &snapshot
}
