// ABOUTME: Tracking session facade wiring ingest, segmentation, and sync
// ABOUTME: Owns lifecycle: restore on start, flush on stop, background sync

package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bradwbu/Trekr/internal/cache"
	"github.com/bradwbu/Trekr/internal/ingest"
	"github.com/bradwbu/Trekr/internal/models"
	"github.com/bradwbu/Trekr/internal/reconcile"
	"github.com/bradwbu/Trekr/internal/segment"
)

// ErrStopped is returned for samples arriving after Stop. Intake halts
// immediately on shutdown; only the in-flight sync cycle is allowed to finish.
var ErrStopped = errors.New("tracker stopped")

// Options configures a tracking session.
type Options struct {
	// OwnerID identifies the user recording trips.
	OwnerID string
	// Zone is the reference time zone for day bucketing.
	Zone *time.Location
	// AccuracyCeiling and SignificantDistance tune the sample filter.
	AccuracyCeiling     float64
	SignificantDistance float64
	// InactivityGap closes a trip after this quiet period.
	InactivityGap time.Duration
	// Remote enables background sync when non-nil.
	Remote reconcile.RemoteStore
	// SyncInterval is the gap between sync cycles.
	SyncInterval time.Duration
	// Events receives trip lifecycle notifications.
	Events segment.Events
}

// Tracker is one device-side tracking session.
type Tracker struct {
	store     *cache.Store
	ingestor  *ingest.Ingestor
	segmenter *segment.Segmenter
	rec       *reconcile.Reconciler
	worker    *reconcile.Worker
	log       *logrus.Entry

	mu      sync.Mutex
	started bool
	stopped bool
}

// New wires a tracker over the given cache.
func New(store *cache.Store, opts Options) *Tracker {
	segmenter := segment.New(store, segment.Config{
		OwnerID:       opts.OwnerID,
		InactivityGap: opts.InactivityGap,
		Zone:          opts.Zone,
	}, opts.Events)

	t := &Tracker{
		store:     store,
		segmenter: segmenter,
		ingestor: ingest.New(segmenter, ingest.Options{
			AccuracyCeiling:     opts.AccuracyCeiling,
			SignificantDistance: opts.SignificantDistance,
		}),
		log: logrus.WithField("component", "tracker"),
	}
	if opts.Remote != nil {
		t.rec = reconcile.New(store, opts.Remote, reconcile.Config{OwnerID: opts.OwnerID})
		t.worker = reconcile.NewWorker(t.rec, opts.SyncInterval)
	}
	return t
}

// Start reattaches to any open trip from a previous run and begins
// background sync when a remote store is configured.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return errors.New("tracker already started")
	}

	if err := t.segmenter.Restore(time.Now()); err != nil {
		return err
	}
	if t.worker != nil {
		t.worker.Start(ctx)
	}
	t.started = true
	t.log.Info("tracking started")
	return nil
}

// Accept routes one raw sample through filtering and segmentation.
func (t *Tracker) Accept(s models.Sample) error {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if stopped {
		return ErrStopped
	}
	return t.ingestor.Accept(s)
}

// SetMode switches the sampling rate, e.g. when the host OS restricts
// background execution.
func (t *Tracker) SetMode(m ingest.Mode) { t.ingestor.SetMode(m) }

// Mode returns the current sampling mode.
func (t *Tracker) Mode() ingest.Mode { return t.ingestor.Mode() }

// OpenTrip returns a snapshot of the currently recording trip, or nil.
func (t *Tracker) OpenTrip() *models.Trip { return t.segmenter.Open() }

// Sync runs one reconcile cycle immediately. Returns nil when no remote
// store is configured.
func (t *Tracker) Sync(ctx context.Context) (*reconcile.Report, error) {
	if t.rec == nil {
		return nil, errors.New("sync is not configured")
	}
	return t.rec.Cycle(ctx)
}

// Stop halts intake, flushes the open trip, and waits for any in-flight
// sync cycle to finish. Further samples get ErrStopped.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.stopped = true
	t.mu.Unlock()

	err := t.segmenter.Flush()
	if t.worker != nil {
		t.worker.Stop()
	}
	t.log.Info("tracking stopped")
	return err
}
