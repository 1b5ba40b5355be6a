// ABOUTME: Reconciles the local trip cache with the remote store
// ABOUTME: Pull-then-push cycles with conflict preservation and retry backoff

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bradwbu/Trekr/internal/cache"
	"github.com/bradwbu/Trekr/internal/models"
	"github.com/bradwbu/Trekr/internal/remote"
)

// ErrCycleInProgress is returned when a cycle is requested while another is
// still running. Cycles never overlap.
var ErrCycleInProgress = errors.New("reconcile cycle already in progress")

// RemoteStore is the remote surface the reconciler needs. *remote.Client
// satisfies it.
type RemoteStore interface {
	CreateTrip(ctx context.Context, req remote.CreateTripRequest, idempotencyKey string) (*remote.Trip, error)
	UpdateTrip(ctx context.Context, id string, req remote.CreateTripRequest) (*remote.Trip, error)
	TripsSince(ctx context.Context, since time.Time) ([]remote.Trip, error)
	GetTrip(ctx context.Context, id string) (*remote.Trip, error)
	DeleteTrip(ctx context.Context, id string) error
}

// Config holds reconciler tuning.
type Config struct {
	// OwnerID is stamped onto trips materialized from the remote store.
	OwnerID string
	// BaseBackoff is the first retry delay after a transient push failure.
	// Defaults to 30s.
	BaseBackoff time.Duration
	// MaxBackoff caps the exponential retry delay. Defaults to 15m.
	MaxBackoff time.Duration
}

// Conflict pairs the two divergent copies of a trip. Both survive: the local
// copy stays in the cache marked conflicted, the remote copy is reported here
// for the user to resolve.
type Conflict struct {
	Local  models.Trip
	Remote remote.Trip
}

// Report summarizes one reconcile cycle.
type Report struct {
	Pulled    int
	Pushed    int
	Deferred  int
	Failed    int
	Rejected  []uuid.UUID
	Conflicts []Conflict

	// MarkerAdvanced is true when the cycle finished cleanly and moved the
	// durable pull cursor forward. Only timestamps observed in the pull can
	// move it.
	MarkerAdvanced bool
}

// Reconciler drives sync between the local cache and the remote store.
type Reconciler struct {
	store  *cache.Store
	remote RemoteStore
	cfg    Config

	cycleMu sync.Mutex
	retries *backoff
	now     func() time.Time
	log     *logrus.Entry
}

// New creates a reconciler.
func New(store *cache.Store, rs RemoteStore, cfg Config) *Reconciler {
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 30 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 15 * time.Minute
	}
	return &Reconciler{
		store:   store,
		remote:  rs,
		cfg:     cfg,
		retries: newBackoff(cfg.BaseBackoff, cfg.MaxBackoff),
		now:     time.Now,
		log:     logrus.WithField("component", "reconcile"),
	}
}

// Cycle runs one pull-then-push reconcile pass. At most one cycle runs at a
// time; a second caller gets ErrCycleInProgress instead of queueing.
func (r *Reconciler) Cycle(ctx context.Context) (*Report, error) {
	if !r.cycleMu.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer r.cycleMu.Unlock()

	report := &Report{}
	marker, err := r.store.LastSyncMarker()
	if err != nil {
		return report, err
	}
	maxUpdated := marker
	clean := true

	if err := r.pull(ctx, marker, &maxUpdated, report); err != nil {
		// A failed pull aborts the cycle; pushing against stale remote
		// knowledge would manufacture conflicts.
		return report, err
	}

	if err := r.push(ctx, report); err != nil {
		return report, err
	}
	if report.Failed > 0 {
		clean = false
	}

	if clean && maxUpdated.After(marker) {
		if err := r.store.SetLastSyncMarker(maxUpdated); err != nil {
			return report, err
		}
		report.MarkerAdvanced = true
	}

	r.log.WithFields(logrus.Fields{
		"pulled":    report.Pulled,
		"pushed":    report.Pushed,
		"deferred":  report.Deferred,
		"failed":    report.Failed,
		"conflicts": len(report.Conflicts),
	}).Info("reconcile cycle finished")
	return report, nil
}

// pull folds remote changes since the marker into the local cache.
func (r *Reconciler) pull(ctx context.Context, since time.Time, maxUpdated *time.Time, report *Report) error {
	changed, err := r.remote.TripsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("pull remote changes: %w", err)
	}
	if len(changed) == 0 {
		return nil
	}

	locals, err := r.store.All()
	if err != nil {
		return err
	}
	byRemoteID := make(map[string]*models.Trip, len(locals))
	for _, t := range locals {
		if t.RemoteID != "" {
			byRemoteID[t.RemoteID] = t
		}
	}

	for _, rt := range changed {
		if rt.UpdatedAt.After(*maxUpdated) {
			*maxUpdated = rt.UpdatedAt
		}

		local, known := byRemoteID[rt.ID]
		switch {
		case !known:
			if err := r.store.Put(rt.ToLocalTrip(r.cfg.OwnerID)); err != nil {
				return err
			}
			report.Pulled++
		case !local.Dirty():
			// Local copy is clean; the remote edit wins outright.
			rt.ApplyToLocalTrip(local)
			if err := r.store.Put(local); err != nil {
				return err
			}
			report.Pulled++
		default:
			// Both sides changed since the last sync. Neither copy is
			// discarded: the local one stays, flagged, and the remote one
			// rides in the report.
			local.SyncState = models.SyncConflict
			if err := r.store.Put(local); err != nil {
				return err
			}
			report.Conflicts = append(report.Conflicts, Conflict{
				Local:  *local,
				Remote: rt,
			})
			r.log.WithFields(logrus.Fields{
				"trip_id":   local.ID,
				"remote_id": rt.ID,
			}).Warn("sync conflict detected")
		}
	}
	return nil
}

// push sends dirty closed trips to the remote store. It never moves the sync
// marker: the marker is a pull cursor, and advancing it to a push's timestamp
// would skip remote edits made by other devices between this cycle's pull and
// push. Re-pulling one's own push next cycle is a clean-copy no-op.
func (r *Reconciler) push(ctx context.Context, report *Report) error {
	locals, err := r.store.All()
	if err != nil {
		return err
	}
	now := r.now()

	for _, trip := range locals {
		if !pushable(trip) {
			continue
		}
		if !r.retries.ready(trip.ID.String(), now) {
			report.Deferred++
			continue
		}

		if trip.SyncState != models.SyncPendingPush {
			trip.SyncState = models.SyncPendingPush
			if err := r.store.Put(trip); err != nil {
				return err
			}
		}

		req := remote.RequestFromTrip(trip)
		var pushed *remote.Trip
		if trip.RemoteID == "" {
			pushed, err = r.remote.CreateTrip(ctx, req, trip.IdempotencyKey.String())
		} else {
			pushed, err = r.remote.UpdateTrip(ctx, trip.RemoteID, req)
		}

		switch {
		case err == nil:
			trip.RemoteID = pushed.ID
			trip.SyncState = models.SyncSynced
			trip.LastSynced = trip.LastModified
			if err := r.store.Put(trip); err != nil {
				return err
			}
			r.retries.reset(trip.ID.String())
			report.Pushed++

		case errors.Is(err, remote.ErrRejected):
			// Terminal: the remote store will never accept this trip as-is.
			trip.SyncState = models.SyncRejected
			if err := r.store.Put(trip); err != nil {
				return err
			}
			r.retries.reset(trip.ID.String())
			report.Rejected = append(report.Rejected, trip.ID)
			r.log.WithError(err).WithField("trip_id", trip.ID).Warn("push rejected")

		case errors.Is(err, remote.ErrUnauthorized):
			// The client has invalidated its token; nothing else will
			// succeed until re-auth, so stop pushing this cycle.
			report.Failed++
			return fmt.Errorf("push %s: %w", trip.ID, err)

		default:
			retryAt := r.retries.fail(trip.ID.String(), now)
			report.Failed++
			r.log.WithError(err).WithFields(logrus.Fields{
				"trip_id":  trip.ID,
				"retry_at": retryAt.Format(time.RFC3339),
			}).Warn("push failed, will retry")
		}
	}
	return nil
}

// pushable reports whether a trip is eligible for pushing this cycle.
// Open trips are still accumulating samples; conflicted and rejected trips
// need user action; trips with fewer than 2 samples fail remote validation.
func pushable(t *models.Trip) bool {
	if t.Open || !t.Dirty() {
		return false
	}
	if t.SyncState == models.SyncConflict || t.SyncState == models.SyncRejected {
		return false
	}
	return len(t.Samples) >= 2
}

// DeleteRemote removes a trip's remote copy, if it has one. Used by the
// delete flow before dropping the local record.
func (r *Reconciler) DeleteRemote(ctx context.Context, trip *models.Trip) error {
	if trip.RemoteID == "" {
		return nil
	}
	if err := r.remote.DeleteTrip(ctx, trip.RemoteID); err != nil {
		return fmt.Errorf("delete remote trip: %w", err)
	}
	return nil
}

// ResolveConflict settles a conflicted trip. keepLocal re-marks the local
// copy dirty so the next cycle pushes it; otherwise the remote copy
// overwrites local content.
func (r *Reconciler) ResolveConflict(ctx context.Context, id uuid.UUID, keepLocal bool) error {
	trip, err := r.store.Get(id)
	if err != nil {
		return err
	}
	if trip.SyncState != models.SyncConflict {
		return fmt.Errorf("trip %s is not conflicted", id)
	}

	if keepLocal {
		trip.SyncState = models.SyncPendingPush
		trip.Touch()
		return r.store.Put(trip)
	}

	if trip.RemoteID == "" {
		return fmt.Errorf("trip %s has no remote copy to restore", id)
	}
	rt, err := r.remote.GetTrip(ctx, trip.RemoteID)
	if err != nil {
		return err
	}
	rt.ApplyToLocalTrip(trip)
	return r.store.Put(trip)
}
