// ABOUTME: Background worker running reconcile cycles on an interval
// ABOUTME: Skips ticks while a cycle is in flight; Stop waits for completion

package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is the default gap between reconcile cycles.
const DefaultInterval = 30 * time.Second

// Worker runs reconcile cycles periodically until stopped.
type Worker struct {
	rec      *Reconciler
	interval time.Duration
	log      *logrus.Entry

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stop      chan struct{}
	done      chan struct{}
}

// NewWorker creates a worker around a reconciler.
func NewWorker(rec *Reconciler, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Worker{
		rec:      rec,
		interval: interval,
		log:      logrus.WithField("component", "sync-worker"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the periodic cycle loop. The first cycle runs immediately.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started = true
		go w.run(ctx)
	})
}

// Stop halts the loop and waits for any in-flight cycle to finish. The cycle
// keeps its context: aborting a merge mid-flight risks inconsistent cache
// state, so shutdown only stops scheduling further cycles.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		if !w.started {
			close(w.done)
			return
		}
		<-w.done
	})
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	w.cycle(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.cycle(ctx)
		}
	}
}

func (w *Worker) cycle(ctx context.Context) {
	_, err := w.rec.Cycle(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress):
		w.log.Debug("skipping tick, cycle still running")
	case errors.Is(err, context.Canceled):
	default:
		w.log.WithError(err).Warn("reconcile cycle failed")
	}
}
