// ABOUTME: Sample ingestor with accuracy filtering and dual-rate modes
// ABOUTME: Validates raw position samples and forwards them in arrival order

package ingest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bradwbu/Trekr/internal/geo"
	"github.com/bradwbu/Trekr/internal/models"
)

// ErrInvalidSample is returned when a sample fails validation or carries an
// unusable accuracy. Invalid samples are dropped; they never abort the stream.
var ErrInvalidSample = errors.New("invalid sample")

// DefaultAccuracyCeiling is the horizontal accuracy in meters above which a
// fix is considered too poor to contribute to trip geometry.
const DefaultAccuracyCeiling = 100.0

// DefaultSignificantDistance is the minimum displacement in meters a sample
// must cover in significant-change mode before it is forwarded.
const DefaultSignificantDistance = 250.0

// Mode selects the sampling rate behavior.
type Mode int

const (
	// ModeContinuous forwards every accepted sample.
	ModeContinuous Mode = iota
	// ModeSignificantChange drops samples that moved less than the
	// configured distance since the last forwarded sample. Used when the
	// host restricts background execution.
	ModeSignificantChange
)

// Sink receives accepted samples in arrival order.
type Sink interface {
	Consume(models.Sample) error
}

// Options configures an Ingestor.
type Options struct {
	// AccuracyCeiling in meters; samples at or above it are rejected.
	AccuracyCeiling float64
	// SignificantDistance in meters for ModeSignificantChange.
	SignificantDistance float64
}

// Ingestor filters raw position samples and forwards the survivors.
type Ingestor struct {
	mu       sync.Mutex
	sink     Sink
	mode     Mode
	ceiling  float64
	distance float64
	last     *models.Sample
	log      *logrus.Entry
}

// New creates an ingestor forwarding to the given sink.
func New(sink Sink, opts Options) *Ingestor {
	if opts.AccuracyCeiling <= 0 {
		opts.AccuracyCeiling = DefaultAccuracyCeiling
	}
	if opts.SignificantDistance <= 0 {
		opts.SignificantDistance = DefaultSignificantDistance
	}
	return &Ingestor{
		sink:     sink,
		ceiling:  opts.AccuracyCeiling,
		distance: opts.SignificantDistance,
		log:      logrus.WithField("component", "ingest"),
	}
}

// SetMode switches between continuous and significant-change sampling.
// Safe to call while samples are flowing.
func (g *Ingestor) SetMode(m Mode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mode != m {
		g.log.WithField("mode", m).Info("sampling mode changed")
	}
	g.mode = m
}

// Mode returns the current sampling mode.
func (g *Ingestor) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Accept validates one sample and forwards it to the sink.
// Returns ErrInvalidSample for unusable fixes (the stream continues),
// or the sink's error if forwarding fails.
func (g *Ingestor) Accept(s models.Sample) error {
	if err := s.Validate(); err != nil {
		g.log.WithError(err).Debug("dropping invalid sample")
		return fmt.Errorf("%w: %v", ErrInvalidSample, err)
	}
	if s.Accuracy != nil && (*s.Accuracy < 0 || *s.Accuracy >= g.ceiling) {
		g.log.WithField("accuracy_m", *s.Accuracy).Debug("dropping poor fix")
		return fmt.Errorf("%w: horizontal accuracy %.1fm outside [0, %.0f)",
			ErrInvalidSample, *s.Accuracy, g.ceiling)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mode == ModeSignificantChange && g.last != nil {
		moved := geo.HaversineMeters(g.last.Latitude, g.last.Longitude,
			s.Latitude, s.Longitude)
		if moved < g.distance {
			// Filtered, not an error: the device simply has not moved
			// far enough to matter at the reduced rate.
			return nil
		}
	}

	if err := g.sink.Consume(s); err != nil {
		return fmt.Errorf("forward sample: %w", err)
	}
	g.last = &s
	return nil
}
