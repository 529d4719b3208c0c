package tracker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"journey-tracker/internal/journey"
	"journey-tracker/internal/session"
)

type Publisher interface {
	PublishSnapshot(journeyID string, snap journey.Snapshot) error
}

type Metrics interface {
	TrackingStarted()
	TrackingStopped(reason string)
	TickObserve(d time.Duration, progress float64)
}

// Reasons a tracking loop stops, reported to Metrics.
const (
	StopFinished  = "finished"
	StopCleared   = "cleared"
	StopReplaced  = "replaced"
	StopCancelled = "cancelled"
)

type Tracker struct {
	session  *session.Session
	pub      Publisher
	interval time.Duration
	loc      *time.Location
	metrics  Metrics
	now      func() time.Time
	hook     func(journey.Snapshot)
}

type Option func(*Tracker)

// WithClock overrides the wall clock used for each tick.
func WithClock(now func() time.Time) Option { return func(t *Tracker) { t.now = now } }

// WithSnapshotHook registers f to receive every computed snapshot.
func WithSnapshotHook(f func(journey.Snapshot)) Option { return func(t *Tracker) { t.hook = f } }

// New returns a tracker over the session's current journey. pub and m may be nil.
func New(s *session.Session, pub Publisher, interval time.Duration, loc *time.Location, m Metrics, opts ...Option) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	t := &Tracker{session: s, pub: pub, interval: interval, loc: loc, metrics: m, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run computes a snapshot of the current journey every interval until the
// journey finishes, the session's current journey is cleared, or ctx is done.
// Replacing the current journey switches tracking to the new one.
func (t *Tracker) Run(ctx context.Context) error {
	var (
		trackedID string
		lastIdx   = -1
	)
	stop := func(reason string) {
		if trackedID == "" {
			return
		}
		if t.metrics != nil {
			t.metrics.TrackingStopped(reason)
		}
		log.Info().Str("journey", trackedID).Str("reason", reason).Msg("tracking stopped")
	}

	tick := time.NewTicker(t.interval)
	defer tick.Stop()

	for {
		j := t.session.Current()
		if j == nil {
			stop(StopCleared)
			return nil
		}
		if j.ID != trackedID {
			stop(StopReplaced)
			trackedID, lastIdx = j.ID, -1
			if t.metrics != nil {
				t.metrics.TrackingStarted()
			}
			log.Info().Str("journey", j.ID).Str("route", j.RouteNumber).Str("departure", j.Departure).Str("arrival", j.Arrival).Msg("tracking journey")
		}

		tickStart := time.Now()
		snap := journey.Track(j, t.now().In(t.loc))
		if snap.CurrentStopIndex != lastIdx && len(snap.Stops) > 0 {
			log.Info().
				Str("journey", j.ID).
				Int("index", snap.CurrentStopIndex).
				Str("stop", snap.CurrentStop).
				Str("next", snap.NextStop).
				Float64("progress", snap.Progress).
				Msg("current stop changed")
			lastIdx = snap.CurrentStopIndex
		}
		if t.pub != nil {
			if err := t.pub.PublishSnapshot(j.ID, snap); err != nil {
				log.Error().Err(err).Str("journey", j.ID).Msg("publish snapshot")
			}
		}
		if t.hook != nil {
			t.hook(snap)
		}
		if t.metrics != nil {
			t.metrics.TickObserve(time.Since(tickStart), snap.Progress)
		}
		if snap.Finished {
			stop(StopFinished)
			return nil
		}

		select {
		case <-ctx.Done():
			stop(StopCancelled)
			return ctx.Err()
		case <-tick.C:
		}
	}
}
