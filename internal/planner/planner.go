package planner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"journey-tracker/internal/backend"
	"journey-tracker/internal/itinerary"
	"journey-tracker/internal/journey"
	"journey-tracker/internal/session"
)

type Backend interface {
	PlanRoute(ctx context.Context, req backend.PlanRequest) (*itinerary.RouteResponse, error)
	CalculateRecurringRoute(ctx context.Context, id string, useNow bool) (*itinerary.RouteResponse, error)
}

type Metrics interface {
	SearchStarted()
	SearchFinished(outcome string)
}

// Search outcomes reported to Metrics.
const (
	OutcomeOK           = "ok"
	OutcomeEmpty        = "empty"
	OutcomeBackendError = "backend_error"
	OutcomeHTTPError    = "http_error"
	OutcomeTimeout      = "timeout"
	OutcomeError        = "error"
)

type Planner struct {
	backend  Backend
	session  *session.Session
	loc      *time.Location
	metrics  Metrics
	inFlight atomic.Int32
}

func New(b Backend, s *session.Session, loc *time.Location, m Metrics) *Planner {
	return &Planner{backend: b, session: s, loc: loc, metrics: m}
}

// Loading reports whether a search is waiting on the backend.
func (p *Planner) Loading() bool { return p.inFlight.Load() > 0 }

// Plan fetches an itinerary, assembles it and makes it the current journey.
func (p *Planner) Plan(ctx context.Context, req backend.PlanRequest) (*journey.Journey, error) {
	return p.search(ctx, func(ctx context.Context) (*itinerary.RouteResponse, error) {
		return p.backend.PlanRoute(ctx, req)
	})
}

// PlanRecurring does the same for a saved recurring route.
func (p *Planner) PlanRecurring(ctx context.Context, id string, useNow bool) (*journey.Journey, error) {
	return p.search(ctx, func(ctx context.Context) (*itinerary.RouteResponse, error) {
		return p.backend.CalculateRecurringRoute(ctx, id, useNow)
	})
}

func (p *Planner) search(ctx context.Context, fetch func(context.Context) (*itinerary.RouteResponse, error)) (j *journey.Journey, err error) {
	p.inFlight.Add(1)
	if p.metrics != nil {
		p.metrics.SearchStarted()
	}
	start := time.Now()
	defer func() {
		p.inFlight.Add(-1)
		outcome := classify(err)
		if p.metrics != nil {
			p.metrics.SearchFinished(outcome)
		}
		l := log.Info()
		if err != nil {
			l = log.Warn().Err(err)
		}
		l.Str("outcome", outcome).Dur("took", time.Since(start)).Msg("route search finished")
	}()

	resp, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Check(); err != nil {
		return nil, err
	}

	j = journey.Assemble("route-"+uuid.NewString(), resp, p.loc)
	if j == nil {
		return nil, fmt.Errorf("assemble: %w", itinerary.ErrEmptyItinerary)
	}
	log.Debug().
		Str("journey", j.ID).
		Str("route", j.RouteNumber).
		Str("departure", j.Departure).
		Str("arrival", j.Arrival).
		Int("legs", len(j.Legs)).
		Msg("journey assembled")

	p.session.SetCurrent(j)
	p.session.AddToHistory(j)
	return j, nil
}

func classify(err error) string {
	var berr *itinerary.BackendError
	var serr *backend.StatusError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, itinerary.ErrEmptyItinerary):
		return OutcomeEmpty
	case errors.Is(err, backend.ErrTimeout):
		return OutcomeTimeout
	case errors.As(err, &berr):
		return OutcomeBackendError
	case errors.As(err, &serr):
		return OutcomeHTTPError
	default:
		return OutcomeError
	}
}
