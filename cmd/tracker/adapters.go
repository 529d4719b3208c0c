package main

import (
	"time"

	"journey-tracker/internal/backend"
	"journey-tracker/internal/metrics"
	"journey-tracker/internal/planner"
	"journey-tracker/internal/publisher"
	"journey-tracker/internal/tracker"
)

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool)        { p.c.NATSConnected.Set(boolGauge(b)) }

func wrapBackendMetrics(c *metrics.Collector) backend.Metrics {
	if c == nil {
		return nil
	}
	return &backendMetrics{c: c}
}

type backendMetrics struct{ c *metrics.Collector }

func (b *backendMetrics) BackendRequest(endpoint, code string) {
	b.c.BackendRequests.WithLabelValues(endpoint, code).Inc()
}
func (b *backendMetrics) BackendRetry(endpoint string) { b.c.BackendRetries.WithLabelValues(endpoint).Inc() }
func (b *backendMetrics) BackendObserve(endpoint string, d time.Duration) {
	b.c.BackendDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func wrapSearchMetrics(c *metrics.Collector) planner.Metrics {
	if c == nil {
		return nil
	}
	return &searchMetrics{c: c}
}

type searchMetrics struct{ c *metrics.Collector }

func (s *searchMetrics) SearchStarted() { s.c.SearchInFlight.Inc() }
func (s *searchMetrics) SearchFinished(outcome string) {
	s.c.SearchInFlight.Dec()
	s.c.Searches.WithLabelValues(outcome).Inc()
}

func wrapTrackMetrics(c *metrics.Collector) tracker.Metrics {
	if c == nil {
		return nil
	}
	return &trackMetrics{c: c}
}

type trackMetrics struct{ c *metrics.Collector }

func (t *trackMetrics) TrackingStarted() { t.c.ActiveTracking.Set(1) }
func (t *trackMetrics) TrackingStopped(reason string) {
	t.c.ActiveTracking.Set(0)
	t.c.TrackingDone.WithLabelValues(reason).Inc()
}
func (t *trackMetrics) TickObserve(d time.Duration, progress float64) {
	t.c.TrackingTicks.Inc()
	t.c.TickDuration.Observe(d.Seconds())
	t.c.JourneyProgress.Set(progress)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
