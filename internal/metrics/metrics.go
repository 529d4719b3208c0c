package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Collector struct {
	reg *prometheus.Registry

	Searches        *prometheus.CounterVec // outcome label: ok|empty|backend_error|http_error|timeout|error
	SearchInFlight  prometheus.Gauge
	BackendRequests *prometheus.CounterVec // endpoint, code labels
	BackendRetries  *prometheus.CounterVec // endpoint label
	BackendDuration *prometheus.HistogramVec

	HistorySize     prometheus.Gauge
	ActiveTracking  prometheus.Gauge
	TrackingTicks   prometheus.Counter
	TrackingDone    *prometheus.CounterVec // reason label: finished|cleared|replaced|cancelled
	TickDuration    prometheus.Histogram
	JourneyProgress prometheus.Gauge

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	TrackInterval  prometheus.Gauge // seconds
	RequestTimeout prometheus.Gauge // seconds
}

func NewCollector(trackInterval, requestTimeout time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journey_searches_total",
			Help: "Route searches by outcome.",
		}, []string{"outcome"}),
		SearchInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_searches_in_flight",
			Help: "Route searches currently waiting on the backend.",
		}),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journey_backend_requests_total",
			Help: "Backend HTTP attempts by endpoint and status code.",
		}, []string{"endpoint", "code"}),
		BackendRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journey_backend_retries_total",
			Help: "Backend attempts retried after a transient failure.",
		}, []string{"endpoint"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "journey_backend_request_duration_seconds",
			Help:    "Duration of backend calls including retries.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"endpoint"}),
		HistorySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_history_size",
			Help: "Journeys held in the session history.",
		}),
		ActiveTracking: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_tracking_active",
			Help: "1 while a journey is being tracked, 0 otherwise.",
		}),
		TrackingTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_tracking_ticks_total",
			Help: "Total tracking ticks computed.",
		}),
		TrackingDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journey_tracking_stopped_total",
			Help: "Tracking loops stopped, by reason.",
		}, []string{"reason"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "journey_tick_duration_seconds",
			Help:    "Duration of tracking tick computations.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 15),
		}),
		JourneyProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_progress_percent",
			Help: "Progress of the tracked journey, 0-100.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "journey_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		TrackInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_track_interval_seconds",
			Help: "Tracking tick interval in seconds.",
		}),
		RequestTimeout: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_request_timeout_seconds",
			Help: "Backend request budget in seconds.",
		}),
	}

	reg.MustRegister(
		c.Searches, c.SearchInFlight,
		c.BackendRequests, c.BackendRetries, c.BackendDuration,
		c.HistorySize, c.ActiveTracking, c.TrackingTicks, c.TrackingDone,
		c.TickDuration, c.JourneyProgress,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.TrackInterval, c.RequestTimeout,
	)

	c.TrackInterval.Set(trackInterval.Seconds())
	c.RequestTimeout.Set(requestTimeout.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}
