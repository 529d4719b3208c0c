package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"journey-tracker/internal/backend"
	"journey-tracker/internal/config"
	"journey-tracker/internal/journey"
	"journey-tracker/internal/metrics"
	"journey-tracker/internal/planner"
	"journey-tracker/internal/publisher"
	"journey-tracker/internal/session"
	"journey-tracker/internal/tracker"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	routeFlags := []cli.Flag{
		&cli.Float64Flag{Name: "start-lat", Required: true},
		&cli.Float64Flag{Name: "start-lon", Required: true},
		&cli.Float64Flag{Name: "end-lat", Required: true},
		&cli.Float64Flag{Name: "end-lon", Required: true},
		&cli.StringFlag{Name: "departure", Usage: "RFC3339 time or HH:MM today; defaults to now"},
	}

	app := &cli.App{
		Name:  "journey-tracker",
		Usage: "plan transit journeys and follow them live",
		Commands: []*cli.Command{
			{
				Name:  "plan",
				Usage: "plan a route and print the assembled journey",
				Flags: routeFlags,
				Action: func(c *cli.Context) error {
					rt, err := setup()
					if err != nil {
						return err
					}
					defer rt.Close()

					req, err := planRequest(c, rt.cfg.Location)
					if err != nil {
						return err
					}
					j, err := rt.planner.Plan(c.Context, req)
					if err != nil {
						return err
					}
					return printJSON(j)
				},
			},
			{
				Name:  "track",
				Usage: "plan a route and track it until arrival",
				Flags: routeFlags,
				Action: func(c *cli.Context) error {
					rt, err := setup()
					if err != nil {
						return err
					}
					defer rt.Close()

					req, err := planRequest(c, rt.cfg.Location)
					if err != nil {
						return err
					}
					if _, err := rt.planner.Plan(c.Context, req); err != nil {
						return err
					}
					return rt.track(c.Context)
				},
			},
			{
				Name:  "recurring",
				Usage: "work with saved recurring routes",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list recurring routes",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "active-only", Value: true},
						},
						Action: func(c *cli.Context) error {
							rt, err := setup()
							if err != nil {
								return err
							}
							defer rt.Close()

							routes, err := rt.client.ListRecurringRoutes(c.Context, c.Bool("active-only"))
							if err != nil {
								return err
							}
							return printJSON(routes)
						},
					},
					{
						Name:      "show",
						Usage:     "show details and statistics of a recurring route",
						ArgsUsage: "<route-id>",
						Action: func(c *cli.Context) error {
							id := c.Args().First()
							if id == "" {
								return cli.Exit("route id is required", 1)
							}
							rt, err := setup()
							if err != nil {
								return err
							}
							defer rt.Close()

							route, err := rt.client.RecurringRoute(c.Context, id)
							if err != nil {
								return err
							}
							return printJSON(route)
						},
					},
					{
						Name:      "calculate",
						Usage:     "calculate the itinerary of a recurring route",
						ArgsUsage: "<route-id>",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "use-now", Usage: "depart now instead of at the saved time"},
							&cli.BoolFlag{Name: "track", Usage: "track the calculated journey until arrival"},
						},
						Action: func(c *cli.Context) error {
							id := c.Args().First()
							if id == "" {
								return cli.Exit("route id is required", 1)
							}
							rt, err := setup()
							if err != nil {
								return err
							}
							defer rt.Close()

							j, err := rt.planner.PlanRecurring(c.Context, id, c.Bool("use-now"))
							if err != nil {
								return err
							}
							if c.Bool("track") {
								return rt.track(c.Context)
							}
							return printJSON(j)
						},
					},
				},
			},
		},
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

type deps struct {
	cfg     *config.Config
	mcol    *metrics.Collector
	srv     *http.Server
	pub     *publisher.NATSPublisher
	client  *backend.Client
	session *session.Session
	planner *planner.Planner
}

func setup() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	setupLogging(cfg)

	rt := &deps{cfg: cfg}

	if cfg.MetricsAddr != "" {
		rt.mcol = metrics.NewCollector(cfg.TrackInterval, cfg.RequestTimeout)
		rt.srv = rt.mcol.Serve(cfg.MetricsAddr)
	}

	if cfg.NATSURL != "" {
		rt.pub, err = publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, wrapPublisherMetrics(rt.mcol))
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("nats error: %w", err)
		}
	} else {
		log.Debug().Msg("NATS_URL not set, snapshots will not be published")
	}

	opts := []backend.Option{
		backend.WithTimeout(cfg.RequestTimeout),
		backend.WithMaxRetries(cfg.BackendMaxRetries),
	}
	if m := wrapBackendMetrics(rt.mcol); m != nil {
		opts = append(opts, backend.WithMetrics(m))
	}
	rt.client = backend.NewClient(cfg.APIBaseURL, opts...)

	rt.session = session.New(cfg.HistoryLimit)
	if rt.mcol != nil {
		rt.session.OnHistoryChange(func(n int) { rt.mcol.HistorySize.Set(float64(n)) })
	}
	rt.planner = planner.New(rt.client, rt.session, cfg.Location, wrapSearchMetrics(rt.mcol))
	return rt, nil
}

func setupLogging(cfg *config.Config) {
	if !cfg.LogJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if cfg.Debug {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}
}

func (rt *deps) track(ctx context.Context) error {
	var pub tracker.Publisher
	if rt.pub != nil {
		pub = rt.pub
	}
	t := tracker.New(rt.session, pub, rt.cfg.TrackInterval, rt.cfg.Location, wrapTrackMetrics(rt.mcol),
		tracker.WithSnapshotHook(func(s journey.Snapshot) {
			log.Debug().Str("journey", s.JourneyID).Float64("progress", s.Progress).Msg("tick")
		}),
	)
	err := t.Run(ctx)
	if err != nil && ctx.Err() != nil {
		log.Info().Msg("tracking interrupted")
		return nil
	}
	return err
}

func (rt *deps) Close() {
	if rt.pub != nil {
		rt.pub.Close()
	}
	if rt.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = rt.srv.Shutdown(shutdownCtx)
	}
}

func planRequest(c *cli.Context, loc *time.Location) (backend.PlanRequest, error) {
	req := backend.PlanRequest{
		StartLat: c.Float64("start-lat"),
		StartLon: c.Float64("start-lon"),
		EndLat:   c.Float64("end-lat"),
		EndLon:   c.Float64("end-lon"),
	}
	if v := c.String("departure"); v != "" {
		dep, err := parseDeparture(v, time.Now().In(loc))
		if err != nil {
			return req, err
		}
		req.Departure = dep
	}
	return req, nil
}

func parseDeparture(v string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("15:04", v, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid departure %q: want RFC3339 or HH:MM", v)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
