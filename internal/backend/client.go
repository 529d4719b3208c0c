// Package backend talks to the route-planning REST API.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"journey-tracker/internal/itinerary"
)

// ErrTimeout is returned when a call does not complete within the request budget.
var ErrTimeout = errors.New("backend request timed out")

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

func (e *StatusError) transient() bool {
	switch e.Status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

type Metrics interface {
	BackendRequest(endpoint string, code string)
	BackendRetry(endpoint string)
	BackendObserve(endpoint string, d time.Duration)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	newBackOff func() backoff.BackOff
	metrics    Metrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }
func WithTimeout(d time.Duration) Option    { return func(c *Client) { c.timeout = d } }
func WithMaxRetries(n int) Option           { return func(c *Client) { c.maxRetries = n } }
func WithMetrics(m Metrics) Option          { return func(c *Client) { c.metrics = m } }

// WithBackOff replaces the exponential policy used between retries.
func WithBackOff(f func() backoff.BackOff) Option { return func(c *Client) { c.newBackOff = f } }

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    60 * time.Second,
		maxRetries: 3,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PlanRequest holds the /plan_route query. A zero Departure means now.
type PlanRequest struct {
	StartLat  float64
	StartLon  float64
	EndLat    float64
	EndLon    float64
	Departure time.Time
}

func (r PlanRequest) query(now time.Time) url.Values {
	dep := r.Departure
	if dep.IsZero() {
		dep = now
	}
	q := url.Values{}
	q.Set("start_lat", formatCoord(r.StartLat))
	q.Set("start_lon", formatCoord(r.StartLon))
	q.Set("end_lat", formatCoord(r.EndLat))
	q.Set("end_lon", formatCoord(r.EndLon))
	q.Set("departure_timestamp", strconv.FormatInt(dep.Unix(), 10))
	return q
}

func formatCoord(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// PlanRoute fetches an itinerary. The envelope is returned as decoded; callers
// run Check on it before assembling.
func (c *Client) PlanRoute(ctx context.Context, req PlanRequest) (*itinerary.RouteResponse, error) {
	var resp itinerary.RouteResponse
	if err := c.get(ctx, "plan_route", "/plan_route", req.query(time.Now()), &resp); err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}
	return &resp, nil
}

func (c *Client) ListRecurringRoutes(ctx context.Context, activeOnly bool) ([]itinerary.RecurringRoute, error) {
	q := url.Values{}
	q.Set("active_only", strconv.FormatBool(activeOnly))
	var resp itinerary.RecurringRoutesResponse
	if err := c.get(ctx, "recurring_list", "/recurring-routes", q, &resp); err != nil {
		return nil, fmt.Errorf("list recurring routes: %w", err)
	}
	if !resp.Success {
		return nil, &itinerary.BackendError{Message: resp.Message}
	}
	return resp.Routes, nil
}

func (c *Client) RecurringRoute(ctx context.Context, id string) (*itinerary.RecurringRouteDetail, error) {
	var resp itinerary.RecurringRouteResponse
	if err := c.get(ctx, "recurring_detail", "/recurring-routes/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, fmt.Errorf("recurring route %s: %w", id, err)
	}
	if !resp.Success {
		return nil, &itinerary.BackendError{Message: resp.Message}
	}
	if resp.Route == nil {
		return nil, &itinerary.BackendError{Message: "recurring route " + id + " not found"}
	}
	return resp.Route, nil
}

// CalculateRecurringRoute asks the backend for the itinerary of a saved route,
// either for its configured departure time or, with useNow, for right now.
func (c *Client) CalculateRecurringRoute(ctx context.Context, id string, useNow bool) (*itinerary.RouteResponse, error) {
	var q url.Values
	if useNow {
		q = url.Values{"use_now": []string{"true"}}
	}
	var resp itinerary.RouteResponse
	if err := c.get(ctx, "recurring_calculate", "/recurring-routes/"+url.PathEscape(id)+"/calculate-route", q, &resp); err != nil {
		return nil, fmt.Errorf("calculate recurring route %s: %w", id, err)
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	start := time.Now()
	attempt := 0
	op := func() error {
		attempt++
		return c.do(ctx, endpoint, reqURL, out)
	}
	notify := func(err error, wait time.Duration) {
		if c.metrics != nil {
			c.metrics.BackendRetry(endpoint)
		}
		log.Warn().Err(err).Str("endpoint", endpoint).Int("attempt", attempt).Dur("wait", wait).Msg("backend busy, retrying")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	err := backoff.RetryNotify(op, b, notify)
	if c.metrics != nil {
		c.metrics.BackendObserve(endpoint, time.Since(start))
	}
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		log.Error().Str("endpoint", endpoint).Dur("timeout", c.timeout).Msg("backend request timed out")
		return fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	}
	return err
}

// do performs a single attempt. Errors wrapped in backoff.Permanent stop the retry loop.
func (c *Client) do(ctx context.Context, endpoint, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	log.Debug().Str("url", reqURL).Msg("backend request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(endpoint, "error")
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	defer resp.Body.Close()
	c.record(endpoint, strconv.Itoa(resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{Status: resp.StatusCode}
		if resp.StatusCode == http.StatusUnprocessableEntity {
			serr.Detail = errorDetail(body)
		}
		if serr.transient() {
			return serr
		}
		return backoff.Permanent(serr)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode %s response: %w", endpoint, err))
	}
	return nil
}

func (c *Client) record(endpoint, code string) {
	if c.metrics != nil {
		c.metrics.BackendRequest(endpoint, code)
	}
}

// errorDetail extracts a validation message from a 422 body. The backend sends
// either {"detail": "..."}, {"detail": [{"msg": "..."}]} or {"message": "..."}.
func errorDetail(body []byte) string {
	var env struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return strings.TrimSpace(string(body))
	}
	if len(env.Detail) > 0 {
		var s string
		if err := json.Unmarshal(env.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(env.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	return env.Message
}
