package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journey-tracker/internal/itinerary"
)

const routeJSON = `{
	"success": true,
	"message": "ok",
	"route_segments": [
		{
			"segment_id": 1,
			"type": "walking",
			"from_stop": {"uuid": "home", "name": "Home", "coordinates": {"latitude": 50.06, "longitude": 19.94}},
			"to_stop": {"uuid": "s1", "name": "Rondo", "coordinates": {"latitude": 50.07, "longitude": 19.95}},
			"departure_timestamp": 1741953600,
			"arrival_timestamp": 1741953900,
			"duration_minutes": 5,
			"walking_distance_meters": 350
		}
	],
	"summary": {"total_duration_minutes": 5}
}`

type fakeMetrics struct {
	mu       sync.Mutex
	requests []string
	retries  int
	observed int
}

func (f *fakeMetrics) BackendRequest(endpoint, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, endpoint+":"+code)
}

func (f *fakeMetrics) BackendRetry(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries++
}

func (f *fakeMetrics) BackendObserve(string, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observed++
}

func newTestClient(url string, opts ...Option) *Client {
	opts = append([]Option{
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	}, opts...)
	return NewClient(url+"/", opts...)
}

func TestClient_PlanRoute(t *testing.T) {
	dep := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/plan_route", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "50.0614", q.Get("start_lat"))
		assert.Equal(t, "19.9366", q.Get("start_lon"))
		assert.Equal(t, "50.0497", q.Get("end_lat"))
		assert.Equal(t, "19.9445", q.Get("end_lon"))
		assert.Equal(t, "1741953600", q.Get("departure_timestamp"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(routeJSON))
	}))
	defer server.Close()

	m := &fakeMetrics{}
	c := newTestClient(server.URL, WithMetrics(m))
	resp, err := c.PlanRoute(context.Background(), PlanRequest{
		StartLat: 50.0614, StartLon: 19.9366, EndLat: 50.0497, EndLon: 19.9445, Departure: dep,
	})
	require.NoError(t, err)
	require.NoError(t, resp.Check())
	require.Len(t, resp.Segments, 1)
	assert.Equal(t, "Rondo", resp.Segments[0].ToStop.Name)
	assert.Equal(t, []string{"plan_route:200"}, m.requests)
	assert.Equal(t, 1, m.observed)
}

func TestClient_PlanRoute_DefaultsDepartureToNow(t *testing.T) {
	before := time.Now().Unix()
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("departure_timestamp")
		w.Write([]byte(routeJSON))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).PlanRoute(context.Background(), PlanRequest{})
	require.NoError(t, err)
	sec, err := strconv.ParseInt(got, 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sec, before)
	assert.LessOrEqual(t, sec, time.Now().Unix())
}

func TestClient_UnprocessableEntity(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail": "start and end are identical"}`, "start and end are identical"},
		{"list detail", `{"detail": [{"msg": "field required"}, {"msg": "value is not a valid float"}]}`, "field required; value is not a valid float"},
		{"message", `{"message": "no stops nearby"}`, "no stops nearby"},
		{"plain text", `out of service area`, "out of service area"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).PlanRoute(context.Background(), PlanRequest{})
			var serr *StatusError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, http.StatusUnprocessableEntity, serr.Status)
			assert.Equal(t, tt.want, serr.Detail)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(routeJSON))
	}))
	defer server.Close()

	m := &fakeMetrics{}
	resp, err := newTestClient(server.URL, WithMetrics(m)).PlanRoute(context.Background(), PlanRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2, m.retries)
	assert.Equal(t, []string{"plan_route:503", "plan_route:503", "plan_route:200"}, m.requests)
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, WithMaxRetries(2)).PlanRoute(context.Background(), PlanRequest{})
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusBadGateway, serr.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).RecurringRoute(context.Background(), "r-1")
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusNotFound, serr.Status)
	assert.Contains(t, err.Error(), "status: 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, WithTimeout(50*time.Millisecond)).PlanRoute(context.Background(), PlanRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}

func TestClient_ListRecurringRoutes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recurring-routes", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("active_only"))
		w.Write([]byte(`{"success": true, "routes": [
			{"id": "r-1", "name": "To work", "from_location_name": "Home", "to_location_name": "Office",
			 "departure_time": "07:45", "frequency": "weekdays", "is_active": true, "average_duration_minutes": 32.5}
		]}`))
	}))
	defer server.Close()

	routes, err := newTestClient(server.URL).ListRecurringRoutes(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "To work", routes[0].Name)
	assert.Equal(t, 32.5, routes[0].AverageDurationMinutes)
}

func TestClient_ListRecurringRoutes_Unsuccessful(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "user unknown"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListRecurringRoutes(context.Background(), true)
	var berr *itinerary.BackendError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "user unknown", berr.Message)
}

func TestClient_RecurringRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recurring-routes/r-1", r.URL.Path)
		w.Write([]byte(`{"success": true, "route": {
			"id": "r-1", "name": "To work", "departure_time": "07:45",
			"statistics": {"total_trips": 40, "on_time_percentage": 87.5, "average_delay_minutes": 2.1, "most_common_delay_reason": null},
			"best_departure_time": "07:40", "alternative_times": ["07:30", "07:55"], "tips": ["Sit at the front"]
		}}`))
	}))
	defer server.Close()

	route, err := newTestClient(server.URL).RecurringRoute(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, 40, route.Statistics.TotalTrips)
	assert.Nil(t, route.Statistics.MostCommonDelayReason)
	assert.Equal(t, []string{"07:30", "07:55"}, route.AlternativeTimes)
}

func TestClient_CalculateRecurringRoute(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recurring-routes/r-1/calculate-route", r.URL.Path)
		rawQuery = r.URL.RawQuery
		w.Write([]byte(routeJSON))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.CalculateRecurringRoute(context.Background(), "r-1", true)
	require.NoError(t, err)
	assert.Equal(t, "use_now=true", rawQuery)

	_, err = c.CalculateRecurringRoute(context.Background(), "r-1", false)
	require.NoError(t, err)
	assert.Empty(t, rawQuery)
}
