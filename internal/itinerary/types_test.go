package itinerary

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelay_DecodeShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    *Delay
	}{
		{
			name:    "object",
			payload: `{"delay":{"has_delay":true,"delay_minutes":4.5,"delay_reason":"traffic","delay_source":"gps"}}`,
			want:    &Delay{HasDelay: true, Minutes: 4.5, Reason: "traffic", Source: "gps"},
		},
		{
			name:    "bare minutes",
			payload: `{"delay":3}`,
			want:    &Delay{HasDelay: true, Minutes: 3},
		},
		{
			name:    "zero minutes",
			payload: `{"delay":0}`,
			want:    &Delay{},
		},
		{
			name:    "null",
			payload: `{"delay":null}`,
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seg Segment
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &seg))
			assert.Equal(t, tt.want, seg.Delay)
		})
	}
}

func TestDelay_Active(t *testing.T) {
	var missing *Delay
	assert.False(t, missing.Active())
	assert.True(t, (&Delay{HasDelay: true, Minutes: 2}).Active())
	assert.False(t, (&Delay{HasDelay: true}).Active())

	var seg Segment
	require.NoError(t, json.Unmarshal([]byte(`{"delay":{"has_delay":false,"delay_minutes":3}}`), &seg))
	assert.False(t, seg.Delay.Active())
}

func TestDelay_RejectsGarbage(t *testing.T) {
	var seg Segment
	err := json.Unmarshal([]byte(`{"delay":"late"}`), &seg)
	assert.Error(t, err)
}

func TestRouteResponse_Decode(t *testing.T) {
	payload := `{
		"success": true,
		"message": "ok",
		"route_segments": [{
			"segment_id": 3,
			"type": "walking",
			"from_stop": {"uuid": "a", "name": "Home", "coordinates": {"latitude": 52.1, "longitude": 21.0}},
			"to_stop": {"uuid": "b", "name": "Rondo", "coordinates": {"latitude": 52.2, "longitude": 21.1}},
			"departure_timestamp": 1700000000,
			"arrival_timestamp": 1700000300,
			"duration_minutes": 5,
			"walking_distance_meters": 420.5,
			"vehicle": null,
			"delay": null
		}],
		"summary": {"total_duration_minutes": 5, "number_of_transfers": 0, "departure_timestamp": 1700000000, "arrival_timestamp": 1700000300},
		"detailed_geometry": [[52.1, 21.0], [52.2, 21.1]]
	}`
	var resp RouteResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))
	require.Len(t, resp.Segments, 1)

	seg := resp.Segments[0]
	assert.Equal(t, Walking, seg.Type)
	assert.Equal(t, "Rondo", seg.ToStop.Name)
	require.NotNil(t, seg.WalkingDistanceMeters)
	assert.InDelta(t, 420.5, *seg.WalkingDistanceMeters, 1e-9)
	assert.Nil(t, seg.Vehicle)
	assert.Equal(t, [][2]float64{{52.1, 21.0}, {52.2, 21.1}}, resp.DetailedGeometry)
	assert.NoError(t, resp.Check())
}

func TestRouteResponse_Check(t *testing.T) {
	var nilResp *RouteResponse
	assert.ErrorIs(t, nilResp.Check(), ErrEmptyItinerary)

	failed := &RouteResponse{Success: false, Message: "no route between points"}
	err := failed.Check()
	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "no route between points", be.Error())

	assert.Equal(t, "failed to fetch route", (&BackendError{}).Error())

	empty := &RouteResponse{Success: true}
	assert.ErrorIs(t, empty.Check(), ErrEmptyItinerary)
}

func TestPartition_KeepsOrder(t *testing.T) {
	segs := []Segment{
		{SegmentID: 1, Type: Walking},
		{SegmentID: 2, Type: Transit},
		{SegmentID: 4, Type: Walking},
		{SegmentID: 7, Type: Transit},
	}
	walking, transit := Partition(segs)
	require.Len(t, walking, 2)
	require.Len(t, transit, 2)
	assert.Equal(t, 1, walking[0].SegmentID)
	assert.Equal(t, 4, walking[1].SegmentID)
	assert.Equal(t, 2, transit[0].SegmentID)
	assert.Equal(t, 7, transit[1].SegmentID)
}
