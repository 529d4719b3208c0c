package itinerary

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type SegmentType string

const (
	Walking SegmentType = "walking"
	Transit SegmentType = "transit"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Stop struct {
	UUID        string      `json:"uuid"`
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
}

type Vehicle struct {
	UUID         string `json:"uuid"`
	LicensePlate string `json:"license_plate"`
	Type         string `json:"type"`
	LineNumber   int    `json:"line_number"`
	Destination  string `json:"destination"`
	Capacity     int    `json:"capacity"`
	Owner        string `json:"owner"`
}

// Delay is the per-segment delay block. Older backend revisions sent a bare
// number of minutes instead of the object; both decode here.
type Delay struct {
	HasDelay bool    `json:"has_delay"`
	Minutes  float64 `json:"delay_minutes"`
	Reason   string  `json:"delay_reason"`
	Source   string  `json:"delay_source"`
}

func (d *Delay) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] != '{' {
		var minutes float64
		if err := json.Unmarshal(b, &minutes); err != nil {
			return fmt.Errorf("delay: %w", err)
		}
		*d = Delay{HasDelay: minutes > 0, Minutes: minutes}
		return nil
	}
	type plain Delay
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("delay: %w", err)
	}
	*d = Delay(p)
	return nil
}

// Active reports whether the delay contributes minutes. The backend flag wins:
// minutes on a block with has_delay=false are ignored.
func (d *Delay) Active() bool {
	return d != nil && d.HasDelay && d.Minutes > 0
}

type Segment struct {
	SegmentID             int         `json:"segment_id"`
	Type                  SegmentType `json:"type"`
	FromStop              Stop        `json:"from_stop"`
	ToStop                Stop        `json:"to_stop"`
	DepartureTimestamp    int64       `json:"departure_timestamp"`
	ArrivalTimestamp      int64       `json:"arrival_timestamp"`
	DurationMinutes       float64     `json:"duration_minutes"`
	WalkingDistanceMeters *float64    `json:"walking_distance_meters"`
	Vehicle               *Vehicle    `json:"vehicle"`
	Delay                 *Delay      `json:"delay"`
}

type Summary struct {
	TotalDurationMinutes       float64 `json:"total_duration_minutes"`
	TotalWalkingTimeMinutes    float64 `json:"total_walking_time_minutes"`
	TotalWalkingDistanceMeters float64 `json:"total_walking_distance_meters"`
	TotalWaitTimeMinutes       float64 `json:"total_wait_time_minutes"`
	TotalDelayTimeMinutes      float64 `json:"total_delay_time_minutes"`
	NumberOfTransfers          int     `json:"number_of_transfers"`
	DepartureTimestamp         int64   `json:"departure_timestamp"`
	ArrivalTimestamp           int64   `json:"arrival_timestamp"`
	SegmentsCount              int     `json:"segments_count"`
	WalkingSegmentsCount       int     `json:"walking_segments_count"`
	TransitSegmentsCount       int     `json:"transit_segments_count"`
}

// RouteResponse is the envelope returned by /plan_route and by
// /recurring-routes/{id}/calculate-route.
type RouteResponse struct {
	Success          bool         `json:"success"`
	Message          string       `json:"message"`
	Segments         []Segment    `json:"route_segments"`
	Summary          Summary      `json:"summary"`
	DetailedGeometry [][2]float64 `json:"detailed_geometry,omitempty"`
	Recommendations  []string     `json:"recommendations,omitempty"`
}

// Partition splits segments by type, keeping the original order in each half.
func Partition(segs []Segment) (walking, transit []Segment) {
	for _, s := range segs {
		if s.Type == Transit {
			transit = append(transit, s)
		} else {
			walking = append(walking, s)
		}
	}
	return walking, transit
}
