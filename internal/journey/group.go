package journey

import (
	"time"

	"journey-tracker/internal/itinerary"
)

// Stop is a boundary stop of a leg with its formatted schedule time.
type Stop struct {
	UUID          string                `json:"uuid"`
	Name          string                `json:"name"`
	Coordinates   itinerary.Coordinates `json:"coordinates"`
	ArrivalTime   string                `json:"arrivalTime,omitempty"`
	DepartureTime string                `json:"departureTime,omitempty"`
}

// Time is the schedule time used to classify the stop: arrival when known,
// else departure.
func (s Stop) Time() string {
	if s.ArrivalTime != "" {
		return s.ArrivalTime
	}
	return s.DepartureTime
}

type VehicleInfo struct {
	UUID        string `json:"uuid,omitempty"`
	LineNumber  int    `json:"lineNumber"`
	Destination string `json:"destination"`
	Type        string `json:"type"`
}

// Leg is one or more consecutive raw segments of the same type.
type Leg struct {
	LegID                 int                   `json:"segmentId"`
	Type                  itinerary.SegmentType `json:"type"`
	FromStop              Stop                  `json:"fromStop"`
	ToStop                Stop                  `json:"toStop"`
	DepartureTime         string                `json:"departureTime"`
	ArrivalTime           string                `json:"arrivalTime"`
	DepartureTimestamp    int64                 `json:"departureTimestamp"`
	ArrivalTimestamp      int64                 `json:"arrivalTimestamp"`
	DurationMinutes       float64               `json:"durationMinutes"`
	WalkingDistanceMeters *float64              `json:"walkingDistanceMeters,omitempty"`
	VehicleInfo           *VehicleInfo          `json:"vehicleInfo,omitempty"`
	DelayMinutes          float64               `json:"delayMinutes,omitempty"`
	DelayReason           string                `json:"delayReason,omitempty"`
	SegmentCount          int                   `json:"segmentCount"`
}

// GroupSegments folds consecutive segments of the same type into legs in a
// single left-to-right pass. Every segment lands in exactly one leg and legs
// keep the order of their segments.
func GroupSegments(segs []itinerary.Segment, loc *time.Location) []Leg {
	var legs []Leg
	start := 0
	for i := 1; i <= len(segs); i++ {
		if i == len(segs) || segs[i].Type != segs[start].Type {
			legs = append(legs, buildLeg(segs[start:i], loc))
			start = i
		}
	}
	return legs
}

func buildLeg(group []itinerary.Segment, loc *time.Location) Leg {
	first := group[0]
	last := group[len(group)-1]
	dep := FormatClock(first.DepartureTimestamp, loc)
	arr := FormatClock(last.ArrivalTimestamp, loc)

	leg := Leg{
		LegID: first.SegmentID,
		Type:  first.Type,
		FromStop: Stop{
			UUID:          first.FromStop.UUID,
			Name:          first.FromStop.Name,
			Coordinates:   first.FromStop.Coordinates,
			DepartureTime: dep,
		},
		ToStop: Stop{
			UUID:        last.ToStop.UUID,
			Name:        last.ToStop.Name,
			Coordinates: last.ToStop.Coordinates,
			ArrivalTime: arr,
		},
		DepartureTime:      dep,
		ArrivalTime:        arr,
		DepartureTimestamp: first.DepartureTimestamp,
		ArrivalTimestamp:   last.ArrivalTimestamp,
		SegmentCount:       len(group),
	}

	walked := 0.0
	for _, s := range group {
		leg.DurationMinutes += s.DurationMinutes
		if s.WalkingDistanceMeters != nil {
			walked += *s.WalkingDistanceMeters
		}
		if leg.VehicleInfo == nil && s.Vehicle != nil {
			leg.VehicleInfo = &VehicleInfo{
				UUID:        s.Vehicle.UUID,
				LineNumber:  s.Vehicle.LineNumber,
				Destination: s.Vehicle.Destination,
				Type:        s.Vehicle.Type,
			}
		}
		if s.Delay.Active() {
			leg.DelayMinutes += s.Delay.Minutes
			if leg.DelayReason == "" {
				leg.DelayReason = s.Delay.Reason
			}
		}
	}
	if walked > 0 {
		leg.WalkingDistanceMeters = &walked
	}
	return leg
}
