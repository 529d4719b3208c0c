// Package journey turns raw backend itineraries into display-ready journeys and
// derives their live progress and stop states. Everything here is a pure
// function of its inputs.
package journey

import (
	"strconv"
	"time"

	"journey-tracker/internal/itinerary"
)

type Status string

const (
	StatusOnTime    Status = "on-time"
	StatusDelayed   Status = "delayed"
	StatusCancelled Status = "cancelled"
)

const (
	// WalkingRouteNumber labels itineraries without any transit segment.
	WalkingRouteNumber = "🚶"
	// FallbackRouteNumber labels transit itineraries where no segment carries a vehicle.
	FallbackRouteNumber = "Bus"
)

// Journey is the assembled, display-ready form of one itinerary. It is built
// in one pass by Assemble and never mutated afterwards.
type Journey struct {
	ID               string                  `json:"id"`
	RouteNumber      string                  `json:"routeNumber"`
	Destination      string                  `json:"destination"`
	Departure        string                  `json:"departure"`
	Arrival          string                  `json:"arrival"`
	Status           Status                  `json:"status"`
	DelayMinutes     *float64                `json:"delayMinutes,omitempty"`
	CurrentStop      string                  `json:"currentStop,omitempty"`
	NextStop         string                  `json:"nextStop,omitempty"`
	VehicleUUID      string                  `json:"vehicleUuid,omitempty"`
	Legs             []Leg                   `json:"segments"`
	CurrentStopIndex int                     `json:"currentStopIndex"`
	RouteGeometry    []itinerary.Coordinates `json:"routeGeometry"`
	Summary          itinerary.Summary       `json:"summary"`
	Recommendations  []string                `json:"recommendations,omitempty"`
}

// Assemble builds a Journey from a checked route response. It returns nil for
// an itinerary without segments; callers are expected to run Check first.
func Assemble(id string, resp *itinerary.RouteResponse, loc *time.Location) *Journey {
	if resp == nil || len(resp.Segments) == 0 {
		return nil
	}
	segs := resp.Segments
	first := segs[0]
	last := segs[len(segs)-1]
	_, transit := itinerary.Partition(segs)

	j := &Journey{
		ID:               id,
		Departure:        FormatClock(resp.Summary.DepartureTimestamp, loc),
		Arrival:          FormatClock(resp.Summary.ArrivalTimestamp, loc),
		Legs:             GroupSegments(segs, loc),
		CurrentStopIndex: 0,
		RouteGeometry:    geometry(resp.DetailedGeometry),
		Summary:          resp.Summary,
		Recommendations:  resp.Recommendations,
	}

	if len(transit) == 0 {
		j.RouteNumber = WalkingRouteNumber
		j.Destination = last.ToStop.Name
		j.Status = StatusOnTime
		j.CurrentStop = first.FromStop.Name
		j.NextStop = lookahead(segs)
		return j
	}

	if v := representativeVehicle(transit); v != nil {
		j.RouteNumber = strconv.Itoa(v.LineNumber)
		j.VehicleUUID = v.UUID
	} else {
		j.RouteNumber = FallbackRouteNumber
	}
	j.Destination = firstNonEmpty(transit[len(transit)-1].ToStop.Name, last.ToStop.Name)
	if delay := resp.Summary.TotalDelayTimeMinutes; delay > 0 {
		j.Status = StatusDelayed
		j.DelayMinutes = &delay
	} else {
		j.Status = StatusOnTime
	}
	j.CurrentStop = firstNonEmpty(transit[0].FromStop.Name, first.FromStop.Name)
	j.NextStop = firstNonEmpty(lookahead(transit), lookahead(segs))
	return j
}

type lineTally struct {
	vehicle *itinerary.Vehicle
	count   int
}

// representativeVehicle picks the line seen on the most transit segments.
// Tallies are kept in first-seen order and only a strictly higher count
// replaces the leader, so ties go to the line encountered first.
func representativeVehicle(transit []itinerary.Segment) *itinerary.Vehicle {
	var tallies []lineTally
	for _, s := range transit {
		if s.Vehicle == nil {
			continue
		}
		found := false
		for k := range tallies {
			if tallies[k].vehicle.LineNumber == s.Vehicle.LineNumber {
				tallies[k].count++
				found = true
				break
			}
		}
		if !found {
			tallies = append(tallies, lineTally{vehicle: s.Vehicle, count: 1})
		}
	}
	best := -1
	for k := range tallies {
		if best < 0 || tallies[k].count > tallies[best].count {
			best = k
		}
	}
	if best < 0 {
		return nil
	}
	return tallies[best].vehicle
}

// lookahead is the best-effort next stop: the origin of the second segment,
// else the destination of the first.
func lookahead(segs []itinerary.Segment) string {
	if len(segs) == 0 {
		return ""
	}
	if len(segs) > 1 && segs[1].FromStop.Name != "" {
		return segs[1].FromStop.Name
	}
	return segs[0].ToStop.Name
}

func geometry(points [][2]float64) []itinerary.Coordinates {
	out := make([]itinerary.Coordinates, 0, len(points))
	for _, p := range points {
		out = append(out, itinerary.Coordinates{Latitude: p[0], Longitude: p[1]})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
