package journey

import (
	"time"
)

type StopStatus string

const (
	StopCompleted StopStatus = "completed"
	StopCurrent   StopStatus = "current"
	StopUpcoming  StopStatus = "upcoming"
)

// Tolerance window around a stop's scheduled time, in minutes relative to now.
const (
	completedAfterMinutes = -2.0
	currentBeforeMinutes  = 5.0
)

// ClassifyStop labels a stop by comparing its HH:MM schedule (resolved against
// now's day) with now. A missing or unparseable time is upcoming.
func ClassifyStop(scheduled string, now time.Time) StopStatus {
	at, ok := parseClock(scheduled, now)
	if !ok {
		return StopUpcoming
	}
	return classifyAt(at, now)
}

func classifyAt(at, now time.Time) StopStatus {
	diff := at.Sub(now).Minutes()
	switch {
	case diff < completedAfterMinutes:
		return StopCompleted
	case diff < currentBeforeMinutes:
		return StopCurrent
	default:
		return StopUpcoming
	}
}

// Stops lists the boundary stops of the journey in travel order: the first
// leg's origin, then each leg's destination. A transfer stop carries both its
// arrival and the departure of the following leg.
func (j *Journey) Stops() []Stop {
	if j == nil || len(j.Legs) == 0 {
		return nil
	}
	stops := make([]Stop, 0, len(j.Legs)+1)
	stops = append(stops, j.Legs[0].FromStop)
	for i, leg := range j.Legs {
		s := leg.ToStop
		if i+1 < len(j.Legs) {
			s.DepartureTime = j.Legs[i+1].DepartureTime
		}
		stops = append(stops, s)
	}
	return stops
}

type StopState struct {
	Stop
	Status StopStatus `json:"status"`
}

// Snapshot is the live view of a journey at one instant.
type Snapshot struct {
	JourneyID        string      `json:"journeyId"`
	RouteNumber      string      `json:"routeNumber"`
	At               time.Time   `json:"at"`
	Progress         float64     `json:"progress"`
	Stops            []StopState `json:"stops"`
	CurrentStopIndex int         `json:"currentStopIndex"`
	CurrentStop      string      `json:"currentStop,omitempty"`
	NextStop         string      `json:"nextStop,omitempty"`
	Finished         bool        `json:"finished"`
}

// Track computes the live snapshot of j at now. Stops and progress are read
// from the journey's absolute timestamps when it has them, so a journey that
// runs past midnight keeps a consistent stop pointer. The current stop index is
// the first current stop, else the first upcoming one, else the last stop.
func Track(j *Journey, now time.Time) Snapshot {
	snap := Snapshot{At: now}
	if j == nil {
		return snap
	}
	snap.JourneyID = j.ID
	snap.RouteNumber = j.RouteNumber
	snap.Progress = j.progress(now)
	snap.Finished = snap.Progress >= 100

	stops := j.Stops()
	if len(stops) == 0 {
		return snap
	}
	instants := j.stopInstants(stops, now)
	snap.Stops = make([]StopState, len(stops))
	current, upcoming := -1, -1
	for i, s := range stops {
		st := StopUpcoming
		if !instants[i].IsZero() {
			st = classifyAt(instants[i], now)
		}
		snap.Stops[i] = StopState{Stop: s, Status: st}
		if st == StopCurrent && current < 0 {
			current = i
		}
		if st == StopUpcoming && upcoming < 0 {
			upcoming = i
		}
	}
	idx := len(stops) - 1
	if current >= 0 {
		idx = current
	} else if upcoming >= 0 {
		idx = upcoming
	}
	snap.CurrentStopIndex = idx
	snap.CurrentStop = stops[idx].Name
	if idx+1 < len(stops) {
		snap.NextStop = stops[idx+1].Name
	}
	return snap
}

func (j *Journey) progress(now time.Time) float64 {
	if dep, arr := j.Summary.DepartureTimestamp, j.Summary.ArrivalTimestamp; dep > 0 && arr > 0 {
		return progressBetween(time.Unix(dep, 0), time.Unix(arr, 0), now)
	}
	return Progress(j.Departure, j.Arrival, now)
}

// stopInstants resolves each stop of Stops() to an absolute time: the leg
// timestamp when set, else its HH:MM on now's day, moved to the next day when
// it falls before the journey's departure. Unresolvable stops stay zero.
func (j *Journey) stopInstants(stops []Stop, now time.Time) []time.Time {
	out := make([]time.Time, len(stops))
	dep, depOK := parseClock(j.Departure, now)
	for i, s := range stops {
		var ts int64
		if i == 0 {
			ts = j.Legs[0].DepartureTimestamp
		} else {
			ts = j.Legs[i-1].ArrivalTimestamp
		}
		if ts > 0 {
			out[i] = time.Unix(ts, 0).In(now.Location())
			continue
		}
		at, ok := parseClock(s.Time(), now)
		if !ok {
			continue
		}
		if depOK && at.Before(dep) {
			at = at.Add(24 * time.Hour)
		}
		out[i] = at
	}
	return out
}
