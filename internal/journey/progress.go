package journey

import (
	"time"
)

// Progress returns how far through the departure..arrival window now is, as a
// percentage clamped to [0, 100]. Both times are HH:MM resolved against now's
// day; an arrival earlier than the departure is taken to be after midnight.
// Missing or unparseable times yield 0.
func Progress(departure, arrival string, now time.Time) float64 {
	dep, ok := parseClock(departure, now)
	if !ok {
		return 0
	}
	arr, ok := parseClock(arrival, now)
	if !ok {
		return 0
	}
	if arr.Before(dep) {
		arr = arr.Add(24 * time.Hour)
	}
	return progressBetween(dep, arr, now)
}

// progressBetween is the clamped percentage of the dep..arr window elapsed at
// now. A zero-length window is 100 once now reaches it.
func progressBetween(dep, arr, now time.Time) float64 {
	elapsed := now.Sub(dep)
	total := arr.Sub(dep)
	if total <= 0 {
		if elapsed >= 0 {
			return 100
		}
		return 0
	}
	pct := float64(elapsed) / float64(total) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}
