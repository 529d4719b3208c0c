package journey

import (
	"strconv"
	"strings"
	"time"
)

const clockLayout = "15:04"

// FormatClock renders a Unix timestamp (seconds) as a 24-hour HH:MM string in loc.
// A nil loc means time.Local.
func FormatClock(ts int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(ts, 0).In(loc).Format(clockLayout)
}

// parseClock resolves an "HH:MM" or "HH:MM:SS" wall-clock string against the
// calendar day of now, in now's location.
func parseClock(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return time.Time{}, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return time.Time{}, false
	}
	sec := 0
	if len(parts) == 3 {
		sec, err = strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return time.Time{}, false
		}
	}
	y, mo, d := now.Date()
	return time.Date(y, mo, d, h, m, sec, 0, now.Location()), true
}
