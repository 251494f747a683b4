package scheduling

import "time"

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share any instant. Intervals that merely touch at an
// endpoint do not overlap. Every time-range comparison in the service
// routes through this function.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DurationMinutes returns the whole minutes between start and end,
// rounded down. Negative if end precedes start.
func DurationMinutes(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Window returns the availability query window for a candidate interval:
// midnight of the start's day through the midnight after the end's day.
// A candidate spanning midnight is therefore checked against both
// adjacent days; the detector filters precisely with Overlaps afterwards.
func Window(start, end time.Time) (time.Time, time.Time) {
	return DayStart(start), DayStart(end).Add(24 * time.Hour)
}
