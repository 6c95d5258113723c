package services

import "time"

// Clock returns the current time in the business time zone
type Clock func() time.Time

// SystemClock returns a clock pinned to loc
func SystemClock(loc *time.Location) Clock {
	return func() time.Time { return time.Now().In(loc) }
}

// startOfDay truncates t to midnight in t's location
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// sameDay compares calendar dates, reading b in a's location
func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.In(a.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// dateIn reinterprets the calendar date of t at midnight in loc.
// DATE columns come back from the driver as UTC midnight.
func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
