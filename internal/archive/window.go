// Package archive rolls the keyed store's records for one hour into
// per-site JSONL objects in cold storage.
package archive

import "time"

// Time layouts: ISO-8601 with an explicit numeric offset, and the hour
// stamp used in object names.
const (
	isoLayout      = "2006-01-02T15:04:05-07:00"
	isoMicroLayout = "2006-01-02T15:04:05.000000-07:00"
	keyHourLayout  = "2006-01-02-15"
)

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// PreviousHour returns the last full hour before now, in UTC.
func PreviousHour(now time.Time) Window {
	end := now.UTC().Truncate(time.Hour)
	return Window{Start: end.Add(-time.Hour), End: end}
}

// HourOf returns the full hour containing t, in UTC.
func HourOf(t time.Time) Window {
	start := t.UTC().Truncate(time.Hour)
	return Window{Start: start, End: start.Add(time.Hour)}
}

// Bounds returns the inclusive millisecond bounds used for store scans.
func (w Window) Bounds() (from, to int64) {
	return w.Start.UnixMilli(), w.End.UnixMilli() - 1
}

// String renders the window as "start to end".
func (w Window) String() string {
	return w.Start.Format(isoLayout) + " to " + w.End.Format(isoLayout)
}
