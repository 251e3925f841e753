package record

import (
	"errors"
	"strings"
	"time"
)

// ProcessedAtLayout renders processing time the way it is stored in
// processed_at: UTC wall clock with microseconds and no zone suffix.
const ProcessedAtLayout = "2006-01-02T15:04:05.000000"

// DefaultTTLDays is how long the keyed store keeps a record.
const DefaultTTLDays = 180

var errTimestamp = errors.New("record: unrecognized ISO-8601 timestamp")

// isoLayouts are tried in order. Fractional seconds are accepted by
// time.Parse after the seconds field even when the layout omits them.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DomainSession builds the partition key "{siteId}#{sessionId}".
func DomainSession(siteID, sessionID string) string {
	return siteID + "#" + sessionID
}

// ParseISO parses an ISO-8601 timestamp. A trailing "Z" is UTC and
// timestamps without an offset are taken as UTC.
func ParseISO(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errTimestamp
}

// EventTimestamp derives the sort key of a single event: the client
// timestamp when it parses, otherwise the processing time.
func EventTimestamp(client *string, now time.Time) int64 {
	if client != nil {
		if t, err := ParseISO(*client); err == nil {
			return t.UnixMilli()
		}
	}
	return now.UnixMilli()
}

// TTL is the expiry in epoch seconds, days after now.
func TTL(now time.Time, days int) int64 {
	return now.Add(time.Duration(days) * 24 * time.Hour).Unix()
}

// ProcessedAt formats the processing time.
func ProcessedAt(now time.Time) string {
	return now.UTC().Format(ProcessedAtLayout)
}
