package model

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// DecodePayload decodes a request body into a JSON object. Numbers are kept
// as json.Number so no precision is lost. Empty, malformed or non-object
// bodies yield an empty object.
func DecodePayload(body []byte) map[string]any {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// Parse returns a *Batch when the payload declares eventType "batch" and a
// *Single otherwise.
func Parse(raw map[string]any) Event {
	if raw == nil {
		raw = map[string]any{}
	}
	if stringField(raw, "eventType", Unknown) == TypeBatch {
		return ParseBatch(raw)
	}
	return ParseSingle(raw)
}

// ParseSingle reads an individually stored event.
func ParseSingle(raw map[string]any) *Single {
	s := &Single{
		Type:      stringField(raw, "eventType", Unknown),
		SessionID: stringField(raw, "sessionId", Unknown),
		VisitorID: stringField(raw, "visitorId", Unknown),
		SiteID:    stringField(raw, "siteId", Unknown),
		URL:       stringField(raw, "url", ""),
		Path:      stringField(raw, "path", ""),
		raw:       raw,
	}
	if ts, ok := raw["timestamp"].(string); ok {
		s.Timestamp = &ts
	}

	attribution := objectField(raw, "attribution")
	s.Attribution = Attribution{
		FirstTouch:   parseTouch(objectField(attribution, "firstTouch")),
		CurrentTouch: parseTouch(objectField(attribution, "currentTouch")),
	}

	if browser := objectField(raw, "browser"); browser != nil {
		if _, present := browser["userAgent"]; present {
			ua := stringField(browser, "userAgent", "")
			s.Browser.UserAgent = &ua
		}
	}

	s.Scroll.MaxScrollPercentage = numberField(objectField(raw, "scroll"), "maxScrollPercentage")

	page := objectField(raw, "page")
	s.Page = Page{
		Title:    stringField(page, "title", ""),
		Referrer: stringField(page, "referrer", ""),
	}

	s.Data = parseEventData(objectField(raw, "eventData"))
	return s
}

// ParseBatch reads a batch envelope.
func ParseBatch(raw map[string]any) *Batch {
	b := &Batch{
		SessionID: stringField(raw, "sessionId", Unknown),
		VisitorID: stringField(raw, "visitorId", Unknown),
		SiteID:    stringField(raw, "siteId", Unknown),
		raw:       raw,
	}

	if list, ok := raw["events"].([]any); ok {
		b.Events = make([]Interaction, 0, len(list))
		for _, item := range list {
			obj, _ := item.(map[string]any)
			b.Events = append(b.Events, Interaction{
				Type: stringField(obj, "eventType", Unknown),
				Data: parseEventData(objectField(obj, "eventData")),
			})
		}
	}

	meta := objectField(raw, "batchMetadata")
	b.Metadata = BatchMetadata{
		ActivityDuration: numberField(meta, "activityDuration"),
		SentOnExit:       boolField(meta, "sentOnExit"),
		BatchStartTime:   stringField(meta, "batchStartTime", ""),
		BatchEndTime:     stringField(meta, "batchEndTime", ""),
	}
	return b
}

func parseTouch(m map[string]any) Touch {
	t := Touch{
		Source:   stringField(m, "source", ""),
		Medium:   stringField(m, "medium", ""),
		Category: stringField(m, "category", ""),
	}
	if utm := objectField(m, "utmParams"); len(utm) > 0 {
		t.UTM = &UTMParams{
			Source:   stringField(utm, "utm_source", ""),
			Medium:   stringField(utm, "utm_medium", ""),
			Campaign: stringField(utm, "utm_campaign", ""),
		}
	}
	return t
}

func parseEventData(m map[string]any) EventData {
	return EventData{
		TimeSpent:        numberField(m, "timeSpent"),
		ScrollPercentage: numberField(m, "scrollPercentage"),
		Milestone:        numberField(m, "milestone"),
	}
}

// stringField returns m[key] as a string. Absent or null values yield def;
// numbers and booleans are rendered in their JSON form.
func stringField(m map[string]any, key, def string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return def
	}
}

// objectField returns m[key] when it is a JSON object, nil otherwise.
func objectField(m map[string]any, key string) map[string]any {
	obj, _ := m[key].(map[string]any)
	return obj
}

// numberField returns m[key] as an exact decimal; non-numeric values are zero.
func numberField(m map[string]any, key string) decimal.Decimal {
	d, _ := Number(m[key])
	return d
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Number converts a decoded JSON number (or Go numeric) to a decimal.
func Number(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case int32:
		return decimal.NewFromInt32(n), true
	default:
		return decimal.Zero, false
	}
}
