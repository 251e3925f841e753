// Package record builds the canonical, persisted form of a tracking event.
//
// An Item is a flat attribute map keyed by (domain_session, timestamp). All
// numbers inside an Item are exact decimals so that every store driver
// round-trips them without floating point drift; Plain converts them back
// for serialization.
package record

import (
	"errors"
	"fmt"

	"github.com/okian/sitelog/internal/domain/model"
)

// Attribute names shared by both record kinds.
const (
	AttrDomainSession   = "domain_session"
	AttrTimestamp       = "timestamp"
	AttrEventID         = "eventId"
	AttrEventType       = "eventType"
	AttrSessionID       = "sessionId"
	AttrVisitorID       = "visitorId"
	AttrSiteID          = "siteId"
	AttrIP              = "ip"
	AttrUserAgent       = "userAgent"
	AttrProcessedAt     = "processed_at"
	AttrLambdaRequestID = "lambda_request_id"
	AttrEnvironment     = "environment"
	AttrTTL             = "ttl"
	AttrData            = "data"
)

// Attributes specific to individually stored events.
const (
	AttrURL                 = "url"
	AttrPath                = "path"
	AttrPageTitle           = "pageTitle"
	AttrReferrer            = "referrer"
	AttrDeviceType          = "deviceType"
	AttrUTMSource           = "utmSource"
	AttrUTMMedium           = "utmMedium"
	AttrUTMCampaign         = "utmCampaign"
	AttrTrafficSource       = "trafficSource"
	AttrTrafficMedium       = "trafficMedium"
	AttrTrafficCategory     = "trafficCategory"
	AttrMaxScrollPercentage = "maxScrollPercentage"
	AttrTimeSpent           = "timeSpent"
)

// Attributes specific to batch records.
const (
	AttrBatchID             = "batchId"
	AttrEventCount          = "eventCount"
	AttrActivityDuration    = "activityDuration"
	AttrSentOnExit          = "sentOnExit"
	AttrBatchStartTime      = "batchStartTime"
	AttrBatchEndTime        = "batchEndTime"
	AttrEventTypes          = "eventTypes"
	AttrClickCount          = "clickCount"
	AttrScrollEvents        = "scrollEvents"
	AttrScrollMilestones    = "scrollMilestones"
	AttrMaxScrollDepth      = "maxScrollDepth"
	AttrEngagementIntensity = "engagementIntensity"
)

// ErrMissingKey is returned when an item lacks a usable primary key.
var ErrMissingKey = errors.New("record: missing primary key")

// Item is one canonical record.
type Item map[string]any

// Key is the composite primary key of an Item.
type Key struct {
	DomainSession string
	Timestamp     int64
}

// Key extracts the primary key.
func (it Item) Key() (Key, error) {
	ds, ok := it[AttrDomainSession].(string)
	if !ok || ds == "" {
		return Key{}, fmt.Errorf("%w: %s", ErrMissingKey, AttrDomainSession)
	}
	ts, ok := it.Timestamp()
	if !ok {
		return Key{}, fmt.Errorf("%w: %s", ErrMissingKey, AttrTimestamp)
	}
	return Key{DomainSession: ds, Timestamp: ts}, nil
}

// Timestamp returns the sort key in epoch milliseconds.
func (it Item) Timestamp() (int64, bool) {
	d, ok := model.Number(it[AttrTimestamp])
	if !ok {
		return 0, false
	}
	return d.IntPart(), true
}

// SiteID returns the site the item belongs to, "unknown" when absent.
func (it Item) SiteID() string {
	if s, ok := it[AttrSiteID].(string); ok {
		return s
	}
	return model.Unknown
}
