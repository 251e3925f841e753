// Package collector turns client tracking payloads into canonical records
// and writes them to the keyed store.
package collector

import (
	"context"
	"sort"
	"time"

	"github.com/okian/sitelog/internal/domain/model"
	"github.com/okian/sitelog/internal/domain/record"
	"github.com/okian/sitelog/pkg/logger"
	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1000)
	one      = decimal.NewFromInt(1)
)

// Request is the transport metadata that accompanies one payload.
type Request struct {
	ClientIP  string
	UserAgent string
	Now       time.Time
	TraceID   string
}

// Normalizer builds canonical records. It is stateless apart from its
// configuration and safe for concurrent use.
type Normalizer struct {
	environment string
	ttlDays     int
	newID       func() string
	logger      logger.Logger
}

// NewNormalizer returns a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	o := apply(opts)
	return newNormalizer(o)
}

func newNormalizer(o options) *Normalizer {
	return &Normalizer{
		environment: o.environment,
		ttlDays:     o.ttlDays,
		newID:       o.newID,
		logger:      o.logger.Named("normalizer"),
	}
}

// Normalize dispatches on the event variant.
func (n *Normalizer) Normalize(ctx context.Context, ev model.Event, req Request) record.Item {
	switch e := ev.(type) {
	case *model.Batch:
		return n.Batch(ctx, e, req)
	case *model.Single:
		return n.Single(ctx, e, req)
	default:
		return n.Single(ctx, model.ParseSingle(ev.Payload()), req)
	}
}

// Single builds the record of an individually stored event.
func (n *Normalizer) Single(ctx context.Context, ev *model.Single, req Request) record.Item {
	if !model.IndividuallyStored(ev.Type) {
		n.logger.Warn(ctx, "event type is expected inside a batch, storing individually",
			logger.String("event_type", ev.Type),
			logger.String("session_id", ev.SessionID))
	}

	utm := record.ResolveUTM(ev.Attribution)
	traffic := record.ResolveTraffic(ev.Attribution)

	deviceUA := req.UserAgent
	if ev.Browser.UserAgent != nil {
		deviceUA = *ev.Browser.UserAgent
	}

	timeSpent := decimal.Zero
	if ev.Type == model.TypePageExit {
		timeSpent = ev.Data.TimeSpent
	}

	item := record.Item{
		record.AttrDomainSession: record.DomainSession(ev.SiteID, ev.SessionID),
		record.AttrTimestamp:     record.EventTimestamp(ev.Timestamp, req.Now),

		record.AttrEventID:    n.newID(),
		record.AttrSessionID:  ev.SessionID,
		record.AttrVisitorID:  ev.VisitorID,
		record.AttrEventType:  ev.Type,
		record.AttrSiteID:     ev.SiteID,
		record.AttrURL:        ev.URL,
		record.AttrPath:       ev.Path,
		record.AttrPageTitle:  ev.Page.Title,
		record.AttrReferrer:   ev.Page.Referrer,
		record.AttrIP:         req.ClientIP,
		record.AttrUserAgent:  req.UserAgent,
		record.AttrDeviceType: record.DeviceType(deviceUA),

		record.AttrUTMSource:       utm.Source,
		record.AttrUTMMedium:       utm.Medium,
		record.AttrUTMCampaign:     utm.Campaign,
		record.AttrTrafficSource:   traffic.Source,
		record.AttrTrafficMedium:   traffic.Medium,
		record.AttrTrafficCategory: traffic.Category,

		record.AttrMaxScrollPercentage: ev.Scroll.MaxScrollPercentage,
		record.AttrTimeSpent:           timeSpent,

		record.AttrData: ev.Payload(),
	}
	n.stamp(item, req)

	return record.OmitSingle(record.Decimalize(item).(record.Item))
}

// Batch builds the single record that represents a whole batch envelope.
func (n *Normalizer) Batch(_ context.Context, b *model.Batch, req Request) record.Item {
	var (
		eventTypes = map[string]any{}
		counts     = map[string]int64{}
		clicks     int64
		scrolls    int64
		maxDepth   = decimal.Zero
		milestones []decimal.Decimal
	)
	for _, e := range b.Events {
		counts[e.Type]++
		switch e.Type {
		case model.TypeClick:
			clicks++
		case model.TypeScroll:
			scrolls++
			if e.Data.ScrollPercentage.GreaterThan(maxDepth) {
				maxDepth = e.Data.ScrollPercentage
			}
		case model.TypeScrollDepth:
			milestones = appendUnique(milestones, e.Data.Milestone)
		}
	}
	for t, c := range counts {
		eventTypes[t] = decimal.NewFromInt(c)
	}
	sort.Slice(milestones, func(i, j int) bool { return milestones[i].LessThan(milestones[j]) })

	id := n.newID()
	item := record.Item{
		record.AttrDomainSession: record.DomainSession(b.SiteID, b.SessionID),
		record.AttrTimestamp:     req.Now.UnixMilli(),

		record.AttrEventID:   id,
		record.AttrEventType: model.TypeBatch,
		record.AttrSessionID: b.SessionID,
		record.AttrVisitorID: b.VisitorID,
		record.AttrSiteID:    b.SiteID,
		record.AttrBatchID:   id,

		record.AttrEventCount:       len(b.Events),
		record.AttrActivityDuration: b.Metadata.ActivityDuration,
		record.AttrSentOnExit:       b.Metadata.SentOnExit,
		record.AttrBatchStartTime:   b.Metadata.BatchStartTime,
		record.AttrBatchEndTime:     b.Metadata.BatchEndTime,

		record.AttrEventTypes:       eventTypes,
		record.AttrClickCount:       clicks,
		record.AttrScrollEvents:     scrolls,
		record.AttrScrollMilestones: milestones,
		record.AttrMaxScrollDepth:   maxDepth,

		record.AttrEngagementIntensity: EngagementIntensity(len(b.Events), b.Metadata.ActivityDuration),

		record.AttrIP:        req.ClientIP,
		record.AttrUserAgent: req.UserAgent,

		record.AttrData: b.Payload(),
	}
	n.stamp(item, req)

	return record.OmitBatch(record.Decimalize(item).(record.Item))
}

// EngagementIntensity is events per second of activity, with the
// denominator floored at one second, rounded half-to-even to two places.
// A non-positive duration yields zero.
func EngagementIntensity(events int, activityMs decimal.Decimal) decimal.Decimal {
	if !activityMs.IsPositive() {
		return decimal.Zero
	}
	seconds := decimal.Max(activityMs.Div(thousand), one)
	return decimal.NewFromInt(int64(events)).Div(seconds).RoundBank(2)
}

func (n *Normalizer) stamp(item record.Item, req Request) {
	item[record.AttrProcessedAt] = record.ProcessedAt(req.Now)
	item[record.AttrLambdaRequestID] = req.TraceID
	item[record.AttrEnvironment] = n.environment
	item[record.AttrTTL] = record.TTL(req.Now, n.ttlDays)
}

func appendUnique(list []decimal.Decimal, d decimal.Decimal) []decimal.Decimal {
	for _, e := range list {
		if e.Equal(d) {
			return list
		}
	}
	return append(list, d)
}
