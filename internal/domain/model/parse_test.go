package model_test

import (
	"testing"

	"github.com/okian/sitelog/internal/domain/model"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDecodePayload(t *testing.T) {
	Convey("Given request bodies of varying quality", t, func() {
		Convey("When the body is a JSON object", func() {
			m := model.DecodePayload([]byte(`{"eventType":"pageview","scroll":{"maxScrollPercentage":42.5}}`))
			So(m["eventType"], ShouldEqual, "pageview")
		})

		Convey("When the body is malformed", func() {
			So(model.DecodePayload([]byte(`{"eventType":`)), ShouldBeEmpty)
		})

		Convey("When the body is empty", func() {
			So(model.DecodePayload(nil), ShouldBeEmpty)
		})

		Convey("When the body is valid JSON but not an object", func() {
			So(model.DecodePayload([]byte(`[1,2,3]`)), ShouldBeEmpty)
			So(model.DecodePayload([]byte(`null`)), ShouldBeEmpty)
		})
	})
}

func TestParseSingle(t *testing.T) {
	Convey("Given a full pageview payload", t, func() {
		raw := model.DecodePayload([]byte(`{
			"eventType": "pageview",
			"sessionId": "s1",
			"visitorId": "v1",
			"siteId": "site.com",
			"url": "https://site.com/pricing",
			"path": "/pricing",
			"timestamp": "2024-01-01T00:00:00Z",
			"attribution": {
				"firstTouch": {"utmParams": {"utm_source": "news", "utm_medium": "email"}, "source": "newsletter"},
				"currentTouch": {"medium": "organic", "category": "search"}
			},
			"browser": {"userAgent": "Mozilla/5.0 (iPhone)"},
			"scroll": {"maxScrollPercentage": 87.5},
			"page": {"title": "Pricing", "referrer": "https://google.com"},
			"eventData": {"timeSpent": 12000}
		}`))

		ev := model.Parse(raw)

		Convey("Then it parses into a Single with every field resolved", func() {
			s, ok := ev.(*model.Single)
			So(ok, ShouldBeTrue)
			So(s.EventType(), ShouldEqual, model.TypePageview)
			So(s.SessionID, ShouldEqual, "s1")
			So(s.VisitorID, ShouldEqual, "v1")
			So(s.SiteID, ShouldEqual, "site.com")
			So(s.Path, ShouldEqual, "/pricing")
			So(*s.Timestamp, ShouldEqual, "2024-01-01T00:00:00Z")
			So(s.Attribution.FirstTouch.UTM, ShouldNotBeNil)
			So(s.Attribution.FirstTouch.UTM.Source, ShouldEqual, "news")
			So(s.Attribution.FirstTouch.UTM.Campaign, ShouldEqual, "")
			So(s.Attribution.CurrentTouch.UTM, ShouldBeNil)
			So(s.Attribution.CurrentTouch.Medium, ShouldEqual, "organic")
			So(*s.Browser.UserAgent, ShouldEqual, "Mozilla/5.0 (iPhone)")
			So(s.Scroll.MaxScrollPercentage.Equal(decimal.RequireFromString("87.5")), ShouldBeTrue)
			So(s.Page.Title, ShouldEqual, "Pricing")
			So(s.Data.TimeSpent.IntPart(), ShouldEqual, 12000)
			So(s.Payload(), ShouldResemble, raw)
		})
	})

	Convey("Given an empty payload", t, func() {
		s := model.ParseSingle(map[string]any{})

		Convey("Then identifiers default to unknown and the rest to empty", func() {
			So(s.Type, ShouldEqual, model.Unknown)
			So(s.SessionID, ShouldEqual, model.Unknown)
			So(s.VisitorID, ShouldEqual, model.Unknown)
			So(s.SiteID, ShouldEqual, model.Unknown)
			So(s.URL, ShouldEqual, "")
			So(s.Timestamp, ShouldBeNil)
			So(s.Browser.UserAgent, ShouldBeNil)
			So(s.Scroll.MaxScrollPercentage.IsZero(), ShouldBeTrue)
		})
	})

	Convey("Given mistyped fields", t, func() {
		raw := model.DecodePayload([]byte(`{
			"sessionId": 42,
			"timestamp": 1704067200000,
			"attribution": "direct",
			"attribution2": null,
			"eventData": null,
			"scroll": {"maxScrollPercentage": "lots"},
			"attributionX": {"firstTouch": {"utmParams": {}}}
		}`))
		s := model.ParseSingle(raw)

		Convey("Then parsing degrades to defaults instead of failing", func() {
			So(s.SessionID, ShouldEqual, "42")
			So(s.Timestamp, ShouldBeNil)
			So(s.Attribution.FirstTouch.UTM, ShouldBeNil)
			So(s.Data.TimeSpent.IsZero(), ShouldBeTrue)
			So(s.Scroll.MaxScrollPercentage.IsZero(), ShouldBeTrue)
		})
	})

	Convey("Given an empty utmParams object on first touch", t, func() {
		raw := model.DecodePayload([]byte(`{"attribution": {"firstTouch": {"utmParams": {}}}}`))
		s := model.ParseSingle(raw)

		Convey("Then first touch reports no UTM parameters", func() {
			So(s.Attribution.FirstTouch.UTM, ShouldBeNil)
		})
	})
}

func TestParseBatch(t *testing.T) {
	Convey("Given a batch envelope", t, func() {
		raw := model.DecodePayload([]byte(`{
			"eventType": "batch",
			"sessionId": "s1",
			"siteId": "site.com",
			"events": [
				{"eventType": "click"},
				{"eventType": "scroll", "eventData": {"scrollPercentage": 40}},
				{"eventType": "scroll_depth", "eventData": {"milestone": 25}},
				"garbage",
				{}
			],
			"batchMetadata": {"activityDuration": 5000, "sentOnExit": true, "batchStartTime": "t0", "batchEndTime": "t1"}
		}`))

		ev := model.Parse(raw)

		Convey("Then it parses into a Batch", func() {
			b, ok := ev.(*model.Batch)
			So(ok, ShouldBeTrue)
			So(b.EventType(), ShouldEqual, model.TypeBatch)
			So(b.VisitorID, ShouldEqual, model.Unknown)
			So(len(b.Events), ShouldEqual, 5)
			So(b.Events[0].Type, ShouldEqual, model.TypeClick)
			So(b.Events[1].Data.ScrollPercentage.IntPart(), ShouldEqual, 40)
			So(b.Events[2].Data.Milestone.IntPart(), ShouldEqual, 25)
			So(b.Events[3].Type, ShouldEqual, model.Unknown)
			So(b.Events[4].Type, ShouldEqual, model.Unknown)
			So(b.Metadata.ActivityDuration.IntPart(), ShouldEqual, 5000)
			So(b.Metadata.SentOnExit, ShouldBeTrue)
			So(b.Metadata.BatchStartTime, ShouldEqual, "t0")
		})
	})

	Convey("Given a batch without events or metadata", t, func() {
		b := model.ParseBatch(map[string]any{"eventType": "batch"})

		So(b.Events, ShouldBeEmpty)
		So(b.Metadata.ActivityDuration.IsZero(), ShouldBeTrue)
		So(b.Metadata.SentOnExit, ShouldBeFalse)
	})
}

func TestIndividuallyStored(t *testing.T) {
	Convey("Given event types", t, func() {
		So(model.IndividuallyStored(model.TypePageview), ShouldBeTrue)
		So(model.IndividuallyStored(model.TypePageExit), ShouldBeTrue)
		So(model.IndividuallyStored(model.TypeFormSubmit), ShouldBeTrue)
		So(model.IndividuallyStored(model.TypeClick), ShouldBeFalse)
		So(model.IndividuallyStored(model.Unknown), ShouldBeFalse)
	})
}
