// Package model turns untrusted client telemetry into typed event variants.
//
// Clients send loosely shaped JSON. Parse never fails: every missing or
// mistyped field resolves to a documented default so downstream code can
// rely on plain Go values instead of map lookups.
package model

import (
	"github.com/shopspring/decimal"
)

// Event types understood by the collector.
const (
	TypePageview    = "pageview"
	TypePageExit    = "page_exit"
	TypeFormSubmit  = "form_submit"
	TypeClick       = "click"
	TypeScroll      = "scroll"
	TypeScrollDepth = "scroll_depth"
	TypeBatch       = "batch"
)

// Unknown is the default for absent identifiers and event types.
const Unknown = "unknown"

// Event is a parsed client payload: either *Single or *Batch.
type Event interface {
	// EventType is the declared type, "unknown" when absent.
	EventType() string
	// Payload is the decoded client payload, retained verbatim.
	Payload() map[string]any

	isEvent()
}

// Single is an individually stored event (pageview, page_exit, form_submit,
// or anything that is not a batch envelope).
type Single struct {
	Type      string
	SessionID string
	VisitorID string
	SiteID    string
	URL       string
	Path      string

	// Timestamp is the client supplied time; nil when absent or not a string.
	Timestamp *string

	Attribution Attribution
	Browser     Browser
	Scroll      Scroll
	Page        Page
	Data        EventData

	raw map[string]any
}

// Attribution holds the first-touch and current-touch snapshots.
type Attribution struct {
	FirstTouch   Touch
	CurrentTouch Touch
}

// Touch is one attribution snapshot.
type Touch struct {
	// UTM is nil when the snapshot carries no (or an empty) utmParams object.
	UTM      *UTMParams
	Source   string
	Medium   string
	Category string
}

// UTMParams are campaign attribution parameters.
type UTMParams struct {
	Source   string
	Medium   string
	Campaign string
}

// Browser describes the client environment.
type Browser struct {
	// UserAgent is nil when the payload did not report one.
	UserAgent *string
}

// Scroll carries page scroll statistics.
type Scroll struct {
	MaxScrollPercentage decimal.Decimal
}

// Page carries document metadata.
type Page struct {
	Title    string
	Referrer string
}

// EventData is the type-specific payload. Only the fields the collector
// derives from are modelled; everything else stays in the raw payload.
type EventData struct {
	TimeSpent        decimal.Decimal
	ScrollPercentage decimal.Decimal
	Milestone        decimal.Decimal
}

// Batch is a client-side buffer of interaction events flushed together.
type Batch struct {
	SessionID string
	VisitorID string
	SiteID    string
	Events    []Interaction
	Metadata  BatchMetadata

	raw map[string]any
}

// Interaction is one buffered event inside a batch.
type Interaction struct {
	Type string
	Data EventData
}

// BatchMetadata describes the buffering window.
type BatchMetadata struct {
	// ActivityDuration is in milliseconds.
	ActivityDuration decimal.Decimal
	SentOnExit       bool
	BatchStartTime   string
	BatchEndTime     string
}

func (s *Single) EventType() string      { return s.Type }
func (s *Single) Payload() map[string]any { return s.raw }
func (*Single) isEvent()                  {}

func (b *Batch) EventType() string      { return TypeBatch }
func (b *Batch) Payload() map[string]any { return b.raw }
func (*Batch) isEvent()                  {}

// IndividuallyStored reports whether t is expected outside a batch.
func IndividuallyStored(t string) bool {
	switch t {
	case TypePageview, TypePageExit, TypeFormSubmit:
		return true
	}
	return false
}
