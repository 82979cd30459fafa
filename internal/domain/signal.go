package domain

import "time"

// Record is any desk value that can be keyed and written as a history line.
type Record interface {
	Key() string
	Fields() []string
}

// EventCategory groups desk events for persistence, the bus and dashboards.
type EventCategory string

const (
	CategoryPosition  EventCategory = "position"
	CategoryRisk      EventCategory = "risk"
	CategoryExecution EventCategory = "execution"
	CategoryStreaming EventCategory = "streaming"
	CategoryInquiry   EventCategory = "inquiry"
	CategoryTrade     EventCategory = "trade"
	CategoryBook      EventCategory = "book"
	CategoryGUI       EventCategory = "gui"
)

// Categories lists every category in a stable order.
var Categories = []EventCategory{
	CategoryPosition, CategoryRisk, CategoryExecution, CategoryStreaming,
	CategoryInquiry, CategoryTrade, CategoryBook, CategoryGUI,
}

// ParseEventCategory accepts a lower-case category name.
func ParseEventCategory(s string) (EventCategory, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// EventChannel is the Pub/Sub channel carrying one category's events.
func EventChannel(cat EventCategory) string { return "desk:" + string(cat) }

// EventStream is the stream holding the replayable tail of a category.
func EventStream(cat EventCategory) string { return "desk:stream:" + string(cat) }

// DeskEvent is the envelope published to the signal bus and dashboards.
type DeskEvent struct {
	Category  EventCategory `json:"category"`
	Key       string        `json:"key"`
	Fields    []string      `json:"fields"`
	Data      any           `json:"data,omitempty"`
	Timestamp time.Time     `json:"ts"`
}

// NewDeskEvent wraps a record.
func NewDeskEvent(cat EventCategory, r Record, at time.Time) DeskEvent {
	return DeskEvent{
		Category:  cat,
		Key:       r.Key(),
		Fields:    r.Fields(),
		Data:      r,
		Timestamp: at.UTC(),
	}
}

// DeskStatus is a summary of the desk's operational state.
type DeskStatus struct {
	Mode            string            `json:"mode"`
	UptimeSeconds   int64             `json:"uptime_seconds"`
	FeedsComplete   bool              `json:"feeds_complete"`
	Venue           string            `json:"venue"`
	Products        int               `json:"products"`
	Positions       int               `json:"positions"`
	Inquiries       int               `json:"inquiries"`
	ExecutionsFired int64             `json:"executions_fired"`
	Infrastructure  map[string]bool   `json:"infrastructure"`
	Feeds           map[string]string `json:"feeds,omitempty"`
}
