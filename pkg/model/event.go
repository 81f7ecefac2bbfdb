package model

import "time"

// EventKind classifies a scheduler decision recorded in the journal.
type EventKind string

const (
	EventAgentAdded   EventKind = "agent_added"
	EventAgentRemoved EventKind = "agent_removed"
	EventAccepted     EventKind = "accepted"
	EventDenied       EventKind = "denied"
	EventIdle         EventKind = "idle"
	EventPreempted    EventKind = "preempted"
	EventCompleted    EventKind = "completed"
	EventCanceled     EventKind = "canceled"
	EventReset        EventKind = "reset"
	EventQueryFailed  EventKind = "query_failed"
	EventPassFailed   EventKind = "pass_failed"
)

// Event is one scheduler decision.
type Event struct {
	ID        string    `json:"id"`
	Pass      uint64    `json:"pass"`
	Tick      uint64    `json:"tick"`
	Kind      EventKind `json:"kind"`
	Agent     string    `json:"agent,omitempty"`
	EntryID   string    `json:"entry_id,omitempty"`
	Action    string    `json:"action,omitempty"`
	Resources []string  `json:"resources,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
