package domain

import "time"

// EventType identifies an event on the in-process bus or the live feed.
type EventType string

const (
	// EventTicketCreated triggers a triage run. Emitted by the ticket
	// creation handler, consumed by the triage subscriber.
	EventTicketCreated EventType = "ticket/created"

	// Triage lifecycle events, broadcast to the live feed.
	EventTriageRunStarted   EventType = "triage/run-started"
	EventTriageStepDone     EventType = "triage/step-completed"
	EventTriageStepDegraded EventType = "triage/step-degraded"
	EventTriageStepFailed   EventType = "triage/step-failed"
	EventTriageRunFinished  EventType = "triage/run-finished"
)

// Event is a domain event carried by the bus and the broadcaster.
type Event struct {
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticketId"`
	Attempt   int       `json:"attempt,omitempty"`
	Step      StepName  `json:"step,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
