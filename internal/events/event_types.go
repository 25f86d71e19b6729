package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/field-ticket-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventActivityAppended    EventType = "activity_appended"
)

// Event represents a domain event emitted by services after a commit.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	ActorID   *string   `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, ticketID string, actorID *string, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		ActorID:   actorID,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string              `json:"ticket_number"`
	Company      string              `json:"company"`
	Status       domain.TicketStatus `json:"status"`
	AssignedTo   *string             `json:"assigned_to,omitempty"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	TicketNumber string `json:"ticket_number"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// ActivityAppendedPayload payload.
type ActivityAppendedPayload struct {
	ActivityID   string              `json:"activity_id"`
	ActivityType domain.ActivityType `json:"activity_type"`
	Title        string              `json:"title"`
	ActivityTime time.Time           `json:"activity_time"`
}
