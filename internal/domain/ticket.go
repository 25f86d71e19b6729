package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen          TicketStatus = "Open"
	TicketStatusNeedToReceive TicketStatus = "Need to Receive"
	TicketStatusInProgress    TicketStatus = "In Progress"
	TicketStatusResolved      TicketStatus = "Resolved"
	TicketStatusClosed        TicketStatus = "Closed"
)

// TicketStatuses lists every status in workflow order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusNeedToReceive,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// ParseTicketStatus rejects anything outside the enumeration.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	status := TicketStatus(raw)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown ticket status %q", raw)
	}
	return status, nil
}

// IsValid reports whether s is one of the enumerated statuses.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusNeedToReceive, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// IsOpen is true for every status except Resolved and Closed.
func (s TicketStatus) IsOpen() bool {
	switch s {
	case TicketStatusResolved, TicketStatusClosed:
		return false
	case TicketStatusOpen, TicketStatusNeedToReceive, TicketStatusInProgress:
		return true
	}
	return false
}

// Documents holds the three completion document references.
type Documents struct {
	CTBadPart  *string `json:"ct_bad_part,omitempty"`
	CTGoodPart *string `json:"ct_good_part,omitempty"`
	BAPFile    *string `json:"bap_file,omitempty"`
}

// IsEmpty reports whether no document is referenced.
func (d Documents) IsEmpty() bool {
	return d.CTBadPart == nil && d.CTGoodPart == nil && d.BAPFile == nil
}

// Merge returns d with every reference set in other replacing its own.
func (d Documents) Merge(other Documents) Documents {
	if other.CTBadPart != nil {
		d.CTBadPart = other.CTBadPart
	}
	if other.CTGoodPart != nil {
		d.CTGoodPart = other.CTGoodPart
	}
	if other.BAPFile != nil {
		d.BAPFile = other.BAPFile
	}
	return d
}

// Ticket is the aggregate for field support requests.
type Ticket struct {
	ID              string
	TicketNumber    string
	CaseID          *string
	Company         string
	SerialNumber    *string
	Problem         string
	Notes           *string
	Schedule        *time.Time
	Deadline        *time.Time
	Status          TicketStatus
	AssignedTo      *string
	CreatedBy       *string
	Documents       Documents
	NeedsRevisit    bool
	CompletionNotes *string
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsClosedComplete is the authoritative "fully done" condition.
func (t *Ticket) IsClosedComplete() bool {
	return t.Status == TicketStatusClosed && t.CompletedAt != nil
}
