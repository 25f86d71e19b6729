package dto

import (
	"time"

	"github.com/spec-kit/field-ticket-service/internal/domain"
	"github.com/spec-kit/field-ticket-service/internal/service"
	"github.com/spec-kit/field-ticket-service/pkg/util/optional"
)

// TicketRequest is the JSON create and update payload. Omitted keys are left
// untouched on update; null clears an optional field.
type TicketRequest struct {
	TicketNumber optional.Value[string] `json:"ticket_number"`
	CaseID       optional.Value[string] `json:"case_id"`
	Company      optional.Value[string] `json:"company"`
	SerialNumber optional.Value[string] `json:"serial_number"`
	Problem      optional.Value[string] `json:"problem"`
	Notes        optional.Value[string] `json:"notes"`
	Schedule     optional.Value[string] `json:"schedule"`
	Deadline     optional.Value[string] `json:"deadline"`
	Status       optional.Value[string] `json:"status"`
	AssignedTo   optional.Value[string] `json:"assigned_to"`
}

// Input converts the payload for the ticket service.
func (r TicketRequest) Input() service.TicketInput {
	return service.TicketInput{
		TicketNumber: r.TicketNumber,
		CaseID:       r.CaseID,
		Company:      r.Company,
		SerialNumber: r.SerialNumber,
		Problem:      r.Problem,
		Notes:        r.Notes,
		Schedule:     r.Schedule,
		Deadline:     r.Deadline,
		Status:       r.Status,
		AssignedTo:   r.AssignedTo,
	}
}

// DocumentResponse is a stored document and where to download it.
type DocumentResponse struct {
	Ref string `json:"ref"`
	URL string `json:"url"`
}

// DocumentsResponse holds the three document slots.
type DocumentsResponse struct {
	CTBadPart  *DocumentResponse `json:"ct_bad_part"`
	CTGoodPart *DocumentResponse `json:"ct_good_part"`
	BAPFile    *DocumentResponse `json:"bap_file"`
}

// TicketResponse is the public shape of a ticket.
type TicketResponse struct {
	ID              string              `json:"id"`
	TicketNumber    string              `json:"ticket_number"`
	CaseID          *string             `json:"case_id"`
	Company         string              `json:"company"`
	SerialNumber    *string             `json:"serial_number"`
	Problem         string              `json:"problem"`
	Notes           *string             `json:"notes"`
	Schedule        *time.Time          `json:"schedule"`
	Deadline        *time.Time          `json:"deadline"`
	Status          domain.TicketStatus `json:"status"`
	AssignedTo      *string             `json:"assigned_to"`
	Assignee        *UserResponse       `json:"assignee,omitempty"`
	CreatedBy       *string             `json:"created_by"`
	Creator         *UserResponse       `json:"creator,omitempty"`
	Documents       DocumentsResponse   `json:"documents"`
	NeedsRevisit    bool                `json:"needs_revisit"`
	CompletionNotes *string             `json:"completion_notes"`
	CompletedAt     *time.Time          `json:"completed_at"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// PageMeta describes the returned page.
type PageMeta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	LastPage int `json:"last_page"`
}

// ListFilters echoes the normalized list criteria.
type ListFilters struct {
	Search string  `json:"search"`
	Status *string `json:"status"`
	Filter string  `json:"filter"`
}

// TicketListResponse is one page of tickets.
type TicketListResponse struct {
	Data    []TicketResponse `json:"data"`
	Meta    PageMeta         `json:"meta"`
	Filters ListFilters      `json:"filters"`
}

// ActivityRequest appends a generic activity.
type ActivityRequest struct {
	ActivityType string `json:"activity_type" form:"activity_type"`
	Title        string `json:"title" form:"title"`
	Description  string `json:"description" form:"description"`
	ActivityTime string `json:"activity_time" form:"activity_time"`
}

// Input converts the payload for the workflow service.
func (r ActivityRequest) Input() service.ActivityInput {
	return service.ActivityInput{
		Type:         r.ActivityType,
		Title:        r.Title,
		Description:  r.Description,
		ActivityTime: r.ActivityTime,
	}
}

// RevisitRequest flags a ticket for another visit.
type RevisitRequest struct {
	Reason string `json:"reason" form:"reason"`
}

// ActivityResponse is one log entry.
type ActivityResponse struct {
	ID           string              `json:"id"`
	TicketID     string              `json:"ticket_id"`
	ActivityType domain.ActivityType `json:"activity_type"`
	Title        string              `json:"title"`
	Description  *string             `json:"description"`
	ActivityTime time.Time           `json:"activity_time"`
	UserID       *string             `json:"user_id"`
	User         *UserResponse       `json:"user,omitempty"`
	Attachments  DocumentsResponse   `json:"attachments"`
	CreatedAt    time.Time           `json:"created_at"`
}

// StageResponse is the derived state of one workflow stage.
type StageResponse struct {
	ActivityType  domain.ActivityType `json:"activity_type"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	RequiresInput bool                `json:"requires_input"`
	Completed     bool                `json:"completed"`
	Current       bool                `json:"current"`
	Visible       bool                `json:"visible"`
	Activity      *ActivityResponse   `json:"activity"`
}

// TimelineResponse is a ticket with its stages and full log.
type TimelineResponse struct {
	Ticket       TicketResponse       `json:"ticket"`
	Stages       []StageResponse      `json:"stages"`
	CurrentStage *domain.ActivityType `json:"current_stage"`
	NextAction   string               `json:"next_action"`
	Finished     bool                 `json:"finished"`
	Activities   []ActivityResponse   `json:"activities"`
}

// TransitionResponse is returned by the status-changing workflow actions.
type TransitionResponse struct {
	Ticket   TicketResponse   `json:"ticket"`
	Activity ActivityResponse `json:"activity"`
}
