package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/field-ticket-service/internal/config"
	"github.com/spec-kit/field-ticket-service/internal/domain"
	"github.com/spec-kit/field-ticket-service/internal/events"
	"github.com/spec-kit/field-ticket-service/internal/report"
	"github.com/spec-kit/field-ticket-service/internal/repository"
	"github.com/spec-kit/field-ticket-service/internal/search"
	apperrors "github.com/spec-kit/field-ticket-service/pkg/util/errorutil"
	"github.com/spec-kit/field-ticket-service/pkg/util/optional"
)

// TicketInput carries ticket fields as submitted. Omitted fields are left
// untouched on update; an explicit null clears an optional field.
type TicketInput struct {
	TicketNumber optional.Value[string]
	CaseID       optional.Value[string]
	Company      optional.Value[string]
	SerialNumber optional.Value[string]
	Problem      optional.Value[string]
	Notes        optional.Value[string]
	Schedule     optional.Value[string]
	Deadline     optional.Value[string]
	Status       optional.Value[string]
	AssignedTo   optional.Value[string]
}

// ListParams are the raw list query parameters.
type ListParams struct {
	Search   string
	Status   string
	Filter   string
	Page     int
	PageSize int
}

// TicketPage is one page of a ticket listing.
type TicketPage struct {
	Items    []domain.Ticket
	Users    map[string]domain.User
	Total    int
	Page     int
	PageSize int
	LastPage int
	Criteria search.Criteria
}

// TicketDetails is a ticket with its referenced users resolved.
type TicketDetails struct {
	Ticket     domain.Ticket
	AssignedTo *domain.User
	CreatedBy  *domain.User
}

// TicketService manages the ticket record lifecycle.
type TicketService struct {
	Deps
	listing config.ListingConfig
}

// NewTicketService builds the service.
func NewTicketService(deps Deps, listing config.ListingConfig) *TicketService {
	if listing.DefaultPageSize <= 0 {
		listing.DefaultPageSize = 10
	}
	if listing.MaxPageSize < listing.DefaultPageSize {
		listing.MaxPageSize = listing.DefaultPageSize
	}
	return &TicketService{Deps: deps.withDefaults(), listing: listing}
}

// Create validates and stores a new ticket on behalf of actorID.
func (s *TicketService) Create(ctx context.Context, actorID string, in TicketInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{Status: domain.TicketStatusOpen, CreatedBy: strPtr(actorID)}

	err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := s.apply(ctx, repos, ticket, in, true); err != nil {
			return err
		}
		return duplicateAsField(repos.Tickets.Create(ctx, ticket))
	})
	if err != nil {
		return nil, notFoundOr(err, "ticket", "")
	}

	s.Metrics.TicketCreated()
	s.Logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("actor_id", actorID))
	s.publish(ctx, events.New(events.EventTicketCreated, ticket.ID, &actorID, s.Now(), events.TicketCreatedPayload{
		TicketNumber: ticket.TicketNumber,
		Company:      ticket.Company,
		Status:       ticket.Status,
		AssignedTo:   ticket.AssignedTo,
	}))
	return ticket, nil
}

// Get returns a ticket with its assignee and creator.
func (s *TicketService) Get(ctx context.Context, id string) (*TicketDetails, error) {
	ticket, err := s.Store.Repositories().Tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "ticket", id)
	}
	return s.Describe(ctx, ticket)
}

// Update applies the supplied fields. A status change is recorded as a
// status_change activity in the same transaction.
func (s *TicketService) Update(ctx context.Context, actorID, id string, in TicketInput) (*domain.Ticket, error) {
	var (
		ticket    *domain.Ticket
		oldStatus domain.TicketStatus
		change    *domain.Activity
	)
	err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		current, err := repos.Tickets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		ticket = current
		oldStatus = current.Status

		if err := s.apply(ctx, repos, ticket, in, false); err != nil {
			return err
		}
		if err := duplicateAsField(repos.Tickets.Update(ctx, ticket)); err != nil {
			return err
		}
		if ticket.Status == oldStatus {
			return nil
		}
		change = &domain.Activity{
			TicketID:     ticket.ID,
			Type:         domain.ActivityStatusChange,
			Title:        "Status Changed",
			Description:  strPtr(fmt.Sprintf("%s → %s", oldStatus, ticket.Status)),
			ActivityTime: s.Now(),
			UserID:       strPtr(actorID),
		}
		return repos.Activities.Create(ctx, change)
	})
	if err != nil {
		return nil, notFoundOr(err, "ticket", id)
	}

	evs := []events.Event{events.New(events.EventTicketUpdated, ticket.ID, &actorID, s.Now(), nil)}
	if change != nil {
		s.Metrics.ActivityAppended(string(change.Type))
		evs = append(evs,
			events.New(events.EventTicketStatusChanged, ticket.ID, &actorID, s.Now(), events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			}),
			activityEvent(change, actorID, s.Now()),
		)
	}
	s.publish(ctx, evs...)
	return ticket, nil
}

// Delete removes a ticket and its activities. Stored documents are kept.
func (s *TicketService) Delete(ctx context.Context, actorID, id string) error {
	var number string
	err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		number = ticket.TicketNumber
		return repos.Tickets.Delete(ctx, id)
	})
	if err != nil {
		return notFoundOr(err, "ticket", id)
	}

	s.Logger.Info("ticket deleted", zap.String("ticket_id", id), zap.String("actor_id", actorID))
	s.publish(ctx, events.New(events.EventTicketDeleted, id, &actorID, s.Now(), events.TicketDeletedPayload{TicketNumber: number}))
	return nil
}

// List returns one page of tickets matching the params, newest first.
func (s *TicketService) List(ctx context.Context, params ListParams) (*TicketPage, error) {
	criteria, err := search.Parse(params.Search, params.Status, params.Filter)
	if err != nil {
		return nil, err
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	size := params.PageSize
	switch {
	case size <= 0:
		size = s.listing.DefaultPageSize
	case size > s.listing.MaxPageSize:
		size = s.listing.MaxPageSize
	}

	repos := s.Store.Repositories()
	items, total, err := repos.Tickets.List(ctx, criteria, repository.Page{Limit: size, Offset: (page - 1) * size})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	users, err := userIndex(ctx, repos.Users)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	lastPage := (total + size - 1) / size
	if lastPage < 1 {
		lastPage = 1
	}
	return &TicketPage{
		Items:    items,
		Users:    users,
		Total:    total,
		Page:     page,
		PageSize: size,
		LastPage: lastPage,
		Criteria: criteria,
	}, nil
}

// Export writes every ticket matching the params as an xlsx workbook and
// returns the download file name.
func (s *TicketService) Export(ctx context.Context, w io.Writer, params ListParams) (string, error) {
	criteria, err := search.Parse(params.Search, params.Status, params.Filter)
	if err != nil {
		return "", err
	}

	repos := s.Store.Repositories()
	tickets, _, err := repos.Tickets.List(ctx, criteria, repository.Page{})
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	users, err := userIndex(ctx, repos.Users)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}

	rows := make([]report.Row, 0, len(tickets))
	for _, t := range tickets {
		row := report.Row{Ticket: t}
		if t.AssignedTo != nil {
			row.AssigneeName = users[*t.AssignedTo].Name
		}
		rows = append(rows, row)
	}
	if err := report.Write(w, rows); err != nil {
		return "", apperrors.NewInternalError(err)
	}

	s.Logger.Info("tickets exported", zap.Int("rows", len(rows)))
	return report.FileName(s.Now()), nil
}

// apply validates in and copies it onto ticket. Required fields must be
// present when creating and may not be cleared when updating.
func (s *TicketService) apply(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, in TicketInput, creating bool) error {
	fields := apperrors.FieldErrors{}

	required := func(field string, v optional.Value[string], dst *string, limit int) {
		if !v.Set && !creating {
			return
		}
		val := strings.TrimSpace(v.Or(""))
		switch {
		case val == "":
			fields.Add(field, fmt.Sprintf("the %s field is required", field))
		case exceeds(val, limit):
			fields.Add(field, fmt.Sprintf("the %s field must not be greater than %d characters", field, limit))
		default:
			*dst = val
		}
	}
	nullable := func(field string, v optional.Value[string], dst **string, limit int) {
		if val := strings.TrimSpace(v.Or("")); val == "" {
			if v.Set {
				v = optional.Null[string]()
			}
		} else if exceeds(val, limit) {
			fields.Add(field, fmt.Sprintf("the %s field must not be greater than %d characters", field, limit))
			return
		} else {
			v = optional.Of(val)
		}
		v.Apply(dst)
	}
	date := func(field string, v optional.Value[string], dst **time.Time) {
		if !v.Set {
			return
		}
		parsed := optional.Null[time.Time]()
		if raw := strings.TrimSpace(v.Or("")); raw != "" {
			t, ok := parseTime(raw)
			if !ok {
				fields.Add(field, fmt.Sprintf("the %s field must be a valid date", field))
				return
			}
			parsed = optional.Of(t)
		}
		parsed.Apply(dst)
	}

	required("ticket_number", in.TicketNumber, &ticket.TicketNumber, maxStringLength)
	required("company", in.Company, &ticket.Company, maxStringLength)
	required("problem", in.Problem, &ticket.Problem, 0)
	nullable("case_id", in.CaseID, &ticket.CaseID, maxStringLength)
	nullable("serial_number", in.SerialNumber, &ticket.SerialNumber, maxStringLength)
	nullable("notes", in.Notes, &ticket.Notes, 0)
	date("schedule", in.Schedule, &ticket.Schedule)
	date("deadline", in.Deadline, &ticket.Deadline)

	if in.Status.Set {
		status, err := domain.ParseTicketStatus(strings.TrimSpace(in.Status.Or("")))
		if err != nil {
			fields.Add("status", "the selected status is invalid")
		} else {
			ticket.Status = status
		}
	}

	if in.AssignedTo.Set {
		assignee := strings.TrimSpace(in.AssignedTo.Or(""))
		if in.AssignedTo.IsNull() || assignee == "" {
			ticket.AssignedTo = nil
		} else if _, err := repos.Users.GetByID(ctx, assignee); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			fields.Add("assigned_to", "the selected assigned_to is invalid")
		} else {
			ticket.AssignedTo = &assignee
		}
	}

	if _, failed := fields["ticket_number"]; !failed && ticket.TicketNumber != "" {
		existing, err := repos.Tickets.GetByTicketNumber(ctx, ticket.TicketNumber)
		switch {
		case err == nil && existing.ID != ticket.ID:
			fields.Add("ticket_number", "the ticket number has already been taken")
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return err
		}
	}

	return fields.Err()
}

// duplicateAsField turns a unique-constraint race into the same validation
// error the pre-check reports.
func duplicateAsField(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewFieldValidationError("ticket_number", "the ticket number has already been taken")
	}
	return err
}

func lookupUser(ctx context.Context, users repository.UserRepository, id *string) (*domain.User, error) {
	if id == nil {
		return nil, nil
	}
	user, err := users.GetByID(ctx, *id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

func userIndex(ctx context.Context, users repository.UserRepository) (map[string]domain.User, error) {
	list, err := users.List(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]domain.User, len(list))
	for _, u := range list {
		index[u.ID] = u
	}
	return index, nil
}
