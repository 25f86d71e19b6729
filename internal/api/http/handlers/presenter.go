package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/field-ticket-service/internal/api/dto"
	"github.com/spec-kit/field-ticket-service/internal/domain"
	"github.com/spec-kit/field-ticket-service/internal/service"
	"github.com/spec-kit/field-ticket-service/internal/storage"
)

// Presenter maps domain values to response DTOs, resolving document
// references into download URLs.
type Presenter struct {
	files  storage.Storage
	logger *zap.Logger
}

// NewPresenter constructs a presenter.
func NewPresenter(files storage.Storage, logger *zap.Logger) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{files: files, logger: logger}
}

func (p *Presenter) user(u *domain.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (p *Presenter) document(ctx context.Context, ref *string) *dto.DocumentResponse {
	if ref == nil || p.files == nil {
		return nil
	}
	url, err := p.files.URL(ctx, *ref)
	if err != nil {
		p.logger.Warn("cannot resolve document url", zap.String("ref", *ref), zap.Error(err))
	}
	return &dto.DocumentResponse{Ref: *ref, URL: url}
}

func (p *Presenter) documents(ctx context.Context, d domain.Documents) dto.DocumentsResponse {
	return dto.DocumentsResponse{
		CTBadPart:  p.document(ctx, d.CTBadPart),
		CTGoodPart: p.document(ctx, d.CTGoodPart),
		BAPFile:    p.document(ctx, d.BAPFile),
	}
}

// Ticket renders t. assignee and creator may be nil.
func (p *Presenter) Ticket(ctx context.Context, t *domain.Ticket, assignee, creator *domain.User) dto.TicketResponse {
	return dto.TicketResponse{
		ID:              t.ID,
		TicketNumber:    t.TicketNumber,
		CaseID:          t.CaseID,
		Company:         t.Company,
		SerialNumber:    t.SerialNumber,
		Problem:         t.Problem,
		Notes:           t.Notes,
		Schedule:        t.Schedule,
		Deadline:        t.Deadline,
		Status:          t.Status,
		AssignedTo:      t.AssignedTo,
		Assignee:        p.user(assignee),
		CreatedBy:       t.CreatedBy,
		Creator:         p.user(creator),
		Documents:       p.documents(ctx, t.Documents),
		NeedsRevisit:    t.NeedsRevisit,
		CompletionNotes: t.CompletionNotes,
		CompletedAt:     t.CompletedAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// Details renders a ticket whose users are already resolved.
func (p *Presenter) Details(ctx context.Context, d *service.TicketDetails) dto.TicketResponse {
	return p.Ticket(ctx, &d.Ticket, d.AssignedTo, d.CreatedBy)
}

// Page renders a ticket listing with assignees resolved from the page's user index.
func (p *Presenter) Page(ctx context.Context, page *service.TicketPage) dto.TicketListResponse {
	items := make([]dto.TicketResponse, 0, len(page.Items))
	for i := range page.Items {
		t := &page.Items[i]
		items = append(items, p.Ticket(ctx, t, indexed(page.Users, t.AssignedTo), indexed(page.Users, t.CreatedBy)))
	}

	filters := dto.ListFilters{Search: page.Criteria.Search, Filter: string(page.Criteria.Filter)}
	if page.Criteria.Status != nil {
		status := string(*page.Criteria.Status)
		filters.Status = &status
	}
	if filters.Filter == "" {
		filters.Filter = "all"
	}

	return dto.TicketListResponse{
		Data: items,
		Meta: dto.PageMeta{
			Total:    page.Total,
			Page:     page.Page,
			PageSize: page.PageSize,
			LastPage: page.LastPage,
		},
		Filters: filters,
	}
}

func indexed(users map[string]domain.User, id *string) *domain.User {
	if id == nil {
		return nil
	}
	u, ok := users[*id]
	if !ok {
		return nil
	}
	return &u
}

// Activity renders one log entry.
func (p *Presenter) Activity(ctx context.Context, a *domain.Activity) dto.ActivityResponse {
	return p.activity(ctx, a, nil)
}

func (p *Presenter) activity(ctx context.Context, a *domain.Activity, by *domain.User) dto.ActivityResponse {
	return dto.ActivityResponse{
		ID:           a.ID,
		TicketID:     a.TicketID,
		ActivityType: a.Type,
		Title:        a.Title,
		Description:  a.Description,
		ActivityTime: a.ActivityTime,
		UserID:       a.UserID,
		User:         p.user(by),
		Attachments:  p.documents(ctx, a.Attachments),
		CreatedAt:    a.CreatedAt,
	}
}

// Activities renders a log. users may be nil.
func (p *Presenter) Activities(ctx context.Context, activities []domain.Activity, users map[string]domain.User) []dto.ActivityResponse {
	out := make([]dto.ActivityResponse, 0, len(activities))
	for i := range activities {
		a := &activities[i]
		out = append(out, p.activity(ctx, a, indexed(users, a.UserID)))
	}
	return out
}

// Timeline renders the ticket with its derived stages.
func (p *Presenter) Timeline(ctx context.Context, tl *service.Timeline) dto.TimelineResponse {
	stages := make([]dto.StageResponse, 0, len(tl.Progress.Stages))
	for _, s := range tl.Progress.Stages {
		stage := dto.StageResponse{
			ActivityType:  s.Type,
			Title:         s.Title,
			Description:   s.Description,
			RequiresInput: s.RequiresInput,
			Completed:     s.Completed,
			Current:       s.Current,
			Visible:       s.Visible,
		}
		if s.Activity != nil {
			a := p.activity(ctx, s.Activity, indexed(tl.Users, s.Activity.UserID))
			stage.Activity = &a
		}
		stages = append(stages, stage)
	}

	resp := dto.TimelineResponse{
		Ticket:     p.Ticket(ctx, &tl.Ticket, indexed(tl.Users, tl.Ticket.AssignedTo), indexed(tl.Users, tl.Ticket.CreatedBy)),
		Stages:     stages,
		NextAction: string(tl.Progress.NextAction),
		Finished:   tl.Progress.Finished(),
		Activities: p.Activities(ctx, tl.Activities, tl.Users),
	}
	if current := tl.Progress.Current(); current != nil {
		t := current.Type
		resp.CurrentStage = &t
	}
	return resp
}

// Transition renders the result of a status-changing workflow action taken
// by actor.
func (p *Presenter) Transition(ctx context.Context, d *service.TicketDetails, a *domain.Activity, actor *domain.User) dto.TransitionResponse {
	return dto.TransitionResponse{Ticket: p.Details(ctx, d), Activity: p.activity(ctx, a, actor)}
}
