package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/field-ticket-service/internal/domain"
	"github.com/spec-kit/field-ticket-service/internal/events"
	"github.com/spec-kit/field-ticket-service/internal/repository"
	"github.com/spec-kit/field-ticket-service/internal/storage"
	"github.com/spec-kit/field-ticket-service/internal/upload"
	"github.com/spec-kit/field-ticket-service/internal/workflow"
	apperrors "github.com/spec-kit/field-ticket-service/pkg/util/errorutil"
)

// Default copy for activities recorded by the dedicated workflow operations.
const (
	EndWorkingTitle       = "End Working"
	EndWorkingDescription = "Work completed with documents uploaded"
	CompletedTitle        = "Work Completed"
	CompletedDescription  = "Ticket work has been completed successfully."
	RevisitTitle          = "Revisit Required"
)

// WorkflowOptions tunes the workflow rules.
type WorkflowOptions struct {
	// EnforceStageOrder rejects stage activities that are not the current stage.
	EnforceStageOrder bool
	MaxFileSize       int64
}

// ActivityInput is a generic activity submitted against a ticket.
type ActivityInput struct {
	Type         string
	Title        string
	Description  string
	ActivityTime string
}

// EndWorkingInput carries the end-of-work evidence. All three files are required.
type EndWorkingInput struct {
	Files Documents
	Notes string
}

// CompleteInput carries optional replacement documents and notes.
type CompleteInput struct {
	Files           Documents
	CompletionNotes string
}

// Timeline is a ticket with its activity log and derived workflow progress.
type Timeline struct {
	Ticket     domain.Ticket
	Activities []domain.Activity
	Progress   workflow.Progress
	// Users indexes every user the ticket and its activities may reference.
	Users map[string]domain.User
}

type fileRules struct {
	ctBadPart  upload.Rule
	ctGoodPart upload.Rule
	bapFile    upload.Rule
}

// WorkflowService records activities and drives the ticket status machine.
type WorkflowService struct {
	Deps
	files      storage.Storage
	opts       WorkflowOptions
	endWorking fileRules
	completion fileRules
}

// NewWorkflowService builds the service.
func NewWorkflowService(deps Deps, files storage.Storage, opts WorkflowOptions) *WorkflowService {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 10 * 1024 * 1024
	}
	return &WorkflowService{
		Deps:  deps.withDefaults(),
		files: files,
		opts:  opts,
		endWorking: fileRules{
			ctBadPart:  upload.EvidenceRule(opts.MaxFileSize),
			ctGoodPart: upload.EvidenceRule(opts.MaxFileSize),
			bapFile:    upload.BAPRule(opts.MaxFileSize),
		},
		completion: fileRules{
			ctBadPart:  upload.EvidenceRule(opts.MaxFileSize),
			ctGoodPart: upload.EvidenceRule(opts.MaxFileSize),
			bapFile:    upload.CompletionBAPRule(opts.MaxFileSize),
		},
	}
}

// Timeline derives the stage view for a ticket.
func (s *WorkflowService) Timeline(ctx context.Context, ticketID string) (*Timeline, error) {
	repos := s.Store.Repositories()
	ticket, err := repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	activities, err := repos.Activities.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	users, err := userIndex(ctx, repos.Users)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Timeline{Ticket: *ticket, Activities: activities, Progress: workflow.Derive(activities), Users: users}, nil
}

// ListActivities returns the ticket's log in order.
func (s *WorkflowService) ListActivities(ctx context.Context, ticketID string) ([]domain.Activity, error) {
	repos := s.Store.Repositories()
	if _, err := repos.Tickets.GetByID(ctx, ticketID); err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	activities, err := repos.Activities.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return activities, nil
}

// AppendActivity records a generic activity. Types coupled with a status
// change must go through EndWorking, Complete or Revisit.
func (s *WorkflowService) AppendActivity(ctx context.Context, actorID, ticketID string, in ActivityInput) (*domain.Activity, error) {
	fields := apperrors.FieldErrors{}

	activityType, err := domain.ParseActivityType(strings.TrimSpace(in.Type))
	switch {
	case strings.TrimSpace(in.Type) == "":
		fields.Add("activity_type", "the activity_type field is required")
	case err != nil:
		fields.Add("activity_type", "the selected activity_type is invalid")
	case activityType.ChangesStatus():
		fields.Add("activity_type", fmt.Sprintf("%s activities must be recorded through their dedicated action", activityType))
	}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		fields.Add("title", "the title field is required")
	case exceeds(title, maxStringLength):
		fields.Add("title", fmt.Sprintf("the title field must not be greater than %d characters", maxStringLength))
	}

	var at time.Time
	if strings.TrimSpace(in.ActivityTime) == "" {
		fields.Add("activity_time", "the activity_time field is required")
	} else if parsed, ok := parseTime(in.ActivityTime); !ok {
		fields.Add("activity_time", "the activity_time field must be a valid date")
	} else {
		at = parsed
	}

	activity := &domain.Activity{
		TicketID:     ticketID,
		Type:         activityType,
		Title:        title,
		ActivityTime: at,
		UserID:       strPtr(actorID),
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		activity.Description = &d
	}

	err = s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Tickets.GetByID(ctx, ticketID); err != nil {
			return err
		}
		if err := fields.Err(); err != nil {
			return err
		}
		if err := s.checkStage(ctx, repos, ticketID, activityType); err != nil {
			return err
		}
		return repos.Activities.Create(ctx, activity)
	})
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}

	s.Metrics.ActivityAppended(string(activity.Type))
	s.publish(ctx, activityEvent(activity, actorID, s.Now()))
	return activity, nil
}

// EndWorking stores the three evidence documents, appends an end_working
// activity referencing them and moves the ticket to In Progress.
func (s *WorkflowService) EndWorking(ctx context.Context, actorID, ticketID string, in EndWorkingInput) (*domain.Ticket, *domain.Activity, error) {
	if err := s.precheck(ctx, ticketID, domain.ActivityEndWorking); err != nil {
		return nil, nil, err
	}

	fields := apperrors.FieldErrors{}
	s.endWorking.validate(in.Files, true, fields)
	if err := fields.Err(); err != nil {
		return nil, nil, err
	}

	docs, err := s.store(ctx, in.Files)
	if err != nil {
		return nil, nil, err
	}

	activity := &domain.Activity{
		TicketID:     ticketID,
		Type:         domain.ActivityEndWorking,
		Title:        EndWorkingTitle,
		Description:  strPtr(orDefault(in.Notes, EndWorkingDescription)),
		ActivityTime: s.Now(),
		UserID:       strPtr(actorID),
		Attachments:  docs,
	}
	ticket, oldStatus, err := s.transition(ctx, ticketID, activity, func(t *domain.Ticket) {
		t.Status = domain.TicketStatusInProgress
	})
	if err != nil {
		return nil, nil, err
	}

	s.afterTransition(ctx, actorID, ticket, oldStatus, activity)
	return ticket, activity, nil
}

// Complete resolves the ticket. Supplied documents replace the ticket's
// references and are snapshotted on the completed activity.
func (s *WorkflowService) Complete(ctx context.Context, actorID, ticketID string, in CompleteInput) (*domain.Ticket, *domain.Activity, error) {
	if err := s.precheck(ctx, ticketID, ""); err != nil {
		return nil, nil, err
	}

	fields := apperrors.FieldErrors{}
	s.completion.validate(in.Files, false, fields)
	if err := fields.Err(); err != nil {
		return nil, nil, err
	}

	docs, err := s.store(ctx, in.Files)
	if err != nil {
		return nil, nil, err
	}

	notes := strings.TrimSpace(in.CompletionNotes)
	now := s.Now()
	activity := &domain.Activity{
		TicketID:     ticketID,
		Type:         domain.ActivityCompleted,
		Title:        CompletedTitle,
		Description:  strPtr(orDefault(notes, CompletedDescription)),
		ActivityTime: now,
		UserID:       strPtr(actorID),
		Attachments:  docs,
	}
	ticket, oldStatus, err := s.transition(ctx, ticketID, activity, func(t *domain.Ticket) {
		t.Documents = t.Documents.Merge(docs)
		t.Status = domain.TicketStatusResolved
		t.CompletedAt = &now
		if notes != "" {
			t.CompletionNotes = &notes
		}
	})
	if err != nil {
		return nil, nil, err
	}

	s.afterTransition(ctx, actorID, ticket, oldStatus, activity)
	return ticket, activity, nil
}

// Revisit flags the ticket for another visit and returns it to Need to Receive.
func (s *WorkflowService) Revisit(ctx context.Context, actorID, ticketID, reason string) (*domain.Ticket, *domain.Activity, error) {
	if err := s.precheck(ctx, ticketID, ""); err != nil {
		return nil, nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, nil, apperrors.NewFieldValidationError("reason", "the reason field is required")
	}

	activity := &domain.Activity{
		TicketID:     ticketID,
		Type:         domain.ActivityRevisit,
		Title:        RevisitTitle,
		Description:  &reason,
		ActivityTime: s.Now(),
		UserID:       strPtr(actorID),
	}
	ticket, oldStatus, err := s.transition(ctx, ticketID, activity, func(t *domain.Ticket) {
		t.NeedsRevisit = true
		t.Status = domain.TicketStatusNeedToReceive
	})
	if err != nil {
		return nil, nil, err
	}

	s.afterTransition(ctx, actorID, ticket, oldStatus, activity)
	return ticket, activity, nil
}

// precheck fails fast on an unknown ticket, and on a stage out of order,
// before any file is written.
func (s *WorkflowService) precheck(ctx context.Context, ticketID string, stage domain.ActivityType) error {
	repos := s.Store.Repositories()
	if _, err := repos.Tickets.GetByID(ctx, ticketID); err != nil {
		return notFoundOr(err, "ticket", ticketID)
	}
	if stage == "" {
		return nil
	}
	if err := s.checkStage(ctx, repos, ticketID, stage); err != nil {
		return notFoundOr(err, "ticket", ticketID)
	}
	return nil
}

func (s *WorkflowService) checkStage(ctx context.Context, repos repository.Repositories, ticketID string, t domain.ActivityType) error {
	if !s.opts.EnforceStageOrder {
		return nil
	}
	activities, err := repos.Activities.ListByTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := workflow.CheckAppend(activities, t); err != nil {
		var orderErr *workflow.StageOrderError
		if errors.As(err, &orderErr) {
			return apperrors.NewFieldValidationError("activity_type", err.Error())
		}
		return err
	}
	return nil
}

// transition updates the ticket and appends activity in one transaction.
func (s *WorkflowService) transition(ctx context.Context, ticketID string, activity *domain.Activity, mutate func(*domain.Ticket)) (*domain.Ticket, domain.TicketStatus, error) {
	var (
		ticket    *domain.Ticket
		oldStatus domain.TicketStatus
	)
	err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		current, err := repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			return err
		}
		oldStatus = current.Status
		mutate(current)
		if err := repos.Tickets.Update(ctx, current); err != nil {
			return err
		}
		ticket = current
		return repos.Activities.Create(ctx, activity)
	})
	if err != nil {
		if !activity.Attachments.IsEmpty() {
			s.Logger.Warn("workflow transition failed after documents were stored",
				zap.String("ticket_id", ticketID),
				zap.String("activity_type", string(activity.Type)),
				zap.Error(err))
		}
		return nil, "", notFoundOr(err, "ticket", ticketID)
	}
	return ticket, oldStatus, nil
}

func (s *WorkflowService) afterTransition(ctx context.Context, actorID string, ticket *domain.Ticket, oldStatus domain.TicketStatus, activity *domain.Activity) {
	s.Metrics.ActivityAppended(string(activity.Type))
	s.Logger.Info("workflow transition",
		zap.String("ticket_id", ticket.ID),
		zap.String("activity_type", string(activity.Type)),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(ticket.Status)),
		zap.String("actor_id", actorID))

	evs := []events.Event{activityEvent(activity, actorID, s.Now())}
	if oldStatus != ticket.Status {
		evs = append(evs, events.New(events.EventTicketStatusChanged, ticket.ID, &actorID, s.Now(), events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		}))
	}
	s.publish(ctx, evs...)
}

// store writes every supplied document and returns their references.
func (s *WorkflowService) store(ctx context.Context, files Documents) (domain.Documents, error) {
	var docs domain.Documents
	uploads := []struct {
		file *multipart.FileHeader
		dir  string
		dst  **string
	}{
		{files.CTBadPart, storage.DirCTBadParts, &docs.CTBadPart},
		{files.CTGoodPart, storage.DirCTGoodParts, &docs.CTGoodPart},
		{files.BAPFile, storage.DirBAPFiles, &docs.BAPFile},
	}
	for _, u := range uploads {
		if u.file == nil {
			continue
		}
		ref, err := s.put(ctx, u.dir, u.file)
		if err != nil {
			return domain.Documents{}, apperrors.NewInternalError(err)
		}
		*u.dst = &ref
	}
	return docs, nil
}

func (s *WorkflowService) put(ctx context.Context, dir string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	return s.files.Put(ctx, dir, storage.Object{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Body:        f,
	})
}

func (r fileRules) validate(files Documents, required bool, fields apperrors.FieldErrors) {
	checks := []struct {
		field string
		file  *multipart.FileHeader
		rule  upload.Rule
	}{
		{"ct_bad_part", files.CTBadPart, r.ctBadPart},
		{"ct_good_part", files.CTGoodPart, r.ctGoodPart},
		{"bap_file", files.BAPFile, r.bapFile},
	}
	for _, c := range checks {
		if c.file == nil {
			if required {
				fields.Add(c.field, fmt.Sprintf("the %s field is required", c.field))
			}
			continue
		}
		if _, err := c.rule.Validate(c.file); err != nil {
			fields.Add(c.field, fmt.Sprintf("the %s field %s", c.field, err.Error()))
		}
	}
}

func activityEvent(a *domain.Activity, actorID string, at time.Time) events.Event {
	return events.New(events.EventActivityAppended, a.TicketID, &actorID, at, events.ActivityAppendedPayload{
		ActivityID:   a.ID,
		ActivityType: a.Type,
		Title:        a.Title,
		ActivityTime: a.ActivityTime,
	})
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}
