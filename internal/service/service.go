package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/field-ticket-service/internal/domain"
	"github.com/spec-kit/field-ticket-service/internal/events"
	"github.com/spec-kit/field-ticket-service/internal/observability"
	"github.com/spec-kit/field-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/field-ticket-service/pkg/util/errorutil"
)

// Deps carries what every service needs.
type Deps struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Describe resolves the users ticket references. A reference to a deleted
// user resolves to nil.
func (d Deps) Describe(ctx context.Context, ticket *domain.Ticket) (*TicketDetails, error) {
	users := d.Store.Repositories().Users
	details := &TicketDetails{Ticket: *ticket}
	var err error
	if details.AssignedTo, err = lookupUser(ctx, users, ticket.AssignedTo); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if details.CreatedBy, err = lookupUser(ctx, users, ticket.CreatedBy); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return details, nil
}

// publish fans events out after a commit. Failures are logged, never returned:
// the write they describe has already happened.
func (d Deps) publish(ctx context.Context, evs ...events.Event) {
	if d.Dispatcher == nil {
		return
	}
	for _, ev := range evs {
		if err := d.Dispatcher.Publish(ctx, ev); err != nil {
			d.Logger.Warn("event handlers failed",
				zap.String("event_type", string(ev.Type)),
				zap.String("ticket_id", ev.TicketID),
				zap.Error(err))
		}
	}
}

// Documents are the three optional uploads of the workflow forms.
type Documents struct {
	CTBadPart  *multipart.FileHeader
	CTGoodPart *multipart.FileHeader
	BAPFile    *multipart.FileHeader
}

const maxStringLength = 255

// exceeds reports whether s has more than limit characters. Zero means no
// limit.
func exceeds(s string, limit int) bool {
	return limit > 0 && utf8.RuneCountInString(s) > limit
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime accepts RFC 3339 and the common date and datetime-local forms,
// the latter interpreted in UTC.
func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewInternalError(err)
}

func strPtr(s string) *string {
	return &s
}
