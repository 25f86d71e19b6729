package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-ticket-service/internal/auth"
	"github.com/spec-kit/field-ticket-service/internal/config"
	"github.com/spec-kit/field-ticket-service/internal/domain"
	"github.com/spec-kit/field-ticket-service/internal/events"
	"github.com/spec-kit/field-ticket-service/internal/observability"
	"github.com/spec-kit/field-ticket-service/internal/repository/memory"
	"github.com/spec-kit/field-ticket-service/internal/storage"
	"github.com/spec-kit/field-ticket-service/pkg/util/optional"
)

type fixture struct {
	store    *memory.Store
	files    *storage.Local
	tickets  *TicketService
	workflow *WorkflowService
	auth     *AuthService
	actor    *domain.User
	now      time.Time

	mu     sync.Mutex
	events []events.Event
}

func newFixture(t *testing.T, enforceStageOrder bool) *fixture {
	t.Helper()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	files, err := storage.NewLocal(t.TempDir(), "/storage")
	require.NoError(t, err)

	f := &fixture{store: memory.NewStore(), files: files, now: now}

	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.SubscribeAll(func(_ context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, e)
		return nil
	})

	deps := Deps{Store: f.store, Dispatcher: dispatcher, Metrics: observability.NewMetrics("test"), Now: clock}
	f.tickets = NewTicketService(deps, config.ListingConfig{DefaultPageSize: 10, MaxPageSize: 100})
	f.workflow = NewWorkflowService(deps, files, WorkflowOptions{EnforceStageOrder: enforceStageOrder, MaxFileSize: 10 * 1024 * 1024})
	f.auth = NewAuthService(deps, auth.NewTokenManager("secret", time.Hour), 4)

	f.actor = &domain.User{Name: "Dana Field", Email: "dana@example.com"}
	require.NoError(t, f.store.Repositories().Users.Create(context.Background(), f.actor))
	return f
}

func (f *fixture) eventTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func ticketInput(number string) TicketInput {
	return TicketInput{
		TicketNumber: optional.Of(number),
		Company:      optional.Of("Acme"),
		Problem:      optional.Of("No power"),
	}
}

func (f *fixture) createTicket(t *testing.T, number string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), f.actor.ID, ticketInput(number))
	require.NoError(t, err)
	return ticket
}

// advance records the given stage activities in order.
func (f *fixture) advance(t *testing.T, ticketID string, types ...domain.ActivityType) {
	t.Helper()
	for i, at := range types {
		_, err := f.workflow.AppendActivity(context.Background(), f.actor.ID, ticketID, ActivityInput{
			Type:         string(at),
			Title:        string(at),
			ActivityTime: f.now.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
		})
		require.NoError(t, err)
	}
}
