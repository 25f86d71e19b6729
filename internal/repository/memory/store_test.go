package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-ticket-service/internal/domain"
	"github.com/spec-kit/field-ticket-service/internal/repository"
	"github.com/spec-kit/field-ticket-service/internal/search"
)

func fixedClock() func() time.Time {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func newTicket(number string, status domain.TicketStatus) *domain.Ticket {
	return &domain.Ticket{TicketNumber: number, Company: "Acme", Problem: "No power", Status: status}
}

func TestTicketsCreateAndDuplicate(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	first := newTicket("T-001", domain.TicketStatusOpen)
	require.NoError(t, repos.Tickets.Create(ctx, first))
	assert.NotEmpty(t, first.ID)

	err := repos.Tickets.Create(ctx, newTicket("T-001", domain.TicketStatusOpen))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := repos.Tickets.GetByTicketNumber(ctx, "T-001")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = repos.Tickets.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTicketsListNewestFirstWithPaging(t *testing.T) {
	ctx := context.Background()
	repos := NewStore(WithClock(fixedClock())).Repositories()

	for _, n := range []string{"T-1", "T-2", "T-3"} {
		require.NoError(t, repos.Tickets.Create(ctx, newTicket(n, domain.TicketStatusOpen)))
	}

	all, total, err := repos.Tickets.List(ctx, search.Criteria{}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, "T-3", all[0].TicketNumber)
	assert.Equal(t, "T-1", all[2].TicketNumber)

	page, total, err := repos.Tickets.List(ctx, search.Criteria{}, repository.Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "T-1", page[0].TicketNumber)

	empty, _, err := repos.Tickets.List(ctx, search.Criteria{}, repository.Page{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDeleteCascadesActivities(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	ticket := newTicket("T-1", domain.TicketStatusOpen)
	require.NoError(t, repos.Tickets.Create(ctx, ticket))
	require.NoError(t, repos.Activities.Create(ctx, &domain.Activity{
		TicketID: ticket.ID, Type: domain.ActivityReceived, Title: "Received", ActivityTime: time.Now(),
	}))

	require.NoError(t, repos.Tickets.Delete(ctx, ticket.ID))
	activities, err := repos.Activities.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, activities)

	assert.ErrorIs(t, repos.Tickets.Delete(ctx, ticket.ID), repository.ErrNotFound)
}

func TestActivitiesOrderedByTimeThenInsertion(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	ticket := newTicket("T-1", domain.TicketStatusOpen)
	require.NoError(t, repos.Tickets.Create(ctx, ticket))

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for _, a := range []struct {
		title string
		at    time.Time
	}{
		{"late", base.Add(time.Hour)},
		{"early-a", base},
		{"early-b", base},
	} {
		require.NoError(t, repos.Activities.Create(ctx, &domain.Activity{
			TicketID: ticket.ID, Type: domain.ActivityNote, Title: a.title, ActivityTime: a.at,
		}))
	}

	activities, err := repos.Activities.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, activities, 3)
	assert.Equal(t, []string{"early-a", "early-b", "late"},
		[]string{activities[0].Title, activities[1].Title, activities[2].Title})
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	ticket := newTicket("T-1", domain.TicketStatusOpen)
	require.NoError(t, store.Repositories().Tickets.Create(ctx, ticket))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx repository.Repositories) error {
		ticket.Status = domain.TicketStatusInProgress
		if err := tx.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if err := tx.Activities.Create(ctx, &domain.Activity{
			TicketID: ticket.ID, Type: domain.ActivityEndWorking, Title: "End Working", ActivityTime: time.Now(),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Repositories().Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, got.Status)
	activities, err := store.Repositories().Activities.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, activities)
}

func TestWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.WithinTx(ctx, func(tx repository.Repositories) error {
		return tx.Users.Create(ctx, &domain.User{Name: "Dana", Email: "dana@example.com"})
	})
	require.NoError(t, err)

	user, err := store.Repositories().Users.GetByEmail(ctx, "DANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Dana", user.Name)

	err = store.Repositories().Users.Create(ctx, &domain.User{Name: "Other", Email: "dana@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}
