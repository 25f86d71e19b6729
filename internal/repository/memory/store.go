// Package memory implements repository.Store in process. It backs development
// runs without Postgres and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/field-ticket-service/internal/domain"
	"github.com/spec-kit/field-ticket-service/internal/repository"
	"github.com/spec-kit/field-ticket-service/internal/search"
)

type ticketRow struct {
	seq    int64
	ticket domain.Ticket
}

type activityRow struct {
	seq      int64
	activity domain.Activity
}

type state struct {
	seq        int64
	tickets    map[string]ticketRow
	activities []activityRow
	users      map[string]domain.User
}

func (s *state) clone() *state {
	c := &state{
		seq:        s.seq,
		tickets:    make(map[string]ticketRow, len(s.tickets)),
		activities: make([]activityRow, len(s.activities)),
		users:      make(map[string]domain.User, len(s.users)),
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	copy(c.activities, s.activities)
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

func (s *state) next() int64 {
	s.seq++
	return s.seq
}

// Store keeps every record in memory behind a single mutex. Transactions run
// against a copy that replaces the live state on success.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		st: &state{
			tickets: map[string]ticketRow{},
			users:   map[string]domain.User{},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// view runs fn against some state. The live view locks; the transactional
// view runs under the lock already held by WithinTx.
type view func(fn func(*state) error) error

func (s *Store) live(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) repositories(v view) repository.Repositories {
	return repository.Repositories{
		Tickets:    &tickets{view: v, now: s.now},
		Activities: &activities{view: v, now: s.now},
		Users:      &users{view: v, now: s.now},
	}
}

// Repositories returns repositories that operate on the live state.
func (s *Store) Repositories() repository.Repositories {
	return s.repositories(s.live)
}

// WithinTx runs fn atomically. Repositories obtained from Repositories() must
// not be used inside fn.
func (s *Store) WithinTx(_ context.Context, fn func(repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.st.clone()
	tx := func(f func(*state) error) error { return f(draft) }
	if err := fn(s.repositories(tx)); err != nil {
		return err
	}
	s.st = draft
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

type tickets struct {
	view view
	now  func() time.Time
}

func (r *tickets) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.view(func(st *state) error {
		if numberTaken(st, ticket.TicketNumber, "") {
			return repository.ErrDuplicate
		}
		now := r.now()
		ticket.ID = uuid.NewString()
		ticket.CreatedAt = now
		ticket.UpdatedAt = now
		st.tickets[ticket.ID] = ticketRow{seq: st.next(), ticket: *ticket}
		return nil
	})
}

func (r *tickets) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.view(func(st *state) error {
		row, ok := st.tickets[ticket.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if numberTaken(st, ticket.TicketNumber, ticket.ID) {
			return repository.ErrDuplicate
		}
		ticket.CreatedAt = row.ticket.CreatedAt
		ticket.CreatedBy = row.ticket.CreatedBy
		ticket.UpdatedAt = r.now()
		row.ticket = *ticket
		st.tickets[ticket.ID] = row
		return nil
	})
}

func (r *tickets) Delete(_ context.Context, id string) error {
	return r.view(func(st *state) error {
		if _, ok := st.tickets[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.tickets, id)
		kept := st.activities[:0:0]
		for _, a := range st.activities {
			if a.activity.TicketID != id {
				kept = append(kept, a)
			}
		}
		st.activities = kept
		return nil
	})
}

func (r *tickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.view(func(st *state) error {
		row, ok := st.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		t := row.ticket
		out = &t
		return nil
	})
	return out, err
}

func (r *tickets) GetByTicketNumber(_ context.Context, number string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.view(func(st *state) error {
		for _, row := range st.tickets {
			if row.ticket.TicketNumber == number {
				t := row.ticket
				out = &t
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *tickets) List(_ context.Context, criteria search.Criteria, page repository.Page) ([]domain.Ticket, int, error) {
	var matched []ticketRow
	_ = r.view(func(st *state) error {
		for _, row := range st.tickets {
			if criteria.Matches(&row.ticket) {
				matched = append(matched, row)
			}
		}
		return nil
	})

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.ticket.CreatedAt.Equal(b.ticket.CreatedAt) {
			return a.ticket.CreatedAt.After(b.ticket.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := len(matched)
	start, end := 0, total
	if page.Limit > 0 {
		start = min(max(page.Offset, 0), total)
		end = min(start+page.Limit, total)
	}
	result := make([]domain.Ticket, 0, end-start)
	for _, row := range matched[start:end] {
		result = append(result, row.ticket)
	}
	return result, total, nil
}

func numberTaken(st *state, number, exceptID string) bool {
	for id, row := range st.tickets {
		if id != exceptID && row.ticket.TicketNumber == number {
			return true
		}
	}
	return false
}

type activities struct {
	view view
	now  func() time.Time
}

func (r *activities) Create(_ context.Context, activity *domain.Activity) error {
	return r.view(func(st *state) error {
		if _, ok := st.tickets[activity.TicketID]; !ok {
			return repository.ErrNotFound
		}
		activity.ID = uuid.NewString()
		activity.CreatedAt = r.now()
		st.activities = append(st.activities, activityRow{seq: st.next(), activity: *activity})
		return nil
	})
}

func (r *activities) ListByTicket(_ context.Context, ticketID string) ([]domain.Activity, error) {
	var rows []activityRow
	_ = r.view(func(st *state) error {
		for _, row := range st.activities {
			if row.activity.TicketID == ticketID {
				rows = append(rows, row)
			}
		}
		return nil
	})

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.activity.ActivityTime.Equal(b.activity.ActivityTime) {
			return a.activity.ActivityTime.Before(b.activity.ActivityTime)
		}
		return a.seq < b.seq
	})

	result := make([]domain.Activity, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.activity)
	}
	return result, nil
}

type users struct {
	view view
	now  func() time.Time
}

func (r *users) Create(_ context.Context, user *domain.User) error {
	return r.view(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, user.Email) {
				return repository.ErrDuplicate
			}
		}
		now := r.now()
		user.ID = uuid.NewString()
		user.CreatedAt = now
		user.UpdatedAt = now
		st.users[user.ID] = *user
		return nil
	})
}

func (r *users) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.view(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.view(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				out = &u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *users) List(context.Context) ([]domain.User, error) {
	result := []domain.User{}
	_ = r.view(func(st *state) error {
		for _, u := range st.users {
			result = append(result, u)
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
