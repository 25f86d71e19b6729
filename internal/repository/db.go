package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("repository: duplicate record")
)

const uniqueViolation = "23505"

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups the repositories sharing one connection or transaction.
type Repositories struct {
	Tickets    TicketRepository
	Activities ActivityRepository
	Users      UserRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn func(Repositories) error) error
	Ping(ctx context.Context) error
}

// Page bounds a list query. A non-positive Limit returns every row.
type Page struct {
	Limit  int
	Offset int
}

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		Tickets:    &ticketRepository{db: db},
		Activities: &activityRepository{db: db},
		Users:      &userRepository{db: db},
	}
}

func (s *postgresStore) Repositories() Repositories {
	return newRepositories(s.pool)
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newRepositories(tx))
	})
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

// validID reports whether id can address a UUID primary key.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
