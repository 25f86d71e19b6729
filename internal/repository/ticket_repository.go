package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-ticket-service/internal/domain"
	"github.com/spec-kit/field-ticket-service/internal/search"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByTicketNumber(ctx context.Context, number string) (*domain.Ticket, error)
	// List returns one page of matching tickets, newest first, and the total match count.
	List(ctx context.Context, criteria search.Criteria, page Page) ([]domain.Ticket, int, error)
}

type ticketRepository struct {
	db DBTX
}

const ticketColumns = `id, ticket_number, case_id, company, serial_number, problem, notes,
       schedule, deadline, status, assigned_to, created_by,
       ct_bad_part, ct_good_part, bap_file, needs_revisit, completion_notes,
       completed_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, case_id, company, serial_number, problem, notes,
            schedule, deadline, status, assigned_to, created_by,
            ct_bad_part, ct_good_part, bap_file, needs_revisit, completion_notes, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.CaseID,
		ticket.Company,
		ticket.SerialNumber,
		ticket.Problem,
		ticket.Notes,
		ticket.Schedule,
		ticket.Deadline,
		ticket.Status,
		ticket.AssignedTo,
		ticket.CreatedBy,
		ticket.Documents.CTBadPart,
		ticket.Documents.CTGoodPart,
		ticket.Documents.BAPFile,
		ticket.NeedsRevisit,
		ticket.CompletionNotes,
		ticket.CompletedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return translate(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	if !validID(ticket.ID) {
		return ErrNotFound
	}
	const query = `
        UPDATE tickets SET ticket_number=$1, case_id=$2, company=$3, serial_number=$4, problem=$5,
            notes=$6, schedule=$7, deadline=$8, status=$9, assigned_to=$10,
            ct_bad_part=$11, ct_good_part=$12, bap_file=$13, needs_revisit=$14,
            completion_notes=$15, completed_at=$16, updated_at=NOW()
        WHERE id=$17
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.CaseID,
		ticket.Company,
		ticket.SerialNumber,
		ticket.Problem,
		ticket.Notes,
		ticket.Schedule,
		ticket.Deadline,
		ticket.Status,
		ticket.AssignedTo,
		ticket.Documents.CTBadPart,
		ticket.Documents.CTGoodPart,
		ticket.Documents.BAPFile,
		ticket.NeedsRevisit,
		ticket.CompletionNotes,
		ticket.CompletedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return translate(err)
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByTicketNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_number=$1`, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, criteria search.Criteria, page Page) ([]domain.Ticket, int, error) {
	args := []any{}
	clauses := append([]string{"1=1"}, criteria.Where(&args)...)
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, translate(err)
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, seq DESC`, ticketColumns, where)
	if page.Limit > 0 {
		offset := page.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", page.Limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err)
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.CaseID,
		&ticket.Company,
		&ticket.SerialNumber,
		&ticket.Problem,
		&ticket.Notes,
		&ticket.Schedule,
		&ticket.Deadline,
		&ticket.Status,
		&ticket.AssignedTo,
		&ticket.CreatedBy,
		&ticket.Documents.CTBadPart,
		&ticket.Documents.CTGoodPart,
		&ticket.Documents.BAPFile,
		&ticket.NeedsRevisit,
		&ticket.CompletionNotes,
		&ticket.CompletedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
