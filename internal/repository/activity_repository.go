package repository

import (
	"context"

	"github.com/spec-kit/field-ticket-service/internal/domain"
)

// ActivityRepository stores the append-only ticket activity log.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	// ListByTicket returns entries ordered by activity time, then insertion.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Activity, error)
}

type activityRepository struct {
	db DBTX
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	if !validID(activity.TicketID) {
		return ErrNotFound
	}
	const query = `
        INSERT INTO ticket_activities (ticket_id, activity_type, title, description, activity_time, user_id,
            ct_bad_part, ct_good_part, bap_file)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		activity.TicketID,
		activity.Type,
		activity.Title,
		activity.Description,
		activity.ActivityTime,
		activity.UserID,
		activity.Attachments.CTBadPart,
		activity.Attachments.CTGoodPart,
		activity.Attachments.BAPFile,
	).Scan(&activity.ID, &activity.CreatedAt)
	return translate(err)
}

func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Activity, error) {
	if !validID(ticketID) {
		return []domain.Activity{}, nil
	}
	const query = `
        SELECT id, ticket_id, activity_type, title, description, activity_time, user_id,
               ct_bad_part, ct_good_part, bap_file, created_at
        FROM ticket_activities WHERE ticket_id=$1 ORDER BY activity_time ASC, seq ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	result := []domain.Activity{}
	for rows.Next() {
		var activity domain.Activity
		if err := rows.Scan(
			&activity.ID,
			&activity.TicketID,
			&activity.Type,
			&activity.Title,
			&activity.Description,
			&activity.ActivityTime,
			&activity.UserID,
			&activity.Attachments.CTBadPart,
			&activity.Attachments.CTGoodPart,
			&activity.Attachments.BAPFile,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}
