package deliverylogs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nialike/backend/internal/models"
)

// Filter narrows a delivery log listing.
type Filter struct {
	RunID   string
	Channel models.Channel
	Status  string
	Limit   int
}

// Repository handles delivery_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a delivery logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one send attempt.
func (r *Repository) Insert(ctx context.Context, l *models.DeliveryLog) error {
	const q = `INSERT INTO delivery_logs (event_id, guest_id, run_id, channel, recipient, status, message, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, l.EventID, l.GuestID, l.RunID, l.Channel, l.Recipient, l.Status, l.Message, l.ErrorMessage).
		Scan(&l.ID, &l.CreatedAt)
}

// ListByEvent returns delivery logs for an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, f Filter) ([]*models.DeliveryLog, error) {
	if f.Limit <= 0 {
		f.Limit = 200
	}
	const q = `SELECT id, event_id, guest_id, run_id, channel, recipient, status, message, error_message, created_at
		FROM delivery_logs
		WHERE event_id = $1
			AND ($2 = '' OR run_id = $2)
			AND ($3 = '' OR channel = $3)
			AND ($4 = '' OR status = $4)
		ORDER BY created_at DESC
		LIMIT $5`
	rows, err := r.pool.Query(ctx, q, eventID, f.RunID, string(f.Channel), f.Status, f.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.DeliveryLog{}
	for rows.Next() {
		var l models.DeliveryLog
		if err := rows.Scan(&l.ID, &l.EventID, &l.GuestID, &l.RunID, &l.Channel, &l.Recipient, &l.Status, &l.Message, &l.ErrorMessage, &l.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}
