package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/database"
)

const eventColumns = `id, user_id, name, type, date, time, venue, dress_code, cover_image, description, status,
	guest_count, rsvp_count, invitations_sent, default_card_design_id, created_at, updated_at`

const attributeColumns = `id, event_id, attribute_key, attribute_value, attribute_type, display_name, is_required, created_at, updated_at`

// Repository handles event and event attribute persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.Type, &e.Date, &e.Time, &e.Venue, &e.DressCode, &e.CoverImage,
		&e.Description, &e.Status, &e.GuestCount, &e.RSVPCount, &e.InvitationsSent, &e.DefaultCardDesignID,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err)
	}
	return &e, nil
}

func scanAttribute(row pgx.Row) (*models.EventAttribute, error) {
	var a models.EventAttribute
	err := row.Scan(&a.ID, &a.EventID, &a.Key, &a.Value, &a.Type, &a.DisplayName, &a.Required, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err)
	}
	return &a, nil
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (user_id, name, type, date, time, venue, dress_code, cover_image, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.UserID, e.Name, e.Type, e.Date, e.Time, e.Venue, e.DressCode, e.CoverImage, e.Description, e.Status).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return database.MapError(err)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// GetOwned returns an event only when userID owns it.
func (r *Repository) GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 AND user_id = $2`, id, userID))
}

// ListByUser returns a user's events, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Update writes the editable fields of an event.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET name = $1, type = $2, date = $3, time = $4, venue = $5, dress_code = $6,
		cover_image = $7, description = $8, status = $9, updated_at = NOW()
		WHERE id = $10 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, e.Name, e.Type, e.Date, e.Time, e.Venue, e.DressCode, e.CoverImage, e.Description, e.Status, e.ID).
		Scan(&e.UpdatedAt)
	return database.MapError(err)
}

// Delete removes an event with its guests and delivery history in one transaction.
// Attributes and channel configuration go through ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM delivery_logs WHERE event_id = $1`, id); err != nil {
		return fmt.Errorf("delete delivery logs: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM guests WHERE event_id = $1`, id); err != nil {
		return fmt.Errorf("delete guests: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return tx.Commit(ctx)
}

// SetDefaultCardDesign sets or clears the design used for generated cards.
func (r *Repository) SetDefaultCardDesign(ctx context.Context, eventID uuid.UUID, designID *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE events SET default_card_design_id = $1, updated_at = NOW() WHERE id = $2`, designID, eventID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

// IncrementInvitationsSent adds n to the event's invitations_sent counter.
func (r *Repository) IncrementInvitationsSent(ctx context.Context, eventID uuid.UUID, n int) error {
	_, err := r.pool.Exec(ctx, `UPDATE events SET invitations_sent = invitations_sent + $1, updated_at = NOW() WHERE id = $2`, n, eventID)
	return err
}

// ListAttributes returns an event's attributes in creation order.
func (r *Repository) ListAttributes(ctx context.Context, eventID uuid.UUID) ([]models.EventAttribute, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+attributeColumns+` FROM event_attributes WHERE event_id = $1 ORDER BY created_at, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.EventAttribute{}
	for rows.Next() {
		a, err := scanAttribute(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// CreateAttribute inserts an attribute. A duplicate key for the event returns ErrConflict.
func (r *Repository) CreateAttribute(ctx context.Context, a *models.EventAttribute) error {
	const q = `INSERT INTO event_attributes (event_id, attribute_key, attribute_value, attribute_type, display_name, is_required)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, a.EventID, a.Key, a.Value, a.Type, a.DisplayName, a.Required).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return database.MapError(err)
}

// GetAttributeOwned returns an attribute whose event belongs to userID.
func (r *Repository) GetAttributeOwned(ctx context.Context, id, userID uuid.UUID) (*models.EventAttribute, error) {
	const q = `SELECT a.id, a.event_id, a.attribute_key, a.attribute_value, a.attribute_type, a.display_name, a.is_required, a.created_at, a.updated_at
		FROM event_attributes a JOIN events e ON e.id = a.event_id
		WHERE a.id = $1 AND e.user_id = $2`
	return scanAttribute(r.pool.QueryRow(ctx, q, id, userID))
}

// UpdateAttribute writes an attribute's fields.
func (r *Repository) UpdateAttribute(ctx context.Context, a *models.EventAttribute) error {
	const q = `UPDATE event_attributes SET attribute_key = $1, attribute_value = $2, attribute_type = $3,
		display_name = $4, is_required = $5, updated_at = NOW()
		WHERE id = $6 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, a.Key, a.Value, a.Type, a.DisplayName, a.Required, a.ID).Scan(&a.UpdatedAt)
	return database.MapError(err)
}

// DeleteAttribute removes an attribute by ID.
func (r *Repository) DeleteAttribute(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM event_attributes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}
