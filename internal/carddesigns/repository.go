package carddesigns

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/database"
)

const designColumns = `id, name, user_id, event_id, background_image, canvas_width, canvas_height, text_elements, created_at, updated_at`

// Repository handles card design persistence. Elements are stored as a JSONB array.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a card design repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanDesign(row pgx.Row) (*models.CardDesign, error) {
	var d models.CardDesign
	err := row.Scan(&d.ID, &d.Name, &d.UserID, &d.EventID, &d.BackgroundImage, &d.CanvasWidth, &d.CanvasHeight,
		&d.TextElements, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err)
	}
	if d.TextElements == nil {
		d.TextElements = []models.TextElement{}
	}
	return &d, nil
}

func elements(d *models.CardDesign) []models.TextElement {
	if d.TextElements == nil {
		return []models.TextElement{}
	}
	return d.TextElements
}

// Create inserts a design.
func (r *Repository) Create(ctx context.Context, d *models.CardDesign) error {
	const q = `INSERT INTO card_designs (name, user_id, event_id, background_image, canvas_width, canvas_height, text_elements)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, d.Name, d.UserID, d.EventID, d.BackgroundImage, d.CanvasWidth, d.CanvasHeight, elements(d)).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	return database.MapError(err)
}

// GetOwned returns a design only when userID owns it.
func (r *Repository) GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.CardDesign, error) {
	return scanDesign(r.pool.QueryRow(ctx, `SELECT `+designColumns+` FROM card_designs WHERE id = $1 AND user_id = $2`, id, userID))
}

// ListByUser returns a user's designs, newest first, optionally only those of one event.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, eventID *uuid.UUID) ([]models.CardDesign, error) {
	q := `SELECT ` + designColumns + ` FROM card_designs WHERE user_id = $1`
	args := []interface{}{userID}
	if eventID != nil {
		q += ` AND event_id = $2`
		args = append(args, *eventID)
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.CardDesign{}
	for rows.Next() {
		d, err := scanDesign(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *d)
	}
	return list, rows.Err()
}

// Update writes a design's layout.
func (r *Repository) Update(ctx context.Context, d *models.CardDesign) error {
	const q = `UPDATE card_designs SET name = $1, event_id = $2, background_image = $3, canvas_width = $4, canvas_height = $5,
		text_elements = $6, updated_at = NOW() WHERE id = $7 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, d.Name, d.EventID, d.BackgroundImage, d.CanvasWidth, d.CanvasHeight, elements(d), d.ID).
		Scan(&d.UpdatedAt)
	return database.MapError(err)
}

// Delete removes a design and clears it as any event's default.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `UPDATE events SET default_card_design_id = NULL WHERE default_card_design_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM card_designs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return tx.Commit(ctx)
}

// DefaultForEvent returns the event's chosen design, or else its most recent one.
func (r *Repository) DefaultForEvent(ctx context.Context, event models.Event) (*models.CardDesign, error) {
	if event.DefaultCardDesignID != nil {
		d, err := r.GetOwned(ctx, *event.DefaultCardDesignID, event.UserID)
		if err == nil || !errors.Is(err, database.ErrNotFound) {
			return d, err
		}
	}
	const q = `SELECT ` + designColumns + ` FROM card_designs WHERE event_id = $1 AND user_id = $2 ORDER BY updated_at DESC LIMIT 1`
	return scanDesign(r.pool.QueryRow(ctx, q, event.ID, event.UserID))
}
