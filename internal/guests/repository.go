package guests

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/database"
)

const guestColumns = `id, event_id, name, email, phone, category, rsvp_status, delivery_status, invited_at, responded_at,
	plus_one_allowed, plus_one_name, dietary_restrictions, table_number, card_type, card_count, card_url, created_at, updated_at`

// Filter narrows a guest listing.
type Filter struct {
	RSVPStatus models.RSVPStatus
	Query      string // matches name, email or phone
}

// Repository handles guest persistence and keeps the event's guest and RSVP counters.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a guest repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanGuest(row pgx.Row) (*models.Guest, error) {
	var g models.Guest
	err := row.Scan(&g.ID, &g.EventID, &g.Name, &g.Email, &g.Phone, &g.Category, &g.RSVPStatus, &g.DeliveryStatus,
		&g.InvitedAt, &g.RespondedAt, &g.PlusOneAllowed, &g.PlusOneName, &g.DietaryRestrictions, &g.TableNumber,
		&g.CardType, &g.CardCount, &g.CardURL, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err)
	}
	return &g, nil
}

func responded(s models.RSVPStatus) int {
	if s == models.RSVPPending || s == "" {
		return 0
	}
	return 1
}

// Create inserts a guest and bumps the event counters.
func (r *Repository) Create(ctx context.Context, g *models.Guest) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `INSERT INTO guests (event_id, name, email, phone, category, rsvp_status, delivery_status, responded_at,
		plus_one_allowed, plus_one_name, dietary_restrictions, table_number, card_type, card_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, q, g.EventID, g.Name, g.Email, g.Phone, g.Category, g.RSVPStatus, g.DeliveryStatus, g.RespondedAt,
		g.PlusOneAllowed, g.PlusOneName, g.DietaryRestrictions, g.TableNumber, g.CardType, g.CardCount).
		Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return database.MapError(err)
	}
	if _, err := tx.Exec(ctx, `UPDATE events SET guest_count = guest_count + 1, rsvp_count = rsvp_count + $1, updated_at = NOW() WHERE id = $2`,
		responded(g.RSVPStatus), g.EventID); err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	return tx.Commit(ctx)
}

// GetOwned returns a guest whose event belongs to userID.
func (r *Repository) GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Guest, error) {
	q := `SELECT ` + prefixed("g", guestColumns) + ` FROM guests g JOIN events e ON e.id = g.event_id WHERE g.id = $1 AND e.user_id = $2`
	return scanGuest(r.pool.QueryRow(ctx, q, id, userID))
}

// ListByEvent returns an event's guests in creation order.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, f Filter) ([]models.Guest, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + guestColumns + ` FROM guests WHERE event_id = $1`)
	args := []interface{}{eventID}
	if f.RSVPStatus != "" {
		args = append(args, f.RSVPStatus)
		b.WriteString(` AND rsvp_status = $` + strconv.Itoa(len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := strconv.Itoa(len(args))
		b.WriteString(` AND (name ILIKE $` + n + ` OR email ILIKE $` + n + ` OR phone ILIKE $` + n + `)`)
	}
	b.WriteString(` ORDER BY created_at, id`)
	return r.list(ctx, b.String(), args...)
}

// ListByIDs returns the event's guests among ids. Unknown ids are skipped.
func (r *Repository) ListByIDs(ctx context.Context, eventID uuid.UUID, ids []uuid.UUID) ([]models.Guest, error) {
	return r.list(ctx, `SELECT `+guestColumns+` FROM guests WHERE event_id = $1 AND id = ANY($2)`, eventID, ids)
}

func (r *Repository) list(ctx context.Context, q string, args ...interface{}) ([]models.Guest, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Guest{}
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *g)
	}
	return list, rows.Err()
}

// Update writes a guest's contact and seating fields.
func (r *Repository) Update(ctx context.Context, g *models.Guest) error {
	const q = `UPDATE guests SET name = $1, email = $2, phone = $3, category = $4, plus_one_allowed = $5, plus_one_name = $6,
		dietary_restrictions = $7, table_number = $8, card_type = $9, card_count = $10, delivery_status = $11, updated_at = NOW()
		WHERE id = $12 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, g.Name, g.Email, g.Phone, g.Category, g.PlusOneAllowed, g.PlusOneName,
		g.DietaryRestrictions, g.TableNumber, g.CardType, g.CardCount, g.DeliveryStatus, g.ID).Scan(&g.UpdatedAt)
	return database.MapError(err)
}

// UpdateRSVP records a guest's answer and moves the event's rsvp_count with it.
func (r *Repository) UpdateRSVP(ctx context.Context, id uuid.UUID, status models.RSVPStatus, at time.Time) (*models.Guest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var prev models.RSVPStatus
	var eventID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT rsvp_status, event_id FROM guests WHERE id = $1 FOR UPDATE`, id).Scan(&prev, &eventID); err != nil {
		return nil, database.MapError(err)
	}
	var respondedAt *time.Time
	if status != models.RSVPPending {
		respondedAt = &at
	}
	g, err := scanGuest(tx.QueryRow(ctx, `UPDATE guests SET rsvp_status = $1, responded_at = $2, updated_at = NOW() WHERE id = $3
		RETURNING `+guestColumns, status, respondedAt, id))
	if err != nil {
		return nil, err
	}
	if delta := responded(status) - responded(prev); delta != 0 {
		if _, err := tx.Exec(ctx, `UPDATE events SET rsvp_count = GREATEST(rsvp_count + $1, 0), updated_at = NOW() WHERE id = $2`, delta, eventID); err != nil {
			return nil, fmt.Errorf("update counters: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// Delete removes a guest and lowers the event counters.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status models.RSVPStatus
	var eventID uuid.UUID
	if err := tx.QueryRow(ctx, `DELETE FROM guests WHERE id = $1 RETURNING rsvp_status, event_id`, id).Scan(&status, &eventID); err != nil {
		return database.MapError(err)
	}
	if _, err := tx.Exec(ctx, `UPDATE events SET guest_count = GREATEST(guest_count - 1, 0),
		rsvp_count = GREATEST(rsvp_count - $1, 0), updated_at = NOW() WHERE id = $2`, responded(status), eventID); err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	return tx.Commit(ctx)
}

// MarkSent sets delivery_status to sent and stamps invited_at.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE guests SET delivery_status = $1, invited_at = $2, updated_at = NOW() WHERE id = $3`,
		models.DeliverySent, at, id)
	return err
}

// SetCardURL stores the guest's published card image URL.
func (r *Repository) SetCardURL(ctx context.Context, id uuid.UUID, url string) error {
	_, err := r.pool.Exec(ctx, `UPDATE guests SET card_url = $1, updated_at = NOW() WHERE id = $2`, url, id)
	return err
}

// prefixed qualifies a column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
