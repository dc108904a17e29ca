package analytics

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Counts are the raw guest tallies behind a summary.
type Counts struct {
	Events          int
	Guests          int
	Accepted        int
	Declined        int
	Pending         int
	Delivered       int // delivered or viewed
	Sent            int
	NotSent         int
	InvitationsSent int
}

// EventStat is one event's guest and RSVP counters.
type EventStat struct {
	ID         uuid.UUID
	Name       string
	Date       string
	GuestCount int
	RSVPCount  int
}

// Repository runs the analytics aggregates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Counts tallies guests of the user's events, or of one event when eventID is set.
func (r *Repository) Counts(ctx context.Context, userID uuid.UUID, eventID *uuid.UUID) (Counts, error) {
	var c Counts
	const eventsQ = `SELECT COUNT(*), COALESCE(SUM(invitations_sent), 0) FROM events
		WHERE user_id = $1 AND ($2::uuid IS NULL OR id = $2)`
	if err := r.pool.QueryRow(ctx, eventsQ, userID, eventID).Scan(&c.Events, &c.InvitationsSent); err != nil {
		return c, err
	}
	const guestsQ = `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE g.rsvp_status = 'accepted'),
			COUNT(*) FILTER (WHERE g.rsvp_status = 'declined'),
			COUNT(*) FILTER (WHERE g.rsvp_status = 'pending'),
			COUNT(*) FILTER (WHERE g.delivery_status IN ('delivered', 'viewed')),
			COUNT(*) FILTER (WHERE g.delivery_status = 'sent'),
			COUNT(*) FILTER (WHERE g.delivery_status = 'not_sent')
		FROM guests g JOIN events e ON e.id = g.event_id
		WHERE e.user_id = $1 AND ($2::uuid IS NULL OR e.id = $2)`
	err := r.pool.QueryRow(ctx, guestsQ, userID, eventID).
		Scan(&c.Guests, &c.Accepted, &c.Declined, &c.Pending, &c.Delivered, &c.Sent, &c.NotSent)
	return c, err
}

// EventStats lists the counters of the user's events, or of one event when eventID is set.
func (r *Repository) EventStats(ctx context.Context, userID uuid.UUID, eventID *uuid.UUID) ([]EventStat, error) {
	const q = `SELECT id, name, date, guest_count, rsvp_count FROM events
		WHERE user_id = $1 AND ($2::uuid IS NULL OR id = $2)`
	rows, err := r.pool.Query(ctx, q, userID, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []EventStat
	for rows.Next() {
		var s EventStat
		if err := rows.Scan(&s.ID, &s.Name, &s.Date, &s.GuestCount, &s.RSVPCount); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
