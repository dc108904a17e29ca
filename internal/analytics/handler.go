package analytics

import (
	"context"
	"math"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/response"
)

// TopEventsLimit is how many events the ranking returns.
const TopEventsLimit = 5

// Source provides the aggregates.
type Source interface {
	Counts(ctx context.Context, userID uuid.UUID, eventID *uuid.UUID) (Counts, error)
	EventStats(ctx context.Context, userID uuid.UUID, eventID *uuid.UUID) ([]EventStat, error)
}

// EventLookup checks event ownership.
type EventLookup interface {
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Event, error)
}

// Handler handles GET /analytics.
type Handler struct {
	source Source
	events EventLookup
}

// NewHandler creates an analytics handler.
func NewHandler(source Source, events EventLookup) *Handler {
	return &Handler{source: source, events: events}
}

// StatusCount is one slice of a status split.
type StatusCount struct {
	Status     string `json:"status"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// TopEvent is an event ranked by response rate.
type TopEvent struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Date         string    `json:"date"`
	GuestCount   int       `json:"guest_count"`
	RSVPCount    int       `json:"rsvp_count"`
	ResponseRate int       `json:"response_rate"`
}

// SummaryResponse is the JSON shape for analytics.
type SummaryResponse struct {
	TotalEvents     int           `json:"total_events"`
	TotalGuests     int           `json:"total_guests"`
	InvitationsSent int           `json:"invitations_sent"`
	ResponseRate    int           `json:"response_rate"`
	RSVP            []StatusCount `json:"rsvp"`
	Delivery        []StatusCount `json:"delivery"`
	TopEvents       []TopEvent    `json:"top_events"`
}

// Get handles GET /analytics?event_id=. Without event_id all of the caller's events are included.
func (h *Handler) Get(c *gin.Context) {
	uid := c.MustGet(auth.ContextUserID).(uuid.UUID)
	ctx := c.Request.Context()

	var eventID *uuid.UUID
	if s := c.Query("event_id"); s != "" && s != "all" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid event_id")
			return
		}
		if _, err := h.events.GetOwned(ctx, id, uid); err != nil {
			response.FromError(c, err, "event")
			return
		}
		eventID = &id
	}

	counts, err := h.source.Counts(ctx, uid, eventID)
	if err != nil {
		response.Internal(c, "failed to load guest counts")
		return
	}
	stats, err := h.source.EventStats(ctx, uid, eventID)
	if err != nil {
		response.Internal(c, "failed to load event counters")
		return
	}
	response.OK(c, Summarize(counts, stats))
}

// Summarize turns raw tallies into the response. Percentages are rounded to whole numbers.
func Summarize(c Counts, stats []EventStat) SummaryResponse {
	out := SummaryResponse{
		TotalEvents:     c.Events,
		TotalGuests:     c.Guests,
		InvitationsSent: c.InvitationsSent,
		ResponseRate:    percent(c.Accepted+c.Declined, c.Guests),
		RSVP: []StatusCount{
			{Status: "accepted", Count: c.Accepted, Percentage: percent(c.Accepted, c.Guests)},
			{Status: "declined", Count: c.Declined, Percentage: percent(c.Declined, c.Guests)},
			{Status: "pending", Count: c.Pending, Percentage: percent(c.Pending, c.Guests)},
		},
		Delivery: []StatusCount{
			{Status: "delivered", Count: c.Delivered, Percentage: percent(c.Delivered, c.Guests)},
			{Status: "sent", Count: c.Sent, Percentage: percent(c.Sent, c.Guests)},
			{Status: "not_sent", Count: c.NotSent, Percentage: percent(c.NotSent, c.Guests)},
		},
		TopEvents: []TopEvent{},
	}
	for _, s := range stats {
		out.TopEvents = append(out.TopEvents, TopEvent{
			ID:           s.ID,
			Name:         s.Name,
			Date:         s.Date,
			GuestCount:   s.GuestCount,
			RSVPCount:    s.RSVPCount,
			ResponseRate: percent(s.RSVPCount, s.GuestCount),
		})
	}
	sort.SliceStable(out.TopEvents, func(i, j int) bool {
		return out.TopEvents[i].ResponseRate > out.TopEvents[j].ResponseRate
	})
	if len(out.TopEvents) > TopEventsLimit {
		out.TopEvents = out.TopEvents[:TopEventsLimit]
	}
	return out
}

func percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}
