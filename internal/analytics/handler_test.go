package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/database"
)

func TestSummarize(t *testing.T) {
	stats := []EventStat{
		{Name: "a", GuestCount: 10, RSVPCount: 2},
		{Name: "b", GuestCount: 3, RSVPCount: 3},
		{Name: "c", GuestCount: 0, RSVPCount: 0},
		{Name: "d", GuestCount: 3, RSVPCount: 1},
		{Name: "e", GuestCount: 4, RSVPCount: 2},
		{Name: "f", GuestCount: 8, RSVPCount: 6},
	}
	out := Summarize(Counts{Events: 6, Guests: 28, Accepted: 10, Declined: 4, Pending: 14, Delivered: 5, Sent: 9, NotSent: 14}, stats)

	assert.Equal(t, 50, out.ResponseRate)
	assert.Equal(t, StatusCount{Status: "accepted", Count: 10, Percentage: 36}, out.RSVP[0])
	assert.Equal(t, StatusCount{Status: "not_sent", Count: 14, Percentage: 50}, out.Delivery[2])

	require.Len(t, out.TopEvents, TopEventsLimit)
	names := make([]string, 0, len(out.TopEvents))
	for _, e := range out.TopEvents {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"b", "f", "e", "d", "a"}, names)
	assert.Equal(t, 33, out.TopEvents[3].ResponseRate)
}

func TestSummarizeEmpty(t *testing.T) {
	out := Summarize(Counts{}, nil)
	assert.Zero(t, out.ResponseRate)
	assert.NotNil(t, out.TopEvents)
	for _, s := range out.RSVP {
		assert.Zero(t, s.Percentage)
	}
}

type fakeSource struct {
	eventID *uuid.UUID
}

func (f *fakeSource) Counts(_ context.Context, _ uuid.UUID, eventID *uuid.UUID) (Counts, error) {
	f.eventID = eventID
	return Counts{Guests: 1, Accepted: 1}, nil
}

func (f *fakeSource) EventStats(context.Context, uuid.UUID, *uuid.UUID) ([]EventStat, error) {
	return nil, nil
}

type events map[uuid.UUID]uuid.UUID

func (e events) GetOwned(_ context.Context, id, userID uuid.UUID) (*models.Event, error) {
	if e[id] == userID {
		return &models.Event{ID: id}, nil
	}
	return nil, database.ErrNotFound
}

func TestGetScopesToEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	user, eventID := uuid.New(), uuid.New()
	src := &fakeSource{}
	h := NewHandler(src, events{eventID: user})
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(auth.ContextUserID, user); c.Next() })
	r.GET("/analytics", h.Get)

	get := func(q string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analytics"+q, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, get("?event_id="+eventID.String()))
	require.NotNil(t, src.eventID)
	assert.Equal(t, eventID, *src.eventID)

	assert.Equal(t, http.StatusOK, get("?event_id=all"))
	assert.Nil(t, src.eventID)

	assert.Equal(t, http.StatusNotFound, get("?event_id="+uuid.NewString()))
	assert.Equal(t, http.StatusBadRequest, get("?event_id=x"))
}
