package guests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nialike/backend/internal/auth"
	"github.com/nialike/backend/internal/cards"
	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/database"
)

type memGuests struct {
	guests   map[uuid.UUID]*models.Guest
	owners   map[uuid.UUID]uuid.UUID // event -> user
	filters  []Filter
	cardURLs map[uuid.UUID]string
}

func (m *memGuests) Create(_ context.Context, g *models.Guest) error {
	g.ID = uuid.New()
	cp := *g
	m.guests[g.ID] = &cp
	return nil
}

func (m *memGuests) GetOwned(_ context.Context, id, userID uuid.UUID) (*models.Guest, error) {
	g, ok := m.guests[id]
	if !ok || m.owners[g.EventID] != userID {
		return nil, database.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memGuests) ListByEvent(_ context.Context, eventID uuid.UUID, f Filter) ([]models.Guest, error) {
	m.filters = append(m.filters, f)
	out := []models.Guest{}
	for _, g := range m.guests {
		if g.EventID == eventID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *memGuests) Update(_ context.Context, g *models.Guest) error {
	cp := *g
	m.guests[g.ID] = &cp
	return nil
}

func (m *memGuests) UpdateRSVP(_ context.Context, id uuid.UUID, status models.RSVPStatus, at time.Time) (*models.Guest, error) {
	g := m.guests[id]
	g.RSVPStatus = status
	g.RespondedAt = &at
	cp := *g
	return &cp, nil
}

func (m *memGuests) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.guests, id)
	return nil
}

func (m *memGuests) SetCardURL(_ context.Context, id uuid.UUID, url string) error {
	m.cardURLs[id] = url
	return nil
}

type memEvents map[uuid.UUID]*models.Event

func (m memEvents) GetOwned(_ context.Context, id, userID uuid.UUID) (*models.Event, error) {
	e, ok := m[id]
	if !ok || e.UserID != userID {
		return nil, database.ErrNotFound
	}
	return e, nil
}

func (m memEvents) ListAttributes(context.Context, uuid.UUID) ([]models.EventAttribute, error) {
	return []models.EventAttribute{{Key: "groom", Value: "Joseph"}}, nil
}

type fakeDesigns struct {
	def *models.CardDesign
}

func (d fakeDesigns) GetOwned(_ context.Context, id, _ uuid.UUID) (*models.CardDesign, error) {
	return nil, database.ErrNotFound
}

func (d fakeDesigns) DefaultForEvent(context.Context, models.Event) (*models.CardDesign, error) {
	if d.def == nil {
		return nil, database.ErrNotFound
	}
	return d.def, nil
}

type fakeGen struct {
	pub   cards.Published
	err   error
	attrs []models.EventAttribute
}

func (f *fakeGen) Generate(_ context.Context, _ models.CardDesign, _ models.Guest, _ models.Event, attrs []models.EventAttribute) (cards.Published, error) {
	f.attrs = attrs
	return f.pub, f.err
}

type fixture struct {
	router  *gin.Engine
	guests  *memGuests
	event   *models.Event
	gen     *fakeGen
	designs *fakeDesigns
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	user := uuid.New()
	event := &models.Event{ID: uuid.New(), UserID: user, Name: "Wedding"}
	f := &fixture{
		guests: &memGuests{
			guests:   map[uuid.UUID]*models.Guest{},
			owners:   map[uuid.UUID]uuid.UUID{event.ID: user},
			cardURLs: map[uuid.UUID]string{},
		},
		event:   event,
		gen:     &fakeGen{},
		designs: &fakeDesigns{},
	}
	h := NewHandler(f.guests, memEvents{event.ID: event}, f.designs, f.gen, nil)
	h.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(auth.ContextUserID, user); c.Next() })
	r.GET("/events/:id/guests", h.List)
	r.POST("/events/:id/guests", h.Create)
	r.GET("/guests/:id", h.Get)
	r.PATCH("/guests/:id", h.Update)
	r.PATCH("/guests/:id/rsvp", h.UpdateRSVP)
	r.DELETE("/guests/:id", h.Delete)
	r.POST("/guests/:id/card", h.GenerateCard)
	f.router = r
	return f
}

func (f *fixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) addGuest(t *testing.T) *models.Guest {
	t.Helper()
	g := &models.Guest{EventID: f.event.ID, Name: "Amina", Phone: "+255712345678", RSVPStatus: models.RSVPPending}
	require.NoError(t, f.guests.Create(context.Background(), g))
	return g
}

func TestCreateGuestDefaults(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/events/"+f.event.ID.String()+"/guests", map[string]interface{}{"name": "Amina", "phone": " +255712345678 "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.Len(t, f.guests.guests, 1)
	for _, g := range f.guests.guests {
		assert.Equal(t, "+255712345678", g.Phone)
		assert.Equal(t, models.RSVPPending, g.RSVPStatus)
		assert.Equal(t, models.DeliveryNotSent, g.DeliveryStatus)
		assert.Equal(t, 1, g.CardCount)
		assert.Nil(t, g.RespondedAt)
	}

	w = f.do(http.MethodPost, "/events/"+f.event.ID.String()+"/guests", map[string]interface{}{"name": "B", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/events/"+uuid.NewString()+"/guests", map[string]interface{}{"name": "C"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListGuestsPassesFilters(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/events/"+f.event.ID.String()+"/guests?status=accepted&q=ami", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.guests.filters, 1)
	assert.Equal(t, Filter{RSVPStatus: models.RSVPAccepted, Query: "ami"}, f.guests.filters[0])

	w = f.do(http.MethodGet, "/events/"+f.event.ID.String()+"/guests?status=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateRSVP(t *testing.T) {
	f := newFixture(t)
	g := f.addGuest(t)

	w := f.do(http.MethodPatch, "/guests/"+g.ID.String()+"/rsvp", map[string]string{"rsvp_status": "accepted"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.RSVPAccepted, f.guests.guests[g.ID].RSVPStatus)

	w = f.do(http.MethodPatch, "/guests/"+g.ID.String()+"/rsvp", map[string]string{"rsvp_status": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateCard(t *testing.T) {
	t.Run("stored card is saved on the guest", func(t *testing.T) {
		f := newFixture(t)
		g := f.addGuest(t)
		f.designs.def = &models.CardDesign{ID: uuid.New(), CanvasWidth: 600, CanvasHeight: 800}
		f.gen.pub = cards.Published{Kind: cards.KindStored, Source: "https://cdn.example.com/cards/x.png"}

		w := f.do(http.MethodPost, "/guests/"+g.ID.String()+"/card", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "https://cdn.example.com/cards/x.png", f.guests.cardURLs[g.ID])
		assert.Contains(t, w.Body.String(), `"stored":true`)
		assert.Len(t, f.gen.attrs, 1)
	})

	t.Run("inlined card is returned but not saved", func(t *testing.T) {
		f := newFixture(t)
		g := f.addGuest(t)
		f.designs.def = &models.CardDesign{ID: uuid.New(), CanvasWidth: 600, CanvasHeight: 800}
		f.gen.pub = cards.Published{Kind: cards.KindInlined, Source: "data:image/png;base64,AAAA"}

		w := f.do(http.MethodPost, "/guests/"+g.ID.String()+"/card", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, f.guests.cardURLs)
		assert.Contains(t, w.Body.String(), `"kind":"inlined"`)
	})

	t.Run("no design", func(t *testing.T) {
		f := newFixture(t)
		g := f.addGuest(t)
		w := f.do(http.MethodPost, "/guests/"+g.ID.String()+"/card", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("render failure", func(t *testing.T) {
		f := newFixture(t)
		g := f.addGuest(t)
		f.designs.def = &models.CardDesign{ID: uuid.New()}
		f.gen.err = errors.New("invalid canvas size 0x0")
		w := f.do(http.MethodPost, "/guests/"+g.ID.String()+"/card", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestDeleteGuestOfOtherUser(t *testing.T) {
	f := newFixture(t)
	g := &models.Guest{EventID: uuid.New(), Name: "Stranger"}
	require.NoError(t, f.guests.Create(context.Background(), g))

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/guests/"+g.ID.String(), nil).Code)
	assert.Contains(t, f.guests.guests, g.ID)
}
