package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nialike/backend/internal/cards"
	"github.com/nialike/backend/internal/channels"
	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/database"
)

type fakeEvents struct {
	events map[uuid.UUID]*models.Event
	attrs  []models.EventAttribute
	sent   map[uuid.UUID]int
}

func (f *fakeEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEvents) ListAttributes(context.Context, uuid.UUID) ([]models.EventAttribute, error) {
	return f.attrs, nil
}

func (f *fakeEvents) IncrementInvitationsSent(_ context.Context, id uuid.UUID, n int) error {
	f.sent[id] += n
	return nil
}

type fakeGuests struct {
	guests   []models.Guest
	sentAt   map[uuid.UUID]time.Time
	cardURLs map[uuid.UUID]string
}

func (f *fakeGuests) ListByIDs(_ context.Context, eventID uuid.UUID, ids []uuid.UUID) ([]models.Guest, error) {
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Guest
	for _, g := range f.guests {
		if g.EventID == eventID && want[g.ID] {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGuests) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.sentAt[id] = at
	return nil
}

func (f *fakeGuests) SetCardURL(_ context.Context, id uuid.UUID, url string) error {
	f.cardURLs[id] = url
	return nil
}

type fakeDesigns struct{ design *models.CardDesign }

func (f fakeDesigns) DefaultForEvent(context.Context, models.Event) (*models.CardDesign, error) {
	if f.design == nil {
		return nil, database.ErrNotFound
	}
	return f.design, nil
}

type fakeConfigs struct {
	wa  *models.MessageTemplateConfig
	sms *models.EventSMSConfig
}

func (f fakeConfigs) GetWhatsApp(context.Context, uuid.UUID) (*models.MessageTemplateConfig, error) {
	if f.wa == nil {
		return nil, database.ErrNotFound
	}
	return f.wa, nil
}

func (f fakeConfigs) GetSMS(context.Context, uuid.UUID, models.SMSPurpose) (*models.EventSMSConfig, error) {
	if f.sms == nil {
		return nil, database.ErrNotFound
	}
	return f.sms, nil
}

type fakeSettings struct{ uc *models.UserConfiguration }

func (f fakeSettings) GetByUser(context.Context, uuid.UUID) (*models.UserConfiguration, error) {
	if f.uc == nil {
		return nil, database.ErrNotFound
	}
	return f.uc, nil
}

type fakeDeliveries struct {
	mu   sync.Mutex
	logs []models.DeliveryLog
}

func (f *fakeDeliveries) Insert(ctx context.Context, l *models.DeliveryLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *l)
	return nil
}

type fakeWhatsApp struct {
	status    channels.PhoneStatus
	statusErr error
	failFor   map[string]error
	sent      []channels.TemplateMessage
	onSend    func()
}

func (f *fakeWhatsApp) SendTemplate(ctx context.Context, _ channels.Credentials, msg channels.TemplateMessage) (string, error) {
	if f.onSend != nil {
		f.onSend()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := f.failFor[msg.To]; err != nil {
		return "", err
	}
	f.sent = append(f.sent, msg)
	return "wamid", nil
}

func (f *fakeWhatsApp) PhoneNumberStatus(context.Context, channels.Credentials) (channels.PhoneStatus, error) {
	return f.status, f.statusErr
}

type fakeSMS struct {
	failFor map[string]error
	sent    []channels.SMSMessage
}

func (f *fakeSMS) Send(_ context.Context, _, _ string, msg channels.SMSMessage) error {
	if err := f.failFor[msg.To]; err != nil {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeCards struct {
	pub   cards.Published
	err   error
	calls int
}

func (f *fakeCards) Generate(context.Context, models.CardDesign, models.Guest, models.Event, []models.EventAttribute) (cards.Published, error) {
	f.calls++
	return f.pub, f.err
}
