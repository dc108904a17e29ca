// Package dispatch sends invitation batches over WhatsApp and SMS, one guest at a time.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nialike/backend/config"
	"github.com/nialike/backend/internal/cards"
	"github.com/nialike/backend/internal/channels"
	"github.com/nialike/backend/internal/messaging"
	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/database"
)

var (
	// ErrConfig marks a messaging configuration problem that stops a batch before any send.
	ErrConfig = errors.New("messaging configuration")
	// ErrInvalidRequest marks a malformed dispatch request.
	ErrInvalidRequest = errors.New("invalid dispatch request")
)

// EventStore reads events and keeps their counters.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListAttributes(ctx context.Context, eventID uuid.UUID) ([]models.EventAttribute, error)
	IncrementInvitationsSent(ctx context.Context, eventID uuid.UUID, n int) error
}

// GuestStore reads guests and records delivery.
type GuestStore interface {
	ListByIDs(ctx context.Context, eventID uuid.UUID, ids []uuid.UUID) ([]models.Guest, error)
	MarkSent(ctx context.Context, guestID uuid.UUID, at time.Time) error
	SetCardURL(ctx context.Context, guestID uuid.UUID, url string) error
}

// DesignStore finds the card design used for generated invitations.
type DesignStore interface {
	DefaultForEvent(ctx context.Context, event models.Event) (*models.CardDesign, error)
}

// MessageConfigStore reads per-event channel configuration.
type MessageConfigStore interface {
	GetWhatsApp(ctx context.Context, eventID uuid.UUID) (*models.MessageTemplateConfig, error)
	GetSMS(ctx context.Context, eventID uuid.UUID, purpose models.SMSPurpose) (*models.EventSMSConfig, error)
}

// SettingsStore reads a user's stored messaging configuration.
type SettingsStore interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.UserConfiguration, error)
}

// DeliveryLogStore appends send attempts.
type DeliveryLogStore interface {
	Insert(ctx context.Context, log *models.DeliveryLog) error
}

// WhatsAppSender is the Cloud API surface dispatch uses.
type WhatsAppSender interface {
	SendTemplate(ctx context.Context, creds channels.Credentials, msg channels.TemplateMessage) (string, error)
	PhoneNumberStatus(ctx context.Context, creds channels.Credentials) (channels.PhoneStatus, error)
}

// SMSSender posts a message to the SMS gateway.
type SMSSender interface {
	Send(ctx context.Context, endpoint, apiKey string, msg channels.SMSMessage) error
}

// CardGenerator renders and publishes a guest's card.
type CardGenerator interface {
	Generate(ctx context.Context, design models.CardDesign, guest models.Guest, event models.Event, attrs []models.EventAttribute) (cards.Published, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Events     EventStore
	Guests     GuestStore
	Designs    DesignStore
	Configs    MessageConfigStore
	Settings   SettingsStore
	Deliveries DeliveryLogStore
	WhatsApp   WhatsAppSender
	SMS        SMSSender
	Cards      CardGenerator
	Resolver   *messaging.Resolver
}

// Request selects the guests and channels of one batch.
type Request struct {
	RunID    string
	UserID   uuid.UUID
	EventID  uuid.UUID
	GuestIDs []uuid.UUID
	WhatsApp bool
	SMS      bool
}

// Result is the outcome of one guest on one channel.
type Result struct {
	GuestID   uuid.UUID      `json:"guest_id"`
	GuestName string         `json:"guest_name"`
	Channel   models.Channel `json:"channel,omitempty"`
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
}

// Progress is reported after every guest.
type Progress struct {
	RunID        string    `json:"run_id"`
	EventID      uuid.UUID `json:"event_id"`
	Done         int       `json:"done"`
	Total        int       `json:"total"`
	CurrentGuest string    `json:"current_guest"`
	Results      []Result  `json:"results"`
}

// ProgressFunc receives progress snapshots. It must not retain or modify Results.
type ProgressFunc func(Progress)

// Summary is the final report of a batch.
type Summary struct {
	RunID      string    `json:"run_id"`
	EventID    uuid.UUID `json:"event_id"`
	Total      int       `json:"total"`
	Processed  int       `json:"processed"`
	GuestsSent int       `json:"guests_sent"`
	Failures   int       `json:"failures"`
	Cancelled  bool      `json:"cancelled"`
	Results    []Result  `json:"results"`
}

// Service runs invitation batches.
type Service struct {
	deps     Deps
	timeouts config.DispatchConfig
	now      func() time.Time
	logger   *zap.Logger
}

// NewService builds a dispatch service.
func NewService(deps Deps, timeouts config.DispatchConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeouts.ConfigTimeout <= 0 {
		timeouts.ConfigTimeout = 5 * time.Second
	}
	if timeouts.SendTimeout <= 0 {
		timeouts.SendTimeout = 15 * time.Second
	}
	if timeouts.UpdateTimeout <= 0 {
		timeouts.UpdateTimeout = 30 * time.Second
	}
	return &Service{deps: deps, timeouts: timeouts, now: time.Now, logger: logger}
}

// batch is the per-run context shared by every guest.
type batch struct {
	req     Request
	event   models.Event
	attrs   []models.EventAttribute
	cfg     models.EffectiveConfig
	wa      *models.MessageTemplateConfig
	sms     *models.EventSMSConfig
	design  *models.CardDesign
	waCreds channels.Credentials
}

// Preflight checks the request and the user's effective configuration without sending.
func (s *Service) Preflight(ctx context.Context, req Request) (models.EffectiveConfig, error) {
	if len(req.GuestIDs) == 0 {
		return models.EffectiveConfig{}, fmt.Errorf("%w: no guests selected", ErrInvalidRequest)
	}
	if !req.WhatsApp && !req.SMS {
		return models.EffectiveConfig{}, fmt.Errorf("%w: select at least one channel", ErrInvalidRequest)
	}
	uc, err := s.userConfig(ctx, req.UserID)
	if err != nil {
		return models.EffectiveConfig{}, err
	}
	cfg := s.deps.Resolver.Resolve(uc)

	if req.WhatsApp {
		switch {
		case !cfg.WhatsAppEnabled:
			return cfg, fmt.Errorf("%w: WhatsApp is not enabled. Please enable it in Settings → Configurations", ErrConfig)
		case cfg.WhatsAppAPIKey == "":
			return cfg, fmt.Errorf("%w: WhatsApp API key is missing", ErrConfig)
		case cfg.WhatsAppPhoneNumberID == "":
			return cfg, fmt.Errorf("%w: WhatsApp phone number ID is missing", ErrConfig)
		}
		statusCtx, cancel := context.WithTimeout(ctx, s.timeouts.ConfigTimeout)
		status, err := s.deps.WhatsApp.PhoneNumberStatus(statusCtx, channels.Credentials{
			APIKey:        cfg.WhatsAppAPIKey,
			PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		})
		cancel()
		if err != nil {
			return cfg, fmt.Errorf("%w: WhatsApp configuration error: %s", ErrConfig, err.Error())
		}
		if !status.Verified() {
			return cfg, fmt.Errorf("%w: WhatsApp phone number is not verified", ErrConfig)
		}
	}
	if req.SMS {
		switch {
		case !cfg.SMSEnabled:
			return cfg, fmt.Errorf("%w: SMS is not enabled. Please enable it in Settings → Configurations", ErrConfig)
		case cfg.SMSAPIKey == "":
			return cfg, fmt.Errorf("%w: SMS API key is missing", ErrConfig)
		}
	}
	return cfg, nil
}

// Run sends invitations to the requested guests in order. Configuration problems abort
// before the first guest; every later failure is recorded against its guest and the batch
// continues. ctx is checked between guests only: a guest in flight runs on a context
// detached from ctx's cancellation and completes under its own per-step deadlines.
func (s *Service) Run(ctx context.Context, req Request, progress ProgressFunc) (Summary, error) {
	if progress == nil {
		progress = func(Progress) {}
	}
	b, err := s.prepare(ctx, req)
	if err != nil {
		return Summary{}, err
	}
	guests, err := s.loadGuests(ctx, req)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{RunID: req.RunID, EventID: req.EventID, Total: len(req.GuestIDs)}
	guestCtx := context.WithoutCancel(ctx)
	var results []Result
	for i, id := range req.GuestIDs {
		if ctx.Err() != nil {
			sum.Cancelled = true
			break
		}
		var step []Result
		name := ""
		if guest, ok := guests[id]; ok {
			name = guest.Name
			step = s.processGuest(guestCtx, b, guest)
		} else {
			step = []Result{{GuestID: id, Message: "Guest not found"}}
		}
		results = appendResults(results, step)
		sum.Processed = i + 1
		if anySuccess(step) {
			sum.GuestsSent++
		}
		progress(Progress{
			RunID:        req.RunID,
			EventID:      req.EventID,
			Done:         i + 1,
			Total:        len(req.GuestIDs),
			CurrentGuest: name,
			Results:      results,
		})
	}
	for _, r := range results {
		if !r.Success {
			sum.Failures++
		}
	}
	sum.Results = results
	s.logger.Info("dispatch finished",
		zap.String("run_id", req.RunID),
		zap.String("event_id", req.EventID.String()),
		zap.Int("processed", sum.Processed),
		zap.Int("guests_sent", sum.GuestsSent),
		zap.Int("failures", sum.Failures),
		zap.Bool("cancelled", sum.Cancelled))
	return sum, nil
}

// appendResults returns a new slice so snapshots handed to progress never change.
func appendResults(prev, step []Result) []Result {
	next := make([]Result, 0, len(prev)+len(step))
	next = append(next, prev...)
	return append(next, step...)
}

func anySuccess(rs []Result) bool {
	for _, r := range rs {
		if r.Success {
			return true
		}
	}
	return false
}

func (s *Service) prepare(ctx context.Context, req Request) (*batch, error) {
	cfg, err := s.Preflight(ctx, req)
	if err != nil {
		return nil, err
	}
	loadCtx, cancel := context.WithTimeout(ctx, s.timeouts.UpdateTimeout)
	defer cancel()

	event, err := s.deps.Events.GetByID(loadCtx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if event.UserID != req.UserID {
		return nil, fmt.Errorf("load event: %w", database.ErrNotFound)
	}
	attrs, err := s.deps.Events.ListAttributes(loadCtx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event attributes: %w", err)
	}
	b := &batch{
		req:   req,
		event: *event,
		attrs: attrs,
		cfg:   cfg,
		waCreds: channels.Credentials{
			APIKey:            cfg.WhatsAppAPIKey,
			PhoneNumberID:     cfg.WhatsAppPhoneNumberID,
			BusinessAccountID: cfg.WhatsAppBusinessAccountID,
		},
	}
	if req.SMS {
		b.sms, err = optional(s.deps.Configs.GetSMS(loadCtx, req.EventID, models.SMSPurposeInvitation))
		if err != nil {
			return nil, fmt.Errorf("load sms configuration: %w", err)
		}
	}
	if req.WhatsApp {
		b.wa, err = optional(s.deps.Configs.GetWhatsApp(loadCtx, req.EventID))
		if err != nil {
			return nil, fmt.Errorf("load whatsapp configuration: %w", err)
		}
		b.design, err = optional(s.deps.Designs.DefaultForEvent(loadCtx, *event))
		if err != nil {
			return nil, fmt.Errorf("load card design: %w", err)
		}
	}
	return b, nil
}

func (s *Service) loadGuests(ctx context.Context, req Request) (map[uuid.UUID]models.Guest, error) {
	loadCtx, cancel := context.WithTimeout(ctx, s.timeouts.UpdateTimeout)
	defer cancel()
	list, err := s.deps.Guests.ListByIDs(loadCtx, req.EventID, req.GuestIDs)
	if err != nil {
		return nil, fmt.Errorf("load guests: %w", err)
	}
	byID := make(map[uuid.UUID]models.Guest, len(list))
	for _, g := range list {
		byID[g.ID] = g
	}
	return byID, nil
}

func (s *Service) userConfig(ctx context.Context, userID uuid.UUID) (*models.UserConfiguration, error) {
	loadCtx, cancel := context.WithTimeout(ctx, s.timeouts.ConfigTimeout)
	defer cancel()
	uc, err := optional(s.deps.Settings.GetByUser(loadCtx, userID))
	if err != nil {
		return nil, fmt.Errorf("load user configuration: %w", err)
	}
	return uc, nil
}

// optional turns ErrNotFound into a nil result.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
