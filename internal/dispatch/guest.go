package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nialike/backend/internal/cards"
	"github.com/nialike/backend/internal/channels"
	"github.com/nialike/backend/internal/messaging"
	"github.com/nialike/backend/internal/models"
)

// processGuest runs the SMS then the WhatsApp branch for one guest and records the outcome.
func (s *Service) processGuest(ctx context.Context, b *batch, guest models.Guest) []Result {
	var out []Result
	if b.req.SMS {
		out = append(out, s.sendSMS(ctx, b, guest))
	}
	if b.req.WhatsApp {
		out = append(out, s.sendWhatsApp(ctx, b, &guest))
	}
	if anySuccess(out) {
		s.markSent(ctx, b, guest)
	}
	for _, r := range out {
		s.logDelivery(ctx, b, guest, r)
	}
	return out
}

func (s *Service) sendSMS(ctx context.Context, b *batch, guest models.Guest) Result {
	res := Result{GuestID: guest.ID, GuestName: guest.Name, Channel: models.ChannelSMS}
	if b.sms == nil || b.sms.Template == nil {
		res.Message = fmt.Sprintf("SMS failed for %s: No SMS template configured", guest.Name)
		return res
	}
	if guest.Phone == "" {
		res.Message = fmt.Sprintf("SMS failed for %s: No phone number", guest.Name)
		return res
	}
	body := messaging.RenderSMS(b.sms.Template.Body, guest, b.event, b.attrs, guest.CardURL)

	sendCtx, cancel := context.WithTimeout(ctx, s.timeouts.SendTimeout)
	err := s.deps.SMS.Send(sendCtx, b.cfg.SMSWebhookURL, b.cfg.SMSAPIKey, channels.SMSMessage{
		From:      b.cfg.SMSSenderID,
		To:        guest.Phone,
		Text:      body,
		Reference: guest.ID.String(),
	})
	cancel()
	if err != nil {
		s.logger.Warn("sms send failed", zap.String("guest_id", guest.ID.String()), zap.Error(err))
		res.Message = fmt.Sprintf("SMS failed for %s: %s", guest.Name, sendError(err, s.timeouts.SendTimeout.String()))
		return res
	}
	res.Success = true
	res.Message = fmt.Sprintf("SMS sent to %s", guest.Name)
	return res
}

func (s *Service) sendWhatsApp(ctx context.Context, b *batch, guest *models.Guest) Result {
	res := Result{GuestID: guest.ID, GuestName: guest.Name, Channel: models.ChannelWhatsApp}
	if b.wa == nil {
		res.Message = fmt.Sprintf("WhatsApp failed for %s: No template configuration found", guest.Name)
		return res
	}
	phone := channels.FormatPhone(guest.Phone)
	if phone == "" {
		res.Message = fmt.Sprintf("WhatsApp failed for %s: No phone number", guest.Name)
		return res
	}

	cardURL := guest.CardURL
	if cardURL == "" {
		cardURL = s.generateCard(ctx, b, guest)
	}
	params := messaging.MapParameters(*b.wa, *guest, b.event, b.attrs, cardURL)
	components := messaging.BuildComponents(params, b.wa.VariableMapping != nil, cardURL)

	sendCtx, cancel := context.WithTimeout(ctx, s.timeouts.SendTimeout)
	_, err := s.deps.WhatsApp.SendTemplate(sendCtx, b.waCreds, channels.TemplateMessage{
		To:         phone,
		Name:       b.wa.TemplateName,
		Language:   b.wa.TemplateLanguage,
		Components: components,
	})
	cancel()
	if err != nil {
		s.logger.Warn("whatsapp send failed", zap.String("guest_id", guest.ID.String()), zap.Error(err))
		if errors.Is(err, channels.ErrParameterMismatch) {
			res.Message = fmt.Sprintf("WhatsApp failed for %s: Template parameter mismatch. Sent %d parameters; please check your template configuration.", guest.Name, len(params))
			return res
		}
		res.Message = fmt.Sprintf("WhatsApp failed for %s: %s", guest.Name, sendError(err, s.timeouts.SendTimeout.String()))
		return res
	}
	res.Success = true
	res.Message = fmt.Sprintf("WhatsApp sent to %s (%s)", guest.Name, phone)
	if cardURL != "" {
		res.Message += " with card image"
	}
	return res
}

// generateCard renders the event's default design for guest. A stored image is remembered
// on the guest; failures leave the message without a card.
func (s *Service) generateCard(ctx context.Context, b *batch, guest *models.Guest) string {
	if b.design == nil || s.deps.Cards == nil {
		return ""
	}
	genCtx, cancel := context.WithTimeout(ctx, s.timeouts.UpdateTimeout)
	pub, err := s.deps.Cards.Generate(genCtx, *b.design, *guest, b.event, b.attrs)
	cancel()
	if err != nil {
		s.logger.Warn("card generation failed", zap.String("guest_id", guest.ID.String()), zap.Error(err))
		return ""
	}
	if pub.Kind == cards.KindStored {
		updCtx, cancel := context.WithTimeout(ctx, s.timeouts.UpdateTimeout)
		if err := s.deps.Guests.SetCardURL(updCtx, guest.ID, pub.Source); err != nil {
			s.logger.Warn("store card url failed", zap.String("guest_id", guest.ID.String()), zap.Error(err))
		} else {
			guest.CardURL = pub.Source
		}
		cancel()
	}
	return pub.Source
}

func (s *Service) markSent(ctx context.Context, b *batch, guest models.Guest) {
	updCtx, cancel := context.WithTimeout(ctx, s.timeouts.UpdateTimeout)
	defer cancel()
	if err := s.deps.Guests.MarkSent(updCtx, guest.ID, s.now().UTC()); err != nil {
		s.logger.Error("mark guest sent failed", zap.String("guest_id", guest.ID.String()), zap.Error(err))
	}
	if err := s.deps.Events.IncrementInvitationsSent(updCtx, b.event.ID, 1); err != nil {
		s.logger.Error("increment invitations_sent failed", zap.String("event_id", b.event.ID.String()), zap.Error(err))
	}
}

func (s *Service) logDelivery(ctx context.Context, b *batch, guest models.Guest, r Result) {
	if s.deps.Deliveries == nil {
		return
	}
	guestID := guest.ID
	entry := &models.DeliveryLog{
		EventID:   b.event.ID,
		GuestID:   &guestID,
		RunID:     b.req.RunID,
		Channel:   r.Channel,
		Recipient: guest.Phone,
		Status:    models.DeliveryLogStatusSent,
		Message:   r.Message,
	}
	if !r.Success {
		entry.Status = models.DeliveryLogStatusFailed
		entry.ErrorMessage = r.Message
	}
	updCtx, cancel := context.WithTimeout(ctx, s.timeouts.UpdateTimeout)
	defer cancel()
	if err := s.deps.Deliveries.Insert(updCtx, entry); err != nil {
		s.logger.Warn("delivery log insert failed", zap.String("guest_id", guest.ID.String()), zap.Error(err))
	}
}

// sendError turns a send error into a user-facing reason.
func sendError(err error, timeout string) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out after " + timeout
	}
	return err.Error()
}
