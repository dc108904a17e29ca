package messageconfigs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/database"
)

const templateColumns = `id, user_id, name, body, purpose, created_at, updated_at`

// Repository handles per-event channel configuration and SMS templates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a message configuration repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetWhatsApp returns the event's WhatsApp template configuration.
func (r *Repository) GetWhatsApp(ctx context.Context, eventID uuid.UUID) (*models.MessageTemplateConfig, error) {
	const q = `SELECT id, event_id, channel, template_name, template_language, variable_mapping, created_at, updated_at
		FROM event_message_configurations WHERE event_id = $1 AND channel = $2`
	var m models.MessageTemplateConfig
	err := r.pool.QueryRow(ctx, q, eventID, models.ChannelWhatsApp).
		Scan(&m.ID, &m.EventID, &m.Channel, &m.TemplateName, &m.TemplateLanguage, &m.VariableMapping, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err)
	}
	return &m, nil
}

// UpsertWhatsApp creates or replaces the event's WhatsApp configuration.
// The mapping column is JSON, not JSONB, so its key order survives the round trip.
// A nil mapping is stored as NULL, which is distinct from an empty object.
func (r *Repository) UpsertWhatsApp(ctx context.Context, m *models.MessageTemplateConfig) error {
	var raw any
	if m.VariableMapping != nil {
		b, err := m.VariableMapping.MarshalJSON()
		if err != nil {
			return err
		}
		raw = string(b)
	}
	const q = `INSERT INTO event_message_configurations (event_id, channel, template_name, template_language, variable_mapping)
		VALUES ($1, $2, $3, $4, $5::json)
		ON CONFLICT (event_id, channel) DO UPDATE SET template_name = EXCLUDED.template_name,
			template_language = EXCLUDED.template_language, variable_mapping = EXCLUDED.variable_mapping, updated_at = NOW()
		RETURNING id, created_at, updated_at`
	m.Channel = models.ChannelWhatsApp
	return database.MapError(r.pool.QueryRow(ctx, q, m.EventID, m.Channel, m.TemplateName, m.TemplateLanguage, raw).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt))
}

// GetSMS returns the event's SMS configuration for purpose with its template attached.
func (r *Repository) GetSMS(ctx context.Context, eventID uuid.UUID, purpose models.SMSPurpose) (*models.EventSMSConfig, error) {
	const q = `SELECT c.id, c.event_id, c.purpose, c.sms_template_id, c.created_at, c.updated_at,
			t.id, t.user_id, t.name, t.body, t.purpose, t.created_at, t.updated_at
		FROM event_sms_configurations c JOIN sms_templates t ON t.id = c.sms_template_id
		WHERE c.event_id = $1 AND c.purpose = $2`
	var c models.EventSMSConfig
	var t models.SMSTemplate
	err := r.pool.QueryRow(ctx, q, eventID, purpose).Scan(&c.ID, &c.EventID, &c.Purpose, &c.SMSTemplateID, &c.CreatedAt, &c.UpdatedAt,
		&t.ID, &t.UserID, &t.Name, &t.Body, &t.Purpose, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err)
	}
	c.Template = &t
	return &c, nil
}

// UpsertSMS points the event's purpose at an SMS template.
func (r *Repository) UpsertSMS(ctx context.Context, c *models.EventSMSConfig) error {
	const q = `INSERT INTO event_sms_configurations (event_id, purpose, sms_template_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, purpose) DO UPDATE SET sms_template_id = EXCLUDED.sms_template_id, updated_at = NOW()
		RETURNING id, created_at, updated_at`
	return database.MapError(r.pool.QueryRow(ctx, q, c.EventID, c.Purpose, c.SMSTemplateID).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt))
}

func scanTemplate(row pgx.Row) (*models.SMSTemplate, error) {
	var t models.SMSTemplate
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Body, &t.Purpose, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, database.MapError(err)
	}
	return &t, nil
}

// ListTemplates returns a user's SMS templates, newest first.
func (r *Repository) ListTemplates(ctx context.Context, userID uuid.UUID) ([]models.SMSTemplate, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+templateColumns+` FROM sms_templates WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.SMSTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// GetTemplateOwned returns an SMS template only when userID owns it.
func (r *Repository) GetTemplateOwned(ctx context.Context, id, userID uuid.UUID) (*models.SMSTemplate, error) {
	return scanTemplate(r.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM sms_templates WHERE id = $1 AND user_id = $2`, id, userID))
}

// CreateTemplate inserts an SMS template.
func (r *Repository) CreateTemplate(ctx context.Context, t *models.SMSTemplate) error {
	const q = `INSERT INTO sms_templates (user_id, name, body, purpose) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	return database.MapError(r.pool.QueryRow(ctx, q, t.UserID, t.Name, t.Body, t.Purpose).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt))
}

// UpdateTemplate writes an SMS template's fields.
func (r *Repository) UpdateTemplate(ctx context.Context, t *models.SMSTemplate) error {
	const q = `UPDATE sms_templates SET name = $1, body = $2, purpose = $3, updated_at = NOW() WHERE id = $4 RETURNING updated_at`
	return database.MapError(r.pool.QueryRow(ctx, q, t.Name, t.Body, t.Purpose, t.ID).Scan(&t.UpdatedAt))
}

// DeleteTemplate removes an SMS template. Event configurations using it cascade.
func (r *Repository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sms_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}
