package settings

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nialike/backend/internal/models"
	"github.com/nialike/backend/pkg/database"
)

// Repository handles user_configurations persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user configuration repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByUser returns the user's stored configuration or ErrNotFound.
func (r *Repository) GetByUser(ctx context.Context, userID uuid.UUID) (*models.UserConfiguration, error) {
	const q = `SELECT id, user_id, whatsapp_api_key, whatsapp_phone_number, whatsapp_phone_number_id, whatsapp_business_account_id,
			whatsapp_enabled, sms_api_key, sms_provider, sms_phone_number, sms_sender_id, sms_enabled,
			email_notifications, push_notifications, use_custom_config, created_at, updated_at
		FROM user_configurations WHERE user_id = $1`
	var u models.UserConfiguration
	err := r.pool.QueryRow(ctx, q, userID).Scan(&u.ID, &u.UserID, &u.WhatsAppAPIKey, &u.WhatsAppPhoneNumber, &u.WhatsAppPhoneNumberID,
		&u.WhatsAppBusinessAccountID, &u.WhatsAppEnabled, &u.SMSAPIKey, &u.SMSProvider, &u.SMSPhoneNumber, &u.SMSSenderID,
		&u.SMSEnabled, &u.EmailNotifications, &u.PushNotifications, &u.UseCustomConfig, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err)
	}
	return &u, nil
}

// Upsert creates or replaces the user's configuration.
func (r *Repository) Upsert(ctx context.Context, u *models.UserConfiguration) error {
	const q = `INSERT INTO user_configurations (user_id, whatsapp_api_key, whatsapp_phone_number, whatsapp_phone_number_id,
			whatsapp_business_account_id, whatsapp_enabled, sms_api_key, sms_provider, sms_phone_number, sms_sender_id, sms_enabled,
			email_notifications, push_notifications, use_custom_config)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id) DO UPDATE SET
			whatsapp_api_key = EXCLUDED.whatsapp_api_key,
			whatsapp_phone_number = EXCLUDED.whatsapp_phone_number,
			whatsapp_phone_number_id = EXCLUDED.whatsapp_phone_number_id,
			whatsapp_business_account_id = EXCLUDED.whatsapp_business_account_id,
			whatsapp_enabled = EXCLUDED.whatsapp_enabled,
			sms_api_key = EXCLUDED.sms_api_key,
			sms_provider = EXCLUDED.sms_provider,
			sms_phone_number = EXCLUDED.sms_phone_number,
			sms_sender_id = EXCLUDED.sms_sender_id,
			sms_enabled = EXCLUDED.sms_enabled,
			email_notifications = EXCLUDED.email_notifications,
			push_notifications = EXCLUDED.push_notifications,
			use_custom_config = EXCLUDED.use_custom_config,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, u.UserID, u.WhatsAppAPIKey, u.WhatsAppPhoneNumber, u.WhatsAppPhoneNumberID,
		u.WhatsAppBusinessAccountID, u.WhatsAppEnabled, u.SMSAPIKey, u.SMSProvider, u.SMSPhoneNumber, u.SMSSenderID, u.SMSEnabled,
		u.EmailNotifications, u.PushNotifications, u.UseCustomConfig).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return database.MapError(err)
}
