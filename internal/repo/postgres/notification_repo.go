package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// CreateDefaultSettingsTx seeds a new account's delivery settings inside
// the registration transaction.
func (r *NotificationRepo) CreateDefaultSettingsTx(ctx context.Context, tx pgx.Tx, userID string) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO notification_settings (user_id, site_notifications, telegram_notifications)
VALUES ($1, TRUE, FALSE)
`, userID); err != nil {
		return fmt.Errorf("insert default notification settings: %w", err)
	}

	return nil
}

func (r *NotificationRepo) Create(ctx context.Context, notification model.Notification) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO notifications (id, user_id, type, message, is_read, created_at)
VALUES ($1, $2, $3, $4, FALSE, NOW())
`, notification.ID, notification.UserID, notification.Type, notification.Message); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM notifications
WHERE user_id = $1 AND is_read = FALSE
`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	return count, nil
}

// ListByUser returns the user's notifications newest first and marks the
// unread ones as read.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string) ([]model.Notification, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, type, message, is_read, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate notifications: %w", rows.Err())
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE notifications
SET is_read = TRUE
WHERE user_id = $1 AND is_read = FALSE
`, userID); err != nil {
		return nil, fmt.Errorf("mark notifications read: %w", err)
	}

	return notifications, nil
}

func (r *NotificationRepo) GetSettings(ctx context.Context, userID string) (model.NotificationSettings, error) {
	if r.pool == nil {
		return model.NotificationSettings{}, fmt.Errorf("postgres pool is nil")
	}

	settings := model.NotificationSettings{
		UserID:            userID,
		SiteNotifications: true,
	}
	err := r.pool.QueryRow(ctx, `
SELECT site_notifications, telegram_notifications
FROM notification_settings
WHERE user_id = $1
`, userID).Scan(&settings.SiteNotifications, &settings.TelegramNotifications)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Missing row means the defaults were never changed.
			return settings, nil
		}
		return model.NotificationSettings{}, fmt.Errorf("get notification settings: %w", err)
	}

	return settings, nil
}

func (r *NotificationRepo) SaveSettings(ctx context.Context, settings model.NotificationSettings) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO notification_settings (user_id, site_notifications, telegram_notifications)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET
	site_notifications = EXCLUDED.site_notifications,
	telegram_notifications = EXCLUDED.telegram_notifications
`, settings.UserID, settings.SiteNotifications, settings.TelegramNotifications); err != nil {
		return fmt.Errorf("save notification settings: %w", err)
	}

	return nil
}
