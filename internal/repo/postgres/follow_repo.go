package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
)

var (
	ErrFollowExists   = errors.New("follow already exists")
	ErrFollowNotFound = errors.New("follow not found")
)

type FollowRepo struct {
	pool *pgxpool.Pool
}

func NewFollowRepo(pool *pgxpool.Pool) *FollowRepo {
	return &FollowRepo{pool: pool}
}

func (r *FollowRepo) Create(ctx context.Context, follow model.Follow) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO follows (id, follower_id, following_id, created_at)
VALUES ($1, $2, $3, NOW())
`, follow.ID, follow.FollowerID, follow.FollowingID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrFollowExists
		}
		return fmt.Errorf("insert follow: %w", err)
	}

	return nil
}

func (r *FollowRepo) Delete(ctx context.Context, followerID, followingID string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM follows
WHERE follower_id = $1 AND following_id = $2
`, followerID, followingID)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFollowNotFound
	}

	return nil
}

func (r *FollowRepo) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM follows
	WHERE follower_id = $1 AND following_id = $2
)
`, followerID, followingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check follow exists: %w", err)
	}

	return exists, nil
}

func (r *FollowRepo) CountFollowers(ctx context.Context, userID string) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM follows WHERE following_id = $1
`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count followers: %w", err)
	}

	return count, nil
}

// ListFollowers returns users who follow userID, newest first.
func (r *FollowRepo) ListFollowers(ctx context.Context, userID string) ([]model.FollowEntry, error) {
	return r.listEntries(ctx, `
SELECT
	f.id, f.follower_id, f.following_id, f.created_at,
	u.id, u.username, COALESCE(u.display_name, ''), COALESCE(u.avatar, ''), u.is_verified
FROM follows f
JOIN users u ON u.id = f.follower_id
WHERE f.following_id = $1
ORDER BY f.created_at DESC
`, userID)
}

// ListFollowings returns users that userID follows, newest first.
func (r *FollowRepo) ListFollowings(ctx context.Context, userID string) ([]model.FollowEntry, error) {
	return r.listEntries(ctx, `
SELECT
	f.id, f.follower_id, f.following_id, f.created_at,
	u.id, u.username, COALESCE(u.display_name, ''), COALESCE(u.avatar, ''), u.is_verified
FROM follows f
JOIN users u ON u.id = f.following_id
WHERE f.follower_id = $1
ORDER BY f.created_at DESC
`, userID)
}

// ListFollowerRecipients returns follower IDs with their notification
// settings and Telegram link, for stream start fan-out.
func (r *FollowRepo) ListFollowerRecipients(ctx context.Context, userID string) ([]model.FollowerRecipient, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	u.id,
	COALESCE(u.telegram_chat_id, 0),
	COALESCE(ns.site_notifications, TRUE),
	COALESCE(ns.telegram_notifications, FALSE)
FROM follows f
JOIN users u ON u.id = f.follower_id
LEFT JOIN notification_settings ns ON ns.user_id = u.id
WHERE f.following_id = $1
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list follower recipients: %w", err)
	}
	defer rows.Close()

	var recipients []model.FollowerRecipient
	for rows.Next() {
		var rcpt model.FollowerRecipient
		if err := rows.Scan(
			&rcpt.UserID,
			&rcpt.TelegramChatID,
			&rcpt.SiteNotifications,
			&rcpt.TelegramNotifications,
		); err != nil {
			return nil, fmt.Errorf("scan follower recipient: %w", err)
		}
		recipients = append(recipients, rcpt)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate follower recipients: %w", rows.Err())
	}

	return recipients, nil
}

func (r *FollowRepo) listEntries(ctx context.Context, query, userID string) ([]model.FollowEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	defer rows.Close()

	var entries []model.FollowEntry
	for rows.Next() {
		var entry model.FollowEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.FollowerID,
			&entry.FollowingID,
			&entry.CreatedAt,
			&entry.User.ID,
			&entry.User.Username,
			&entry.User.DisplayName,
			&entry.User.Avatar,
			&entry.User.IsVerified,
		); err != nil {
			return nil, fmt.Errorf("scan follow entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate follows: %w", rows.Err())
	}

	return entries, nil
}
