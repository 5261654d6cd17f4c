package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `
id, username, email, password_hash,
COALESCE(display_name, ''), COALESCE(avatar, ''), COALESCE(bio, ''),
COALESCE(telegram_chat_id, 0), COALESCE(totp_secret, ''),
is_totp_enabled, is_email_verified, is_verified, is_deactivated,
deactivated_at, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Avatar,
		&user.Bio,
		&user.TelegramChatID,
		&user.TotpSecret,
		&user.IsTotpEnabled,
		&user.IsEmailVerified,
		&user.IsVerified,
		&user.IsDeactivated,
		&user.DeactivatedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(id) == "" {
		return model.User{}, ErrUserNotFound
	}

	return scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = $1
`, id))
}

// FindByLogin resolves a user by exact username or email match.
func (r *UserRepo) FindByLogin(ctx context.Context, login string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(login) == "" {
		return model.User{}, ErrUserNotFound
	}

	return scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE username = $1 OR email = $1
LIMIT 1
`, login))
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	return scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE email = $1
`, email))
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	return scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE username = $1
`, username))
}

func (r *UserRepo) FindByTelegramChatID(ctx context.Context, chatID int64) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if chatID == 0 {
		return model.User{}, ErrUserNotFound
	}

	return scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE telegram_chat_id = $1
`, chatID))
}

func (r *UserRepo) CreateTx(ctx context.Context, tx pgx.Tx, user model.User) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO users (
	id, username, email, password_hash, display_name,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
`, user.ID, user.Username, user.Email, user.PasswordHash, user.DisplayName); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *UserRepo) UpdateInfo(ctx context.Context, userID, username, displayName, bio string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET username = $2, display_name = $3, bio = $4, updated_at = NOW()
WHERE id = $1
`, userID, username, displayName, bio); err != nil {
		return fmt.Errorf("update user info: %w", err)
	}

	return nil
}

func (r *UserRepo) UpdateEmail(ctx context.Context, userID, email string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET email = $2, is_email_verified = FALSE, updated_at = NOW()
WHERE id = $1
`, userID, email); err != nil {
		return fmt.Errorf("update user email: %w", err)
	}

	return nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET password_hash = $2, updated_at = NOW()
WHERE id = $1
`, userID, passwordHash); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	return nil
}

func (r *UserRepo) SetEmailVerified(ctx context.Context, userID string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET is_email_verified = TRUE, updated_at = NOW()
WHERE id = $1
`, userID); err != nil {
		return fmt.Errorf("set user email verified: %w", err)
	}

	return nil
}

func (r *UserRepo) SetTotp(ctx context.Context, userID, secret string, enabled bool) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET totp_secret = NULLIF($2, ''), is_totp_enabled = $3, updated_at = NOW()
WHERE id = $1
`, userID, secret, enabled); err != nil {
		return fmt.Errorf("set user totp: %w", err)
	}

	return nil
}

// SetTelegramChatID links a Telegram chat to the user; chatID 0 unlinks.
func (r *UserRepo) SetTelegramChatID(ctx context.Context, userID string, chatID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET telegram_chat_id = NULLIF($2, 0), updated_at = NOW()
WHERE id = $1
`, userID, chatID); err != nil {
		return fmt.Errorf("set user telegram chat id: %w", err)
	}

	return nil
}

func (r *UserRepo) SetDeactivated(ctx context.Context, userID string, at time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET is_deactivated = TRUE, deactivated_at = $2, updated_at = NOW()
WHERE id = $1
`, userID, at); err != nil {
		return fmt.Errorf("set user deactivated: %w", err)
	}

	return nil
}

func (r *UserRepo) SetAvatar(ctx context.Context, userID, objectKey string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET avatar = NULLIF($2, ''), updated_at = NOW()
WHERE id = $1
`, userID, objectKey); err != nil {
		return fmt.Errorf("set user avatar: %w", err)
	}

	return nil
}

func (r *UserRepo) ClearAvatar(ctx context.Context, userID string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET avatar = NULL, updated_at = NOW()
WHERE id = $1
`, userID); err != nil {
		return fmt.Errorf("clear user avatar: %w", err)
	}

	return nil
}

// DeactivatedAccount is the sweep view of a user scheduled for deletion.
type DeactivatedAccount struct {
	ID                    string
	Email                 string
	Avatar                string
	TelegramChatID        int64
	TelegramNotifications bool
	ThumbnailURL          string
}

func (r *UserRepo) ListDeactivatedBefore(ctx context.Context, cutoff time.Time) ([]DeactivatedAccount, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	u.id,
	u.email,
	COALESCE(u.avatar, ''),
	COALESCE(u.telegram_chat_id, 0),
	COALESCE(ns.telegram_notifications, FALSE),
	COALESCE(s.thumbnail_url, '')
FROM users u
LEFT JOIN notification_settings ns ON ns.user_id = u.id
LEFT JOIN streams s ON s.user_id = u.id
WHERE u.is_deactivated = TRUE AND u.deactivated_at <= $1
`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list deactivated accounts: %w", err)
	}
	defer rows.Close()

	var accounts []DeactivatedAccount
	for rows.Next() {
		var acc DeactivatedAccount
		if err := rows.Scan(
			&acc.ID,
			&acc.Email,
			&acc.Avatar,
			&acc.TelegramChatID,
			&acc.TelegramNotifications,
			&acc.ThumbnailURL,
		); err != nil {
			return nil, fmt.Errorf("scan deactivated account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate deactivated accounts: %w", rows.Err())
	}

	return accounts, nil
}

func (r *UserRepo) DeleteDeactivatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM users
WHERE is_deactivated = TRUE AND deactivated_at <= $1
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete deactivated accounts: %w", err)
	}

	return result.RowsAffected(), nil
}
