package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/key-forr/keytostream-backend/internal/domain/enums"
	"github.com/key-forr/keytostream-backend/internal/domain/model"
)

var ErrTokenNotFound = errors.New("token not found")

type TokenRepo struct {
	pool *pgxpool.Pool
}

func NewTokenRepo(pool *pgxpool.Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

// Save stores a token, replacing any previous token of the same type
// for the same user.
func (r *TokenRepo) Save(ctx context.Context, token model.Token) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
DELETE FROM tokens
WHERE user_id = $1 AND type = $2
`, token.UserID, token.Type); err != nil {
		return fmt.Errorf("delete previous token: %w", err)
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO tokens (id, token, type, user_id, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
`, token.ID, token.Token, token.Type, token.UserID, token.ExpiresAt); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	return nil
}

// Consume deletes the token in the same statement that reads it, so two
// concurrent callers can never both succeed with the same value.
func (r *TokenRepo) Consume(ctx context.Context, value string, tokenType enums.TokenType) (model.Token, error) {
	if r.pool == nil {
		return model.Token{}, fmt.Errorf("postgres pool is nil")
	}
	if value == "" {
		return model.Token{}, ErrTokenNotFound
	}

	var token model.Token
	err := r.pool.QueryRow(ctx, `
DELETE FROM tokens
WHERE token = $1 AND type = $2
RETURNING id, token, type, user_id, expires_at, created_at
`, value, tokenType).Scan(
		&token.ID,
		&token.Token,
		&token.Type,
		&token.UserID,
		&token.ExpiresAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Token{}, ErrTokenNotFound
		}
		return model.Token{}, fmt.Errorf("consume token: %w", err)
	}

	return token, nil
}

func (r *TokenRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM tokens
WHERE expires_at <= $1
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
