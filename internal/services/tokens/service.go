// Package tokens issues and consumes the one-time tokens that drive
// email verification, password recovery, account deactivation and
// Telegram linking.
package tokens

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/key-forr/keytostream-backend/internal/domain/enums"
	"github.com/key-forr/keytostream-backend/internal/domain/model"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
)

type TokenStore interface {
	Save(ctx context.Context, token model.Token) error
	Consume(ctx context.Context, value string, tokenType enums.TokenType) (model.Token, error)
}

// TTLs holds the per-type validity windows.
type TTLs struct {
	EmailVerify   time.Duration
	PasswordReset time.Duration
	Deactivate    time.Duration
	TelegramAuth  time.Duration
}

type Service struct {
	store TokenStore
	ttls  TTLs
	now   func() time.Time
}

func NewService(store TokenStore, ttls TTLs) *Service {
	return &Service{
		store: store,
		ttls:  ttls,
		now:   time.Now,
	}
}

// Issue creates a fresh token for the user, replacing any earlier token
// of the same type. Deactivation tokens are short numeric codes meant to
// be typed from an email; every other type is an opaque UUID.
func (s *Service) Issue(ctx context.Context, userID string, tokenType enums.TokenType) (model.Token, error) {
	if userID == "" {
		return model.Token{}, ErrInvalidInput
	}

	value, err := newTokenValue(tokenType)
	if err != nil {
		return model.Token{}, fmt.Errorf("generate token value: %w", err)
	}

	token := model.Token{
		ID:        uuid.NewString(),
		Token:     value,
		Type:      tokenType,
		UserID:    userID,
		ExpiresAt: s.now().Add(s.ttlFor(tokenType)),
		CreatedAt: s.now(),
	}

	if err := s.store.Save(ctx, token); err != nil {
		return model.Token{}, fmt.Errorf("save token: %w", err)
	}

	return token, nil
}

// Consume validates and removes a token in one step, so a value can
// never be redeemed twice. An expired token is also removed, and
// reported as ErrTokenExpired rather than ErrTokenNotFound.
func (s *Service) Consume(ctx context.Context, value string, tokenType enums.TokenType) (model.Token, error) {
	if value == "" {
		return model.Token{}, ErrInvalidInput
	}

	token, err := s.store.Consume(ctx, value, tokenType)
	if err != nil {
		if errors.Is(err, pgrepo.ErrTokenNotFound) {
			return model.Token{}, ErrTokenNotFound
		}
		return model.Token{}, fmt.Errorf("consume token: %w", err)
	}

	if s.now().After(token.ExpiresAt) {
		return model.Token{}, ErrTokenExpired
	}

	return token, nil
}

func (s *Service) ttlFor(tokenType enums.TokenType) time.Duration {
	switch tokenType {
	case enums.TokenTypeEmailVerify:
		return s.ttls.EmailVerify
	case enums.TokenTypePasswordReset:
		return s.ttls.PasswordReset
	case enums.TokenTypeDeactivateAccount:
		return s.ttls.Deactivate
	case enums.TokenTypeTelegramAuth:
		return s.ttls.TelegramAuth
	default:
		return 15 * time.Minute
	}
}

func newTokenValue(tokenType enums.TokenType) (string, error) {
	if tokenType == enums.TokenTypeDeactivateAccount {
		return newNumericCode(6)
	}
	return uuid.NewString(), nil
}

func newNumericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
