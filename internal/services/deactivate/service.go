// Package deactivate implements the two-phase account deactivation flow:
// a credential check that emails a short code, then a confirmation that
// schedules the account for deletion.
package deactivate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/key-forr/keytostream-backend/internal/domain/enums"
	"github.com/key-forr/keytostream-backend/internal/domain/model"
	"github.com/key-forr/keytostream-backend/internal/pkg/password"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	tokensvc "github.com/key-forr/keytostream-backend/internal/services/tokens"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCodeNotFound       = errors.New("code not found")
	ErrInvalidCode        = errors.New("invalid code")
	ErrCodeExpired        = errors.New("code expired")
	ErrAlreadyDeactivated = errors.New("account already deactivated")
)

type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	SetDeactivated(ctx context.Context, userID string, at time.Time) error
}

type TokenService interface {
	Issue(ctx context.Context, userID string, tokenType enums.TokenType) (model.Token, error)
	Consume(ctx context.Context, value string, tokenType enums.TokenType) (model.Token, error)
}

type SessionDestroyer interface {
	DestroyAll(ctx context.Context, userID string) error
}

type Mailer interface {
	Send(to, subject, htmlBody string) error
}

type TelegramSender interface {
	SendHTML(chatID int64, text string) error
}

type Service struct {
	users    UserStore
	tokens   TokenService
	sessions SessionDestroyer
	mailer   Mailer
	telegram TelegramSender
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(
	users UserStore,
	tokens TokenService,
	sessions SessionDestroyer,
	mailer Mailer,
	telegram TelegramSender,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		mailer:   mailer,
		telegram: telegram,
		now:      time.Now,
		logger:   logger,
	}
}

// Request re-checks the account's email and password and, on success,
// emails a six digit confirmation code.
func (s *Service) Request(ctx context.Context, userID, email, plainPassword string) error {
	if strings.TrimSpace(email) == "" || plainPassword == "" {
		return ErrInvalidInput
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.IsDeactivated {
		return ErrAlreadyDeactivated
	}
	if !strings.EqualFold(strings.TrimSpace(email), user.Email) {
		return ErrInvalidCredentials
	}

	ok, err := password.Verify(plainPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(ctx, userID, enums.TokenTypeDeactivateAccount)
	if err != nil {
		return fmt.Errorf("issue deactivation code: %w", err)
	}

	if s.mailer != nil {
		body := fmt.Sprintf(
			"<h2>Account deactivation</h2><p>Your confirmation code:</p><h1>%s</h1><p>The code expires shortly. If you did not request this, change your password now.</p>",
			token.Token,
		)
		if err := s.mailer.Send(user.Email, "Confirm account deactivation", body); err != nil {
			return fmt.Errorf("send deactivation mail: %w", err)
		}
	}

	if s.telegram != nil && user.TelegramChatID != 0 {
		text := fmt.Sprintf("<b>Account deactivation requested</b>\nConfirmation code: <code>%s</code>", token.Token)
		if err := s.telegram.SendHTML(user.TelegramChatID, text); err != nil {
			s.logger.Warn("telegram deactivation code failed",
				zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return nil
}

// Confirm redeems the code, marks the account deactivated and destroys
// every live session. The account stays recoverable until the retention
// sweep deletes it.
func (s *Service) Confirm(ctx context.Context, userID, code string) error {
	if strings.TrimSpace(code) == "" {
		return ErrInvalidInput
	}

	token, err := s.tokens.Consume(ctx, code, enums.TokenTypeDeactivateAccount)
	if err != nil {
		switch {
		case errors.Is(err, tokensvc.ErrTokenNotFound):
			return ErrCodeNotFound
		case errors.Is(err, tokensvc.ErrTokenExpired):
			return ErrCodeExpired
		default:
			return err
		}
	}
	if token.UserID != userID {
		return ErrInvalidCode
	}

	if err := s.users.SetDeactivated(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}

	if err := s.sessions.DestroyAll(ctx, userID); err != nil {
		s.logger.Warn("destroy sessions after deactivation failed",
			zap.String("user_id", userID), zap.Error(err))
	}

	return nil
}
