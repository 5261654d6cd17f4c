// Package recovery implements the forgotten-password flow.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/key-forr/keytostream-backend/internal/domain/enums"
	"github.com/key-forr/keytostream-backend/internal/domain/model"
	"github.com/key-forr/keytostream-backend/internal/pkg/password"
	"github.com/key-forr/keytostream-backend/internal/pkg/validate"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	tokensvc "github.com/key-forr/keytostream-backend/internal/services/tokens"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
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
	users      UserStore
	tokens     TokenService
	sessions   SessionDestroyer
	mailer     Mailer
	telegram   TelegramSender
	siteOrigin string
	logger     *zap.Logger
}

func NewService(
	users UserStore,
	tokens TokenService,
	sessions SessionDestroyer,
	mailer Mailer,
	telegram TelegramSender,
	siteOrigin string,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:      users,
		tokens:     tokens,
		sessions:   sessions,
		mailer:     mailer,
		telegram:   telegram,
		siteOrigin: siteOrigin,
		logger:     logger,
	}
}

// Reset issues a password reset token and delivers the link by email,
// and by Telegram when the account has a linked chat.
func (s *Service) Reset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !validate.Email(email) {
		return ErrValidation
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user by email: %w", err)
	}

	token, err := s.tokens.Issue(ctx, user.ID, enums.TokenTypePasswordReset)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	link := fmt.Sprintf("%s/account/recovery/%s", s.siteOrigin, token.Token)

	if s.mailer != nil {
		body := fmt.Sprintf(
			"<h2>Password reset</h2><p>Follow the link below to choose a new password:</p><p><a href=%q>%s</a></p><p>If you did not request this, ignore this email.</p>",
			link, link,
		)
		if err := s.mailer.Send(user.Email, "Reset your password", body); err != nil {
			return fmt.Errorf("send reset mail: %w", err)
		}
	}

	if s.telegram != nil && user.TelegramChatID != 0 {
		text := fmt.Sprintf("<b>Password reset requested</b>\n<a href=%q>Choose a new password</a>", link)
		if err := s.telegram.SendHTML(user.TelegramChatID, text); err != nil {
			s.logger.Warn("telegram reset message failed",
				zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return nil
}

// NewPassword redeems the reset token, stores the new hash and destroys
// every live session of the account.
func (s *Service) NewPassword(ctx context.Context, tokenValue, newPassword string) error {
	if !validate.Password(newPassword) {
		return ErrValidation
	}

	token, err := s.tokens.Consume(ctx, tokenValue, enums.TokenTypePasswordReset)
	if err != nil {
		switch {
		case errors.Is(err, tokensvc.ErrTokenNotFound):
			return ErrInvalidToken
		case errors.Is(err, tokensvc.ErrTokenExpired):
			return ErrTokenExpired
		default:
			return err
		}
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, token.UserID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.sessions.DestroyAll(ctx, token.UserID); err != nil {
		return fmt.Errorf("destroy sessions: %w", err)
	}

	return nil
}
