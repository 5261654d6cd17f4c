// Package accounts covers registration, email verification and profile
// changes for a channel account.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/key-forr/keytostream-backend/internal/domain/enums"
	"github.com/key-forr/keytostream-backend/internal/domain/model"
	"github.com/key-forr/keytostream-backend/internal/pkg/password"
	"github.com/key-forr/keytostream-backend/internal/pkg/validate"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	tokensvc "github.com/key-forr/keytostream-backend/internal/services/tokens"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("user not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrEmailTaken      = errors.New("email already taken")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
)

type TokenService interface {
	Issue(ctx context.Context, userID string, tokenType enums.TokenType) (model.Token, error)
	Consume(ctx context.Context, value string, tokenType enums.TokenType) (model.Token, error)
}

type Mailer interface {
	Send(to, subject, htmlBody string) error
}

type MediaStorage interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, objectKey string) error
}

type Service struct {
	pool          *pgxpool.Pool
	users         *pgrepo.UserRepo
	streams       *pgrepo.StreamRepo
	notifications *pgrepo.NotificationRepo
	tokens        TokenService
	mailer        Mailer
	storage       MediaStorage
	siteOrigin    string
	logger        *zap.Logger
}

func NewService(
	pool *pgxpool.Pool,
	users *pgrepo.UserRepo,
	streams *pgrepo.StreamRepo,
	notifications *pgrepo.NotificationRepo,
	tokens TokenService,
	mailer Mailer,
	storage MediaStorage,
	siteOrigin string,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		pool:          pool,
		users:         users,
		streams:       streams,
		notifications: notifications,
		tokens:        tokens,
		mailer:        mailer,
		storage:       storage,
		siteOrigin:    siteOrigin,
		logger:        logger,
	}
}

// Create registers an account together with its channel stream and
// default notification settings, then emails a verification link.
func (s *Service) Create(ctx context.Context, username, email, plainPassword string) (model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if !validate.Username(username) || !validate.Email(email) || !validate.Password(plainPassword) {
		return model.User{}, ErrValidation
	}

	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return model.User{}, ErrUsernameTaken
	} else if !errors.Is(err, pgrepo.ErrUserNotFound) {
		return model.User{}, fmt.Errorf("check username: %w", err)
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return model.User{}, ErrEmailTaken
	} else if !errors.Is(err, pgrepo.ErrUserNotFound) {
		return model.User{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := password.Hash(plainPassword)
	if err != nil {
		return model.User{}, err
	}

	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  username,
	}

	err = pgrepo.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.users.CreateTx(ctx, tx, user); err != nil {
			return err
		}
		stream := model.Stream{
			ID:     uuid.NewString(),
			UserID: user.ID,
			Title:  fmt.Sprintf("%s's stream", username),
		}
		if err := s.streams.CreateTx(ctx, tx, stream); err != nil {
			return err
		}
		return s.notifications.CreateDefaultSettingsTx(ctx, tx, user.ID)
	})
	if err != nil {
		return model.User{}, fmt.Errorf("create account: %w", err)
	}

	if err := s.sendVerificationMail(ctx, user.ID, user.Email); err != nil {
		// The account exists; the user can request another link.
		s.logger.Warn("send verification mail failed",
			zap.String("user_id", user.ID), zap.Error(err))
	}

	return user, nil
}

// VerifyEmail redeems an emailed verification token.
func (s *Service) VerifyEmail(ctx context.Context, tokenValue string) error {
	token, err := s.tokens.Consume(ctx, tokenValue, enums.TokenTypeEmailVerify)
	if err != nil {
		return translateTokenErr(err)
	}

	if err := s.users.SetEmailVerified(ctx, token.UserID); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	return nil
}

func (s *Service) ChangeInfo(ctx context.Context, userID, username, displayName, bio string) (model.User, error) {
	username = strings.TrimSpace(username)
	if !validate.Username(username) {
		return model.User{}, ErrValidation
	}

	current, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("find user: %w", err)
	}

	if username != current.Username {
		if _, err := s.users.FindByUsername(ctx, username); err == nil {
			return model.User{}, ErrUsernameTaken
		} else if !errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, fmt.Errorf("check username: %w", err)
		}
	}

	if err := s.users.UpdateInfo(ctx, userID, username, strings.TrimSpace(displayName), strings.TrimSpace(bio)); err != nil {
		return model.User{}, err
	}

	return s.users.FindByID(ctx, userID)
}

// ChangeEmail swaps the address and restarts verification.
func (s *Service) ChangeEmail(ctx context.Context, userID, email string) error {
	email = strings.TrimSpace(email)
	if !validate.Email(email) {
		return ErrValidation
	}

	if existing, err := s.users.FindByEmail(ctx, email); err == nil {
		if existing.ID == userID {
			return nil
		}
		return ErrEmailTaken
	} else if !errors.Is(err, pgrepo.ErrUserNotFound) {
		return fmt.Errorf("check email: %w", err)
	}

	if err := s.users.UpdateEmail(ctx, userID, email); err != nil {
		return err
	}

	if err := s.sendVerificationMail(ctx, userID, email); err != nil {
		s.logger.Warn("send verification mail failed",
			zap.String("user_id", userID), zap.Error(err))
	}

	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if !validate.Password(newPassword) {
		return ErrValidation
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	ok, err := password.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidPassword
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	return s.users.UpdatePassword(ctx, userID, hash)
}

// ChangeAvatar stores the uploaded image and records its object key on
// the profile. A previous avatar is removed from the bucket first.
func (s *Service) ChangeAvatar(ctx context.Context, userID string, reader io.Reader, size int64, contentType string) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("media storage is not configured")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	if user.Avatar != "" {
		if err := s.storage.Remove(ctx, user.Avatar); err != nil {
			s.logger.Warn("remove previous avatar failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	objectKey := fmt.Sprintf("avatars/%s/%s", userID, uuid.NewString())
	if err := s.storage.Upload(ctx, objectKey, reader, size, contentType); err != nil {
		return "", err
	}

	if err := s.users.SetAvatar(ctx, userID, objectKey); err != nil {
		return "", err
	}

	return objectKey, nil
}

func (s *Service) RemoveAvatar(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if user.Avatar != "" && s.storage != nil {
		if err := s.storage.Remove(ctx, user.Avatar); err != nil {
			s.logger.Warn("remove avatar object failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	return s.users.ClearAvatar(ctx, userID)
}

func (s *Service) FindByID(ctx context.Context, userID string) (model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *Service) FindByUsername(ctx context.Context, username string) (model.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *Service) sendVerificationMail(ctx context.Context, userID, email string) error {
	if s.mailer == nil {
		return nil
	}

	token, err := s.tokens.Issue(ctx, userID, enums.TokenTypeEmailVerify)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}

	link := fmt.Sprintf("%s/account/verify?token=%s", s.siteOrigin, token.Token)
	body := fmt.Sprintf(
		"<h2>Confirm your email</h2><p>Follow the link below to verify your address:</p><p><a href=%q>%s</a></p>",
		link, link,
	)

	if err := s.mailer.Send(email, "Verify your email", body); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}

	return nil
}

func translateTokenErr(err error) error {
	switch {
	case errors.Is(err, tokensvc.ErrTokenNotFound):
		return ErrInvalidToken
	case errors.Is(err, tokensvc.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return err
	}
}
