package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	"github.com/key-forr/keytostream-backend/internal/pkg/password"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
)

const (
	MinSessionTTL = time.Hour
	MaxSessionTTL = 90 * 24 * time.Hour
)

type UserStore interface {
	FindByLogin(ctx context.Context, login string) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord) error
	Get(ctx context.Context, sid string) (SessionRecord, error)
	Delete(ctx context.Context, sid string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

type Service struct {
	users      UserStore
	sessions   SessionStore
	sessionTTL time.Duration
	now        func() time.Time
}

func NewService(users UserStore, sessions SessionStore, sessionTTL time.Duration) *Service {
	if sessionTTL < MinSessionTTL {
		sessionTTL = MinSessionTTL
	}
	if sessionTTL > MaxSessionTTL {
		sessionTTL = MaxSessionTTL
	}

	return &Service{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Login authenticates by exact username or email match. When the account
// has TOTP enabled, an empty pin reports ErrPinRequired so the client can
// prompt for it and retry.
func (s *Service) Login(ctx context.Context, login, plainPassword, pin string) (LoginResult, error) {
	if strings.TrimSpace(login) == "" || plainPassword == "" {
		return LoginResult{}, ErrInvalidInput
	}

	user, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, fmt.Errorf("find user by login: %w", err)
	}

	ok, err := password.Verify(plainPassword, user.PasswordHash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return LoginResult{}, ErrInvalidPassword
	}

	if user.IsTotpEnabled {
		if strings.TrimSpace(pin) == "" {
			return LoginResult{}, ErrPinRequired
		}
		if !s.validPin(pin, user.TotpSecret) {
			return LoginResult{}, ErrInvalidPin
		}
	}

	if user.IsDeactivated {
		return LoginResult{}, ErrAccountDeactivated
	}

	sid, err := s.create(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{SID: sid, User: user}, nil
}

// Validate resolves a session cookie to its user. Deactivated accounts
// are rejected even while their session keys still exist.
func (s *Service) Validate(ctx context.Context, sid string) (model.User, error) {
	if strings.TrimSpace(sid) == "" {
		return model.User{}, ErrUnauthorized
	}

	session, err := s.sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return model.User{}, ErrUnauthorized
		}
		return model.User{}, fmt.Errorf("get session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return model.User{}, ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrUnauthorized
		}
		return model.User{}, fmt.Errorf("find session user: %w", err)
	}
	if user.IsDeactivated {
		return model.User{}, ErrUnauthorized
	}

	return user, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.Delete(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) DestroyAll(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return nil
}

func (s *Service) create(ctx context.Context, userID string) (string, error) {
	sid, err := NewSessionID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}

	now := s.now()
	session := SessionRecord{
		SID:       sid,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	return sid, nil
}

func (s *Service) validPin(pin, secret string) bool {
	ok, err := totp.ValidateCustom(pin, secret, s.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
