// Package totp manages the TOTP second factor on an account.
package totp

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	notifysvc "github.com/key-forr/keytostream-backend/internal/services/notifications"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidPin     = errors.New("invalid totp pin")
	ErrAlreadyEnabled = errors.New("totp already enabled")
	ErrNotEnabled     = errors.New("totp not enabled")
)

type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	SetTotp(ctx context.Context, userID, secret string, enabled bool) error
}

type Dispatcher interface {
	DispatchToUser(ctx context.Context, userID string, event notifysvc.Event) error
}

// Setup is everything the client needs to enroll an authenticator app.
type Setup struct {
	Secret     string
	OtpauthURL string
	QRDataURL  string
}

type Service struct {
	users      UserStore
	dispatcher Dispatcher
	issuer     string
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(users UserStore, dispatcher Dispatcher, issuer string, logger *zap.Logger) *Service {
	if strings.TrimSpace(issuer) == "" {
		issuer = "keytostream"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:      users,
		dispatcher: dispatcher,
		issuer:     issuer,
		logger:     logger,
		now:        time.Now,
	}
}

// Generate creates a fresh secret and renders it as an otpauth URL plus
// an inline PNG QR code. Nothing is persisted until Enable confirms the
// first pin.
func (s *Service) Generate(ctx context.Context, userID string) (Setup, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Setup{}, ErrUserNotFound
		}
		return Setup{}, fmt.Errorf("find user: %w", err)
	}
	if user.IsTotpEnabled {
		return Setup{}, ErrAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.Email,
		Algorithm:   otp.AlgorithmSHA1,
		Digits:      otp.DigitsSix,
		Period:      30,
	})
	if err != nil {
		return Setup{}, fmt.Errorf("generate totp key: %w", err)
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return Setup{}, fmt.Errorf("render totp qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Setup{}, fmt.Errorf("encode totp qr: %w", err)
	}

	return Setup{
		Secret:     key.Secret(),
		OtpauthURL: key.URL(),
		QRDataURL:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Enable turns the second factor on after the user proves possession of
// the secret with one valid pin.
func (s *Service) Enable(ctx context.Context, userID, secret, pin string) error {
	if strings.TrimSpace(secret) == "" || strings.TrimSpace(pin) == "" {
		return ErrInvalidInput
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.IsTotpEnabled {
		return ErrAlreadyEnabled
	}

	if !s.validPin(pin, secret) {
		return ErrInvalidPin
	}

	if err := s.users.SetTotp(ctx, userID, secret, true); err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.DispatchToUser(ctx, userID, notifysvc.TwoFactorEnabledEvent()); err != nil {
			s.logger.Warn("totp enabled notification failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	return nil
}

func (s *Service) Disable(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if !user.IsTotpEnabled {
		return ErrNotEnabled
	}

	if err := s.users.SetTotp(ctx, userID, "", false); err != nil {
		return fmt.Errorf("disable totp: %w", err)
	}

	return nil
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
