package sessions

import (
	"errors"
	"time"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrSessionNotFound    = errors.New("session not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrPinRequired        = errors.New("totp pin required")
	ErrInvalidPin         = errors.New("invalid totp pin")
	ErrAccountDeactivated = errors.New("account deactivated")
)

type SessionRecord struct {
	SID       string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type LoginResult struct {
	SID  string
	User model.User
}
