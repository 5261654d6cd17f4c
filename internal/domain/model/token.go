package model

import (
	"time"

	"github.com/key-forr/keytostream-backend/internal/domain/enums"
)

type Token struct {
	ID        string
	Token     string
	Type      enums.TokenType
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
