package model

import (
	"time"

	"github.com/key-forr/keytostream-backend/internal/domain/enums"
)

type Notification struct {
	ID        string
	UserID    string
	Type      enums.NotificationType
	Message   string
	IsRead    bool
	CreatedAt time.Time
}
