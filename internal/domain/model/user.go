package model

import "time"

type User struct {
	ID              string
	Username        string
	Email           string
	PasswordHash    string
	DisplayName     string
	Avatar          string
	Bio             string
	TelegramChatID  int64
	TotpSecret      string
	IsTotpEnabled   bool
	IsEmailVerified bool
	IsVerified      bool
	IsDeactivated   bool
	DeactivatedAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type NotificationSettings struct {
	UserID                string
	SiteNotifications     bool
	TelegramNotifications bool
}
