package dto

import "time"

type FollowEntryResponse struct {
	User      UserResponse `json:"user"`
	CreatedAt time.Time    `json:"created_at"`
}

type FollowStatusResponse struct {
	Following bool `json:"following"`
	Followers int  `json:"followers"`
}

type NotificationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type NotificationSettingsRequest struct {
	SiteNotifications     bool `json:"site_notifications"`
	TelegramNotifications bool `json:"telegram_notifications"`
}

type NotificationSettingsResponse struct {
	SiteNotifications     bool   `json:"site_notifications"`
	TelegramNotifications bool   `json:"telegram_notifications"`
	TelegramAuthToken     string `json:"telegram_auth_token,omitempty"`
}
