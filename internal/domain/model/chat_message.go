package model

import "time"

type ChatMessage struct {
	ID        string
	StreamID  string
	UserID    string
	Username  string
	Text      string
	CreatedAt time.Time
}
