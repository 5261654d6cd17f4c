package model

import "time"

type Stream struct {
	ID           string
	UserID       string
	Title        string
	Category     string
	ThumbnailURL string
	IsLive       bool
	IngressID    string
	ServerURL    string
	StreamKey    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StreamEntry pairs a stream with its channel owner for listings.
type StreamEntry struct {
	Stream
	User User
}
