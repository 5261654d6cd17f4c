package dto

import "time"

type StreamResponse struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Category     string       `json:"category,omitempty"`
	ThumbnailURL string       `json:"thumbnail_url,omitempty"`
	IsLive       bool         `json:"is_live"`
	User         UserResponse `json:"user"`
}

// StreamCredentialsResponse is only ever returned to the channel owner.
type StreamCredentialsResponse struct {
	IngressID string `json:"ingress_id"`
	ServerURL string `json:"server_url"`
	StreamKey string `json:"stream_key"`
}

type ThumbnailResponse struct {
	ThumbnailURL string `json:"thumbnail_url"`
}

type ChangeStreamInfoRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type ChatMessageResponse struct {
	ID        string    `json:"id"`
	StreamID  string    `json:"stream_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
