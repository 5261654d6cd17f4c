// Package chat is the live chat attached to a stream: messages are
// persisted for history and fanned out over pub/sub to connected
// viewers.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
)

const maxMessageLen = 500

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrStreamNotFound = errors.New("stream not found")
	ErrStreamOffline  = errors.New("stream is offline")
	ErrMessageTooLong = errors.New("message too long")
)

type MessageStore interface {
	Create(ctx context.Context, message model.ChatMessage) error
	History(ctx context.Context, streamID string, limit int) ([]model.ChatMessage, error)
}

type StreamStore interface {
	FindByID(ctx context.Context, id string) (model.Stream, error)
}

type PubSub interface {
	Publish(ctx context.Context, message model.ChatMessage) error
	Subscribe(ctx context.Context, streamID string) (<-chan model.ChatMessage, error)
}

type Service struct {
	messages MessageStore
	streams  StreamStore
	pubsub   PubSub
	now      func() time.Time
}

func NewService(messages MessageStore, streams StreamStore, pubsub PubSub) *Service {
	return &Service{
		messages: messages,
		streams:  streams,
		pubsub:   pubsub,
		now:      time.Now,
	}
}

// Send persists the message and publishes it to the stream's channel.
// Chat only accepts messages while the stream is live.
func (s *Service) Send(ctx context.Context, streamID string, sender model.User, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if streamID == "" || text == "" {
		return model.ChatMessage{}, ErrInvalidInput
	}
	if len(text) > maxMessageLen {
		return model.ChatMessage{}, ErrMessageTooLong
	}

	stream, err := s.streams.FindByID(ctx, streamID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrStreamNotFound) {
			return model.ChatMessage{}, ErrStreamNotFound
		}
		return model.ChatMessage{}, fmt.Errorf("find stream: %w", err)
	}
	if !stream.IsLive {
		return model.ChatMessage{}, ErrStreamOffline
	}

	message := model.ChatMessage{
		ID:        uuid.NewString(),
		StreamID:  streamID,
		UserID:    sender.ID,
		Username:  sender.Username,
		Text:      text,
		CreatedAt: s.now(),
	}

	if err := s.messages.Create(ctx, message); err != nil {
		return model.ChatMessage{}, fmt.Errorf("store chat message: %w", err)
	}
	if err := s.pubsub.Publish(ctx, message); err != nil {
		return model.ChatMessage{}, fmt.Errorf("publish chat message: %w", err)
	}

	return message, nil
}

// Subscribe delivers messages for the stream until ctx is cancelled.
func (s *Service) Subscribe(ctx context.Context, streamID string) (<-chan model.ChatMessage, error) {
	if streamID == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.streams.FindByID(ctx, streamID); err != nil {
		if errors.Is(err, pgrepo.ErrStreamNotFound) {
			return nil, ErrStreamNotFound
		}
		return nil, fmt.Errorf("find stream: %w", err)
	}

	return s.pubsub.Subscribe(ctx, streamID)
}

func (s *Service) History(ctx context.Context, streamID string, limit int) ([]model.ChatMessage, error) {
	if streamID == "" {
		return nil, ErrInvalidInput
	}
	messages, err := s.messages.History(ctx, streamID, limit)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return messages, nil
}
