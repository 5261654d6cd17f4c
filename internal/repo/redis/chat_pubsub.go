package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
)

const chatChannelPrefix = "chat:"

// ChatPubSub fans chat messages out to every API instance subscribed to
// a stream's channel.
type ChatPubSub struct {
	client *goredis.Client
}

func NewChatPubSub(client *goredis.Client) *ChatPubSub {
	return &ChatPubSub{client: client}
}

func (p *ChatPubSub) Publish(ctx context.Context, message model.ChatMessage) error {
	if p.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}

	if err := p.client.Publish(ctx, chatChannel(message.StreamID), payload).Err(); err != nil {
		return fmt.Errorf("publish chat message: %w", err)
	}

	return nil
}

// Subscribe delivers messages for streamID until ctx is cancelled. The
// returned channel is closed when the subscription ends; messages that
// fail to decode are dropped.
func (p *ChatPubSub) Subscribe(ctx context.Context, streamID string) (<-chan model.ChatMessage, error) {
	if p.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	sub := p.client.Subscribe(ctx, chatChannel(streamID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe chat channel: %w", err)
	}

	out := make(chan model.ChatMessage)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				var msg model.ChatMessage
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func chatChannel(streamID string) string {
	return chatChannelPrefix + streamID
}
