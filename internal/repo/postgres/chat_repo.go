package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) Create(ctx context.Context, message model.ChatMessage) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO chat_messages (id, stream_id, user_id, text, created_at)
VALUES ($1, $2, $3, $4, $5)
`, message.ID, message.StreamID, message.UserID, message.Text, message.CreatedAt); err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}

	return nil
}

// History returns the most recent messages for a stream, oldest first,
// with sender usernames joined in.
func (r *ChatRepo) History(ctx context.Context, streamID string, limit int) ([]model.ChatMessage, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT m.id, m.stream_id, m.user_id, u.username, m.text, m.created_at
FROM (
	SELECT id, stream_id, user_id, text, created_at
	FROM chat_messages
	WHERE stream_id = $1
	ORDER BY created_at DESC
	LIMIT $2
) m
JOIN users u ON u.id = m.user_id
ORDER BY m.created_at ASC
`, streamID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.StreamID, &msg.UserID, &msg.Username, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, msg)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", rows.Err())
	}

	return messages, nil
}
