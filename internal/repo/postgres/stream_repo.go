package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
)

var ErrStreamNotFound = errors.New("stream not found")

type StreamRepo struct {
	pool *pgxpool.Pool
}

func NewStreamRepo(pool *pgxpool.Pool) *StreamRepo {
	return &StreamRepo{pool: pool}
}

func (r *StreamRepo) CreateTx(ctx context.Context, tx pgx.Tx, stream model.Stream) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO streams (id, user_id, title, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
`, stream.ID, stream.UserID, stream.Title); err != nil {
		return fmt.Errorf("insert stream: %w", err)
	}

	return nil
}

const streamColumns = `
s.id, s.user_id, COALESCE(s.title, ''), COALESCE(s.category, ''),
COALESCE(s.thumbnail_url, ''), s.is_live,
COALESCE(s.ingress_id, ''), COALESCE(s.server_url, ''), COALESCE(s.stream_key, ''),
s.created_at, s.updated_at`

func scanStream(row pgx.Row) (model.Stream, error) {
	var stream model.Stream
	err := row.Scan(
		&stream.ID,
		&stream.UserID,
		&stream.Title,
		&stream.Category,
		&stream.ThumbnailURL,
		&stream.IsLive,
		&stream.IngressID,
		&stream.ServerURL,
		&stream.StreamKey,
		&stream.CreatedAt,
		&stream.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Stream{}, ErrStreamNotFound
		}
		return model.Stream{}, fmt.Errorf("scan stream: %w", err)
	}
	return stream, nil
}

func (r *StreamRepo) FindByID(ctx context.Context, id string) (model.Stream, error) {
	if r.pool == nil {
		return model.Stream{}, fmt.Errorf("postgres pool is nil")
	}

	return scanStream(r.pool.QueryRow(ctx, `
SELECT `+streamColumns+`
FROM streams s
WHERE s.id = $1
`, id))
}

func (r *StreamRepo) FindByUserID(ctx context.Context, userID string) (model.Stream, error) {
	if r.pool == nil {
		return model.Stream{}, fmt.Errorf("postgres pool is nil")
	}

	return scanStream(r.pool.QueryRow(ctx, `
SELECT `+streamColumns+`
FROM streams s
WHERE s.user_id = $1
`, userID))
}

func (r *StreamRepo) FindByIngressID(ctx context.Context, ingressID string) (model.Stream, error) {
	if r.pool == nil {
		return model.Stream{}, fmt.Errorf("postgres pool is nil")
	}
	if ingressID == "" {
		return model.Stream{}, ErrStreamNotFound
	}

	return scanStream(r.pool.QueryRow(ctx, `
SELECT `+streamColumns+`
FROM streams s
WHERE s.ingress_id = $1
`, ingressID))
}

// List returns streams of active users, live streams first.
func (r *StreamRepo) List(ctx context.Context, searchTerm string) ([]model.StreamEntry, error) {
	return r.listEntries(ctx, `
SELECT `+streamColumns+`,
	u.id, u.username, COALESCE(u.display_name, ''), COALESCE(u.avatar, ''), u.is_verified
FROM streams s
JOIN users u ON u.id = s.user_id
WHERE u.is_deactivated = FALSE
	AND ($1 = '' OR s.title ILIKE '%' || $1 || '%' OR u.username ILIKE '%' || $1 || '%')
ORDER BY s.is_live DESC, s.created_at DESC
`, searchTerm)
}

// Random returns up to limit random streams of active users, used for
// the discovery rail.
func (r *StreamRepo) Random(ctx context.Context, limit int) ([]model.StreamEntry, error) {
	return r.listEntries(ctx, `
SELECT `+streamColumns+`,
	u.id, u.username, COALESCE(u.display_name, ''), COALESCE(u.avatar, ''), u.is_verified
FROM streams s
JOIN users u ON u.id = s.user_id
WHERE u.is_deactivated = FALSE
ORDER BY RANDOM()
LIMIT $1
`, limit)
}

func (r *StreamRepo) UpdateInfo(ctx context.Context, userID, title, category string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE streams
SET title = $2, category = $3, updated_at = NOW()
WHERE user_id = $1
`, userID, title, category); err != nil {
		return fmt.Errorf("update stream info: %w", err)
	}

	return nil
}

func (r *StreamRepo) SetThumbnail(ctx context.Context, userID, thumbnailURL string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE streams
SET thumbnail_url = NULLIF($2, ''), updated_at = NOW()
WHERE user_id = $1
`, userID, thumbnailURL); err != nil {
		return fmt.Errorf("set stream thumbnail: %w", err)
	}

	return nil
}

func (r *StreamRepo) SetIngress(ctx context.Context, userID, ingressID, serverURL, streamKey string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE streams
SET ingress_id = NULLIF($2, ''),
	server_url = NULLIF($3, ''),
	stream_key = NULLIF($4, ''),
	updated_at = NOW()
WHERE user_id = $1
`, userID, ingressID, serverURL, streamKey); err != nil {
		return fmt.Errorf("set stream ingress: %w", err)
	}

	return nil
}

func (r *StreamRepo) SetLiveByIngressID(ctx context.Context, ingressID string, live bool) (model.Stream, error) {
	if r.pool == nil {
		return model.Stream{}, fmt.Errorf("postgres pool is nil")
	}
	if ingressID == "" {
		return model.Stream{}, ErrStreamNotFound
	}

	return scanStream(r.pool.QueryRow(ctx, `
UPDATE streams s
SET is_live = $2, updated_at = NOW()
WHERE s.ingress_id = $1
RETURNING `+streamColumns+`
`, ingressID, live))
}

func (r *StreamRepo) listEntries(ctx context.Context, query string, arg any) ([]model.StreamEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	defer rows.Close()

	var entries []model.StreamEntry
	for rows.Next() {
		var entry model.StreamEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Title,
			&entry.Category,
			&entry.ThumbnailURL,
			&entry.IsLive,
			&entry.IngressID,
			&entry.ServerURL,
			&entry.StreamKey,
			&entry.CreatedAt,
			&entry.UpdatedAt,
			&entry.User.ID,
			&entry.User.Username,
			&entry.User.DisplayName,
			&entry.User.Avatar,
			&entry.User.IsVerified,
		); err != nil {
			return nil, fmt.Errorf("scan stream entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate streams: %w", rows.Err())
	}

	return entries, nil
}
