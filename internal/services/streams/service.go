// Package streams manages channel streams: listings, metadata, RTMP
// ingress credentials and the live state driven by media server
// webhooks.
package streams

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	"github.com/key-forr/keytostream-backend/internal/infra/livevideo"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	notifysvc "github.com/key-forr/keytostream-backend/internal/services/notifications"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrStreamNotFound = errors.New("stream not found")
)

type StreamStore interface {
	FindByID(ctx context.Context, id string) (model.Stream, error)
	FindByUserID(ctx context.Context, userID string) (model.Stream, error)
	List(ctx context.Context, searchTerm string) ([]model.StreamEntry, error)
	Random(ctx context.Context, limit int) ([]model.StreamEntry, error)
	UpdateInfo(ctx context.Context, userID, title, category string) error
	SetThumbnail(ctx context.Context, userID, thumbnailURL string) error
	SetIngress(ctx context.Context, userID, ingressID, serverURL, streamKey string) error
	SetLiveByIngressID(ctx context.Context, ingressID string, live bool) (model.Stream, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
}

type FollowStore interface {
	ListFollowerRecipients(ctx context.Context, userID string) ([]model.FollowerRecipient, error)
}

type IngressClient interface {
	CreateIngress(ctx context.Context, roomName, participantName string) (livevideo.IngressInfo, error)
	DeleteIngress(ctx context.Context, ingressID string) error
}

type Dispatcher interface {
	DispatchAsync(recipient notifysvc.Recipient, event notifysvc.Event)
}

type MediaStorage interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, objectKey string) error
}

type Service struct {
	streams    StreamStore
	users      UserStore
	follows    FollowStore
	ingress    IngressClient
	dispatcher Dispatcher
	storage    MediaStorage
	logger     *zap.Logger
}

func NewService(
	streams StreamStore,
	users UserStore,
	follows FollowStore,
	ingress IngressClient,
	dispatcher Dispatcher,
	storage MediaStorage,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		streams:    streams,
		users:      users,
		follows:    follows,
		ingress:    ingress,
		dispatcher: dispatcher,
		storage:    storage,
		logger:     logger,
	}
}

func (s *Service) List(ctx context.Context, searchTerm string) ([]model.StreamEntry, error) {
	return s.streams.List(ctx, strings.TrimSpace(searchTerm))
}

func (s *Service) Random(ctx context.Context, limit int) ([]model.StreamEntry, error) {
	if limit <= 0 || limit > 50 {
		limit = 4
	}
	return s.streams.Random(ctx, limit)
}

func (s *Service) FindByUserID(ctx context.Context, userID string) (model.Stream, error) {
	stream, err := s.streams.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrStreamNotFound) {
			return model.Stream{}, ErrStreamNotFound
		}
		return model.Stream{}, fmt.Errorf("find stream: %w", err)
	}
	return stream, nil
}

func (s *Service) ChangeInfo(ctx context.Context, userID, title, category string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidInput
	}
	return s.streams.UpdateInfo(ctx, userID, title, strings.TrimSpace(category))
}

// ChangeThumbnail uploads a new preview image, replacing a previous one.
func (s *Service) ChangeThumbnail(ctx context.Context, userID string, reader io.Reader, size int64, contentType string) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("media storage is not configured")
	}

	stream, err := s.FindByUserID(ctx, userID)
	if err != nil {
		return "", err
	}

	if stream.ThumbnailURL != "" {
		if err := s.storage.Remove(ctx, stream.ThumbnailURL); err != nil {
			s.logger.Warn("remove previous thumbnail failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	objectKey := fmt.Sprintf("thumbnails/%s/%s", userID, uuid.NewString())
	if err := s.storage.Upload(ctx, objectKey, reader, size, contentType); err != nil {
		return "", err
	}
	if err := s.streams.SetThumbnail(ctx, userID, objectKey); err != nil {
		return "", err
	}

	return objectKey, nil
}

func (s *Service) RemoveThumbnail(ctx context.Context, userID string) error {
	stream, err := s.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if stream.ThumbnailURL != "" && s.storage != nil {
		if err := s.storage.Remove(ctx, stream.ThumbnailURL); err != nil {
			s.logger.Warn("remove thumbnail object failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	return s.streams.SetThumbnail(ctx, userID, "")
}

// CreateIngress provisions fresh RTMP credentials for the channel. Any
// previous ingress is torn down first so old keys stop working.
func (s *Service) CreateIngress(ctx context.Context, userID string) (model.Stream, error) {
	if s.ingress == nil {
		return model.Stream{}, fmt.Errorf("ingress client is not configured")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.Stream{}, ErrInvalidInput
		}
		return model.Stream{}, fmt.Errorf("find user: %w", err)
	}

	stream, err := s.FindByUserID(ctx, userID)
	if err != nil {
		return model.Stream{}, err
	}

	if stream.IngressID != "" {
		if err := s.ingress.DeleteIngress(ctx, stream.IngressID); err != nil {
			s.logger.Warn("delete previous ingress failed",
				zap.String("ingress_id", stream.IngressID), zap.Error(err))
		}
	}

	info, err := s.ingress.CreateIngress(ctx, userID, user.Username)
	if err != nil {
		return model.Stream{}, fmt.Errorf("create ingress: %w", err)
	}

	if err := s.streams.SetIngress(ctx, userID, info.IngressID, info.URL, info.StreamKey); err != nil {
		return model.Stream{}, err
	}

	return s.FindByUserID(ctx, userID)
}

// HandleWebhook flips the live flag on ingress start/end events. A
// stream going live fans a notification out to every follower.
func (s *Service) HandleWebhook(ctx context.Context, event livevideo.WebhookEvent) error {
	var live bool
	switch event.Event {
	case livevideo.WebhookEventIngressStarted:
		live = true
	case livevideo.WebhookEventIngressEnded:
		live = false
	default:
		// Other media server events are not ours to handle.
		return nil
	}

	stream, err := s.streams.SetLiveByIngressID(ctx, event.IngressID, live)
	if err != nil {
		if errors.Is(err, pgrepo.ErrStreamNotFound) {
			return ErrStreamNotFound
		}
		return fmt.Errorf("set stream live state: %w", err)
	}

	if live {
		s.notifyFollowers(ctx, stream)
	}

	return nil
}

func (s *Service) notifyFollowers(ctx context.Context, stream model.Stream) {
	if s.dispatcher == nil {
		return
	}

	owner, err := s.users.FindByID(ctx, stream.UserID)
	if err != nil {
		s.logger.Warn("find stream owner for fan-out failed",
			zap.String("user_id", stream.UserID), zap.Error(err))
		return
	}

	recipients, err := s.follows.ListFollowerRecipients(ctx, stream.UserID)
	if err != nil {
		s.logger.Warn("list followers for fan-out failed",
			zap.String("user_id", stream.UserID), zap.Error(err))
		return
	}

	event := notifysvc.StreamStartEvent(owner.Username, stream.Title)
	for _, rcpt := range recipients {
		s.dispatcher.DispatchAsync(notifysvc.Recipient{
			UserID:                rcpt.UserID,
			TelegramChatID:        rcpt.TelegramChatID,
			SiteNotifications:     rcpt.SiteNotifications,
			TelegramNotifications: rcpt.TelegramNotifications,
		}, event)
	}
}
