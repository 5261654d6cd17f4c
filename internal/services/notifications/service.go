// Package notifications fans events out to the site inbox and, when the
// account has a linked chat, to Telegram.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/key-forr/keytostream-backend/internal/domain/enums"
	"github.com/key-forr/keytostream-backend/internal/domain/model"
)

var ErrInvalidInput = errors.New("invalid input")

type NotificationStore interface {
	Create(ctx context.Context, notification model.Notification) error
	CountUnread(ctx context.Context, userID string) (int, error)
	ListByUser(ctx context.Context, userID string) ([]model.Notification, error)
	GetSettings(ctx context.Context, userID string) (model.NotificationSettings, error)
	SaveSettings(ctx context.Context, settings model.NotificationSettings) error
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	SetTelegramChatID(ctx context.Context, userID string, chatID int64) error
}

type TokenIssuer interface {
	Issue(ctx context.Context, userID string, tokenType enums.TokenType) (model.Token, error)
}

type TelegramSender interface {
	SendHTML(chatID int64, text string) error
}

// Recipient is everything the dispatcher needs to know about one target.
type Recipient struct {
	UserID                string
	TelegramChatID        int64
	SiteNotifications     bool
	TelegramNotifications bool
}

// Event is a renderable notification: the plain text goes to the site
// inbox, the HTML variant to Telegram.
type Event struct {
	Type         enums.NotificationType
	SiteMessage  string
	TelegramHTML string
}

func NewFollowerEvent(followerUsername string) Event {
	return Event{
		Type:         enums.NotificationTypeNewFollower,
		SiteMessage:  fmt.Sprintf("%s is now following you", followerUsername),
		TelegramHTML: fmt.Sprintf("<b>You have a new follower!</b>\n%s is now following your channel.", followerUsername),
	}
}

func StreamStartEvent(streamerUsername, title string) Event {
	return Event{
		Type:         enums.NotificationTypeStreamStart,
		SiteMessage:  fmt.Sprintf("%s started streaming: %s", streamerUsername, title),
		TelegramHTML: fmt.Sprintf("<b>%s is live!</b>\nTune in now: %s", streamerUsername, title),
	}
}

func TwoFactorEnabledEvent() Event {
	return Event{
		Type:         enums.NotificationTypeEnableTwoFactor,
		SiteMessage:  "Two-factor authentication is now enabled on your account",
		TelegramHTML: "<b>Security update</b>\nTwo-factor authentication was enabled on your account.",
	}
}

// AccountDeletionEvent is the farewell sent by the retention sweep. The
// account row is gone by the time it is delivered, so it only ever goes
// out through mail and Telegram, never the site inbox.
func AccountDeletionEvent() Event {
	return Event{
		Type:         enums.NotificationTypeAccountDeletion,
		SiteMessage:  "Your account has been permanently deleted",
		TelegramHTML: "<b>Your account has been deleted</b>\nThe retention period after deactivation has passed and your account was permanently removed.",
	}
}

type Service struct {
	store    NotificationStore
	users    UserStore
	tokens   TokenIssuer
	telegram TelegramSender
	logger   *zap.Logger
}

func NewService(store NotificationStore, users UserStore, tokens TokenIssuer, telegram TelegramSender, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		users:    users,
		tokens:   tokens,
		telegram: telegram,
		logger:   logger,
	}
}

// Dispatch delivers one event to one recipient, honoring the recipient's
// channel settings. A Telegram send failure is logged but never fails the
// triggering operation.
func (s *Service) Dispatch(ctx context.Context, recipient Recipient, event Event) error {
	if recipient.UserID == "" {
		return ErrInvalidInput
	}

	if recipient.SiteNotifications {
		notification := model.Notification{
			ID:      uuid.NewString(),
			UserID:  recipient.UserID,
			Type:    event.Type,
			Message: event.SiteMessage,
		}
		if err := s.store.Create(ctx, notification); err != nil {
			return fmt.Errorf("create site notification: %w", err)
		}
	}

	if recipient.TelegramNotifications && recipient.TelegramChatID != 0 && s.telegram != nil {
		if err := s.telegram.SendHTML(recipient.TelegramChatID, event.TelegramHTML); err != nil {
			s.logger.Warn("telegram notification failed",
				zap.String("user_id", recipient.UserID),
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}

	return nil
}

// DispatchToUser resolves the recipient's settings and chat link before
// dispatching.
func (s *Service) DispatchToUser(ctx context.Context, userID string, event Event) error {
	if userID == "" {
		return ErrInvalidInput
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find notification target: %w", err)
	}
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return fmt.Errorf("get notification settings: %w", err)
	}

	return s.Dispatch(ctx, Recipient{
		UserID:                userID,
		TelegramChatID:        user.TelegramChatID,
		SiteNotifications:     settings.SiteNotifications,
		TelegramNotifications: settings.TelegramNotifications,
	}, event)
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidInput
	}
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]model.Notification, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	notifications, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (s *Service) Settings(ctx context.Context, userID string) (model.NotificationSettings, error) {
	if userID == "" {
		return model.NotificationSettings{}, ErrInvalidInput
	}
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return model.NotificationSettings{}, fmt.Errorf("get notification settings: %w", err)
	}
	return settings, nil
}

// SettingsResult carries the new settings plus, when Telegram delivery
// was just enabled on an unlinked account, a one-time token the user
// sends to the bot via /start to finish linking.
type SettingsResult struct {
	Settings          model.NotificationSettings
	TelegramAuthToken string
}

// ChangeSettings updates the delivery channels. Enabling Telegram on an
// account without a linked chat issues a TELEGRAM_AUTH token; disabling
// Telegram unlinks the chat.
func (s *Service) ChangeSettings(ctx context.Context, userID string, siteEnabled, telegramEnabled bool) (SettingsResult, error) {
	if userID == "" {
		return SettingsResult{}, ErrInvalidInput
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return SettingsResult{}, fmt.Errorf("find user: %w", err)
	}
	current, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return SettingsResult{}, fmt.Errorf("get notification settings: %w", err)
	}

	next := model.NotificationSettings{
		UserID:                userID,
		SiteNotifications:     siteEnabled,
		TelegramNotifications: telegramEnabled,
	}
	if err := s.store.SaveSettings(ctx, next); err != nil {
		return SettingsResult{}, fmt.Errorf("save notification settings: %w", err)
	}

	result := SettingsResult{Settings: next}

	switch {
	case telegramEnabled && !current.TelegramNotifications && user.TelegramChatID == 0:
		token, err := s.tokens.Issue(ctx, userID, enums.TokenTypeTelegramAuth)
		if err != nil {
			return SettingsResult{}, fmt.Errorf("issue telegram auth token: %w", err)
		}
		result.TelegramAuthToken = token.Token
	case !telegramEnabled && user.TelegramChatID != 0:
		if err := s.users.SetTelegramChatID(ctx, userID, 0); err != nil {
			return SettingsResult{}, fmt.Errorf("unlink telegram chat: %w", err)
		}
	}

	return result, nil
}

// deadline for best-effort sends kicked off outside a request context.
const dispatchTimeout = 10 * time.Second

// DispatchAsync runs Dispatch detached from the caller's context, for
// fan-out paths where the triggering request must not wait.
func (s *Service) DispatchAsync(recipient Recipient, event Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := s.Dispatch(ctx, recipient, event); err != nil {
			s.logger.Warn("async notification dispatch failed",
				zap.String("user_id", recipient.UserID),
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}()
}
