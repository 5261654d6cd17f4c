// Package cleanup holds the retention sweep: accounts deactivated longer
// than the retention window are deleted together with their media, and
// expired one-time tokens are purged.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	notifysvc "github.com/key-forr/keytostream-backend/internal/services/notifications"
)

type accountLister interface {
	ListDeactivatedBefore(ctx context.Context, cutoff time.Time) ([]pgrepo.DeactivatedAccount, error)
	DeleteDeactivatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type tokenPurger interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type mediaRemover interface {
	Remove(ctx context.Context, objectKey string) error
}

type mailer interface {
	Send(to, subject, htmlBody string) error
}

type telegramSender interface {
	SendHTML(chatID int64, text string) error
}

type Job struct {
	accounts  accountLister
	tokens    tokenPurger
	storage   mediaRemover
	mailer    mailer
	telegram  telegramSender
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func New() *Job {
	return &Job{
		retention: 7 * 24 * time.Hour,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
}

func NewAccountCleanupJob(
	accounts accountLister,
	tokens tokenPurger,
	storage mediaRemover,
	mailClient mailer,
	telegram telegramSender,
	retention time.Duration,
	logger *zap.Logger,
) *Job {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		accounts:  accounts,
		tokens:    tokens,
		storage:   storage,
		mailer:    mailClient,
		telegram:  telegram,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

// Run executes one sweep. An account deactivated at or before
// now-retention is notified, its media removed from storage and the row
// deleted; dependent rows go with it via cascading constraints.
func (j *Job) Run(ctx context.Context) error {
	if j.tokens != nil {
		purged, err := j.tokens.DeleteExpiredBefore(ctx, j.now())
		if err != nil {
			return fmt.Errorf("purge expired tokens: %w", err)
		}
		if purged > 0 {
			j.logger.Info("purge expired tokens completed", zap.Int64("purged", purged))
		}
	}

	if j.accounts == nil {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	accounts, err := j.accounts.ListDeactivatedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list deactivated accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil
	}

	deleted, err := j.accounts.DeleteDeactivatedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete deactivated accounts: %w", err)
	}

	for _, acc := range accounts {
		j.notifyDeleted(acc)
		j.removeMedia(ctx, acc)
	}

	j.logger.Info("cleanup deactivated accounts completed", zap.Int64("deleted", deleted))
	return nil
}

func (j *Job) notifyDeleted(acc pgrepo.DeactivatedAccount) {
	event := notifysvc.AccountDeletionEvent()

	if j.mailer != nil && acc.Email != "" {
		body := "<h2>Your account has been deleted</h2><p>The retention period after deactivation has passed and your account, along with all its data, has been permanently removed.</p>"
		if err := j.mailer.Send(acc.Email, "Account deleted", body); err != nil {
			j.logger.Warn("account deletion mail failed",
				zap.String("user_id", acc.ID),
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}

	if j.telegram != nil && acc.TelegramNotifications && acc.TelegramChatID != 0 {
		if err := j.telegram.SendHTML(acc.TelegramChatID, event.TelegramHTML); err != nil {
			j.logger.Warn("account deletion telegram message failed",
				zap.String("user_id", acc.ID),
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}
}

func (j *Job) removeMedia(ctx context.Context, acc pgrepo.DeactivatedAccount) {
	if j.storage == nil {
		return
	}

	if acc.Avatar != "" {
		if err := j.storage.Remove(ctx, acc.Avatar); err != nil {
			j.logger.Warn("failed to delete avatar object from storage",
				zap.Error(err), zap.String("object_key", acc.Avatar))
		}
	}
	if acc.ThumbnailURL != "" {
		if err := j.storage.Remove(ctx, acc.ThumbnailURL); err != nil {
			j.logger.Warn("failed to delete thumbnail object from storage",
				zap.Error(err), zap.String("object_key", acc.ThumbnailURL))
		}
	}
}
