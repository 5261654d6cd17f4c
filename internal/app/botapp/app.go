// Package botapp runs the Telegram side of the platform: the bot that
// links chats to accounts and answers profile queries, plus the
// periodic account retention sweep.
package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/key-forr/keytostream-backend/internal/config"
	"github.com/key-forr/keytostream-backend/internal/domain/enums"
	"github.com/key-forr/keytostream-backend/internal/infra/mail"
	s3infra "github.com/key-forr/keytostream-backend/internal/infra/s3"
	tginfra "github.com/key-forr/keytostream-backend/internal/infra/telegram"
	"github.com/key-forr/keytostream-backend/internal/jobs/cleanup"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	tokensvc "github.com/key-forr/keytostream-backend/internal/services/tokens"
)

const (
	welcomeText = "Hi! Enable Telegram notifications in your profile settings, then send the code here as /start <code> to link this chat."
	linkedText  = "<b>Chat linked.</b>\nYou will now receive notifications here."
	badCodeText = "That code is invalid or has expired. Request a new one from your notification settings."
	noLinkText  = "This chat is not linked to an account yet. Use /start <code> first."
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	postgres   *pgxpool.Pool
	bot        *tginfra.Bot
	userRepo   *pgrepo.UserRepo
	followRepo *pgrepo.FollowRepo
	tokens     *tokensvc.Service
	cleanupJob *cleanup.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	userRepo := pgrepo.NewUserRepo(pool)
	tokenRepo := pgrepo.NewTokenRepo(pool)
	followRepo := pgrepo.NewFollowRepo(pool)
	tokenService := tokensvc.NewService(tokenRepo, tokensvc.TTLs{
		EmailVerify:   cfg.Tokens.EmailVerifyTTL,
		PasswordReset: cfg.Tokens.PasswordResetTTL,
		Deactivate:    cfg.Tokens.DeactivateTTL,
		TelegramAuth:  cfg.Tokens.TelegramAuthTTL,
	})

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Telegram.BotToken) != "" {
		bot, err = tginfra.NewBot(cfg.Telegram.BotToken)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN is empty, bot listener disabled")
	}

	var storage *s3infra.Storage
	if s3Client, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		logger.Warn("s3 init failed, cleanup will skip media removal", zap.Error(err))
	} else {
		storage = s3infra.NewStorage(s3Client, cfg.S3.Bucket)
	}

	var mailer *mail.Mailer
	if m, err := mail.NewMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}); err != nil {
		logger.Warn("smtp init failed, cleanup will skip deletion mails", zap.Error(err))
	} else {
		mailer = m
	}

	cleanupJob := cleanup.NewAccountCleanupJob(
		userRepo,
		tokenRepo,
		storage,
		mailer,
		bot,
		cfg.Cleanup.Retention,
		logger,
	)

	return &App{
		cfg:        cfg,
		logger:     logger,
		postgres:   pool,
		bot:        bot,
		userRepo:   userRepo,
		followRepo: followRepo,
		tokens:     tokenService,
		cleanupJob: cleanupJob,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runCleanupLoop(ctx)
	}()

	if a.bot != nil {
		go func() {
			errCh <- a.bot.Listen(ctx, tginfra.Handlers{
				OnCommand: a.handleCommand,
				OnText:    a.handleText,
			})
		}()
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runCleanupLoop(ctx context.Context) error {
	if a.cleanupJob == nil {
		return nil
	}

	interval := a.cfg.Cleanup.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	if err := a.cleanupJob.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.cleanupJob.Run(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if a.bot == nil {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "start":
		return a.handleStart(ctx, update)
	case "me":
		return a.handleMe(ctx, update)
	default:
		return nil
	}
}

// handleStart links the chat to the account that issued the auth code.
// A bare /start just explains how linking works.
func (a *App) handleStart(ctx context.Context, update tginfra.CommandUpdate) error {
	code := strings.TrimSpace(update.Args)
	if code == "" {
		return a.bot.SendText(update.ChatID, welcomeText)
	}

	token, err := a.tokens.Consume(ctx, code, enums.TokenTypeTelegramAuth)
	if err != nil {
		if errors.Is(err, tokensvc.ErrTokenNotFound) || errors.Is(err, tokensvc.ErrTokenExpired) {
			return a.bot.SendText(update.ChatID, badCodeText)
		}
		return err
	}

	if err := a.userRepo.SetTelegramChatID(ctx, token.UserID, update.ChatID); err != nil {
		return fmt.Errorf("link telegram chat: %w", err)
	}

	a.logger.Info("telegram chat linked",
		zap.String("user_id", token.UserID), zap.Int64("chat_id", update.ChatID))

	return a.bot.SendHTML(update.ChatID, linkedText)
}

// handleMe answers with a short profile summary for the linked account.
func (a *App) handleMe(ctx context.Context, update tginfra.CommandUpdate) error {
	user, err := a.userRepo.FindByTelegramChatID(ctx, update.ChatID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return a.bot.SendText(update.ChatID, noLinkText)
		}
		return err
	}

	followers, err := a.followRepo.CountFollowers(ctx, user.ID)
	if err != nil {
		a.logger.Warn("count followers for bot summary failed",
			zap.String("user_id", user.ID), zap.Error(err))
	}

	lines := []string{
		fmt.Sprintf("<b>%s</b>", user.Username),
		fmt.Sprintf("Email: %s", user.Email),
		fmt.Sprintf("Followers: %d", followers),
	}
	if user.IsTotpEnabled {
		lines = append(lines, "Two-factor auth: enabled")
	}
	if user.IsDeactivated {
		lines = append(lines, "Account: deactivated, pending deletion")
	}

	return a.bot.SendHTML(update.ChatID, strings.Join(lines, "\n"))
}

func (a *App) handleText(_ context.Context, update tginfra.TextUpdate) error {
	if a.bot == nil {
		return nil
	}
	// Plain text is not a command we understand; nudge toward /start.
	return a.bot.SendText(update.ChatID, welcomeText)
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
}
