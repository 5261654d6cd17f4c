package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/key-forr/keytostream-backend/internal/config"
	"github.com/key-forr/keytostream-backend/internal/infra/livevideo"
	"github.com/key-forr/keytostream-backend/internal/infra/mail"
	s3infra "github.com/key-forr/keytostream-backend/internal/infra/s3"
	"github.com/key-forr/keytostream-backend/internal/infra/telegram"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	redrepo "github.com/key-forr/keytostream-backend/internal/repo/redis"
	accountsvc "github.com/key-forr/keytostream-backend/internal/services/accounts"
	chatsvc "github.com/key-forr/keytostream-backend/internal/services/chat"
	deactivatesvc "github.com/key-forr/keytostream-backend/internal/services/deactivate"
	followsvc "github.com/key-forr/keytostream-backend/internal/services/follow"
	notifysvc "github.com/key-forr/keytostream-backend/internal/services/notifications"
	recoverysvc "github.com/key-forr/keytostream-backend/internal/services/recovery"
	sessionsvc "github.com/key-forr/keytostream-backend/internal/services/sessions"
	streamsvc "github.com/key-forr/keytostream-backend/internal/services/streams"
	tokensvc "github.com/key-forr/keytostream-backend/internal/services/tokens"
	totpsvc "github.com/key-forr/keytostream-backend/internal/services/totp"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	chatPubSub := redrepo.NewChatPubSub(redisClient)
	userRepo := pgrepo.NewUserRepo(pool)
	tokenRepo := pgrepo.NewTokenRepo(pool)
	followRepo := pgrepo.NewFollowRepo(pool)
	notificationRepo := pgrepo.NewNotificationRepo(pool)
	streamRepo := pgrepo.NewStreamRepo(pool)
	chatRepo := pgrepo.NewChatRepo(pool)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}
	mediaStorage := s3infra.NewStorage(s3Client, cfg.S3.Bucket)

	var mailer *mail.Mailer
	if m, err := mail.NewMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}); err != nil {
		log.Warn("smtp init failed, continuing in degraded mode", zap.Error(err))
	} else {
		mailer = m
	}

	var lvClient *livevideo.Client
	if c, err := livevideo.NewClient(cfg.LiveVideo.APIURL, cfg.LiveVideo.APIKey, cfg.LiveVideo.APISecret); err != nil {
		log.Warn("live video init failed, continuing in degraded mode", zap.Error(err))
	} else {
		lvClient = c
	}

	var bot *telegram.Bot
	if b, err := telegram.NewBot(cfg.Telegram.BotToken); err != nil {
		log.Warn("telegram bot init failed, continuing in degraded mode", zap.Error(err))
	} else {
		bot = b
	}

	tokenService := tokensvc.NewService(tokenRepo, tokensvc.TTLs{
		EmailVerify:   cfg.Tokens.EmailVerifyTTL,
		PasswordReset: cfg.Tokens.PasswordResetTTL,
		Deactivate:    cfg.Tokens.DeactivateTTL,
		TelegramAuth:  cfg.Tokens.TelegramAuthTTL,
	})
	sessionService := sessionsvc.NewService(userRepo, sessionRepo, cfg.Session.TTL)

	var notifyTelegram notifysvc.TelegramSender
	if bot != nil {
		notifyTelegram = bot
	}
	notificationService := notifysvc.NewService(notificationRepo, userRepo, tokenService, notifyTelegram, log)

	var accountMailer accountsvc.Mailer
	if mailer != nil {
		accountMailer = mailer
	}
	accountService := accountsvc.NewService(
		pool,
		userRepo,
		streamRepo,
		notificationRepo,
		tokenService,
		accountMailer,
		mediaStorage,
		cfg.Site.Origin,
		log,
	)

	totpService := totpsvc.NewService(userRepo, notificationService, cfg.Totp.Issuer, log)

	var recoveryMailer recoverysvc.Mailer
	if mailer != nil {
		recoveryMailer = mailer
	}
	var recoveryTelegram recoverysvc.TelegramSender
	if bot != nil {
		recoveryTelegram = bot
	}
	recoveryService := recoverysvc.NewService(
		userRepo,
		tokenService,
		sessionService,
		recoveryMailer,
		recoveryTelegram,
		cfg.Site.Origin,
		log,
	)

	var deactivateMailer deactivatesvc.Mailer
	if mailer != nil {
		deactivateMailer = mailer
	}
	var deactivateTelegram deactivatesvc.TelegramSender
	if bot != nil {
		deactivateTelegram = bot
	}
	deactivateService := deactivatesvc.NewService(
		userRepo,
		tokenService,
		sessionService,
		deactivateMailer,
		deactivateTelegram,
		log,
	)

	followService := followsvc.NewService(followRepo, userRepo, notificationService, log)
	chatService := chatsvc.NewService(chatRepo, streamRepo, chatPubSub)

	var ingressClient streamsvc.IngressClient
	if lvClient != nil {
		ingressClient = lvClient
	}
	streamService := streamsvc.NewService(
		streamRepo,
		userRepo,
		followRepo,
		ingressClient,
		notificationService,
		mediaStorage,
		log,
	)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AccountService:      accountService,
		SessionService:      sessionService,
		RecoveryService:     recoveryService,
		DeactivateService:   deactivateService,
		TotpService:         totpService,
		FollowService:       followService,
		NotificationService: notificationService,
		StreamService:       streamService,
		ChatService:         chatService,
		LiveVideoClient:     lvClient,
		Logger:              log,
		Config:              cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
