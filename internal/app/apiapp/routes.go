package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/key-forr/keytostream-backend/internal/config"
	"github.com/key-forr/keytostream-backend/internal/infra/livevideo"
	accountsvc "github.com/key-forr/keytostream-backend/internal/services/accounts"
	chatsvc "github.com/key-forr/keytostream-backend/internal/services/chat"
	deactivatesvc "github.com/key-forr/keytostream-backend/internal/services/deactivate"
	followsvc "github.com/key-forr/keytostream-backend/internal/services/follow"
	notifysvc "github.com/key-forr/keytostream-backend/internal/services/notifications"
	recoverysvc "github.com/key-forr/keytostream-backend/internal/services/recovery"
	sessionsvc "github.com/key-forr/keytostream-backend/internal/services/sessions"
	streamsvc "github.com/key-forr/keytostream-backend/internal/services/streams"
	totpsvc "github.com/key-forr/keytostream-backend/internal/services/totp"
	"github.com/key-forr/keytostream-backend/internal/transport/http/handlers"
)

type Dependencies struct {
	AccountService      *accountsvc.Service
	SessionService      *sessionsvc.Service
	RecoveryService     *recoverysvc.Service
	DeactivateService   *deactivatesvc.Service
	TotpService         *totpsvc.Service
	FollowService       *followsvc.Service
	NotificationService *notifysvc.Service
	StreamService       *streamsvc.Service
	ChatService         *chatsvc.Service
	LiveVideoClient     *livevideo.Client
	Logger              *zap.Logger
	Config              config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	cookieSecure := deps.Config.Session.CookieSecure

	healthHandler := handlers.NewHealthHandler()
	accountHandler := handlers.NewAccountHandler(deps.AccountService)
	sessionHandler := handlers.NewSessionHandler(deps.SessionService, deps.Config.Session.TTL, cookieSecure)
	recoveryHandler := handlers.NewRecoveryHandler(deps.RecoveryService)
	deactivateHandler := handlers.NewDeactivateHandler(deps.DeactivateService, cookieSecure)
	totpHandler := handlers.NewTotpHandler(deps.TotpService)
	followHandler := handlers.NewFollowHandler(deps.FollowService)
	notificationHandler := handlers.NewNotificationHandler(deps.NotificationService)
	streamHandler := handlers.NewStreamHandler(deps.StreamService, deps.AccountService)
	chatHandler := handlers.NewChatHandler(deps.ChatService)
	webhookHandler := handlers.NewWebhookHandler(deps.StreamService, deps.LiveVideoClient, deps.Logger)
	authMW := AuthMiddleware(deps.SessionService, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/account", func(r chi.Router) {
		r.Post("/", accountHandler.Create)
		r.Post("/verify", accountHandler.VerifyEmail)
		r.Post("/recovery", recoveryHandler.Reset)
		r.Post("/recovery/new-password", recoveryHandler.NewPassword)

		r.Group(func(r chi.Router) {
			r.Use(authMW)
			r.Get("/me", accountHandler.Me)
			r.Patch("/me", accountHandler.ChangeInfo)
			r.Put("/email", accountHandler.ChangeEmail)
			r.Put("/password", accountHandler.ChangePassword)
			r.Put("/avatar", accountHandler.ChangeAvatar)
			r.Delete("/avatar", accountHandler.RemoveAvatar)
			r.Post("/deactivate", deactivateHandler.Request)
			r.Post("/deactivate/confirm", deactivateHandler.Confirm)
			r.Post("/totp/generate", totpHandler.Generate)
			r.Post("/totp/enable", totpHandler.Enable)
			r.Post("/totp/disable", totpHandler.Disable)
		})
	})

	r.Route("/session", func(r chi.Router) {
		r.Post("/login", sessionHandler.Login)
		r.With(authMW).Post("/logout", sessionHandler.Logout)
		r.With(authMW).Post("/logout_all", sessionHandler.LogoutAll)
	})

	r.Route("/follows", func(r chi.Router) {
		r.Use(authMW)
		r.Get("/followers", followHandler.Followers)
		r.Get("/followings", followHandler.Followings)
		r.Post("/{user_id}", followHandler.Follow)
		r.Delete("/{user_id}", followHandler.Unfollow)
		r.Get("/{user_id}/status", followHandler.Status)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Use(authMW)
		r.Get("/", notificationHandler.List)
		r.Get("/unread-count", notificationHandler.UnreadCount)
		r.Get("/settings", notificationHandler.Settings)
		r.Patch("/settings", notificationHandler.ChangeSettings)
	})

	r.Route("/streams", func(r chi.Router) {
		r.Get("/", streamHandler.List)
		r.Get("/random", streamHandler.Random)
		r.Get("/by-username/{username}", streamHandler.ByUsername)

		r.Group(func(r chi.Router) {
			r.Use(authMW)
			r.Get("/me", streamHandler.Me)
			r.Patch("/me", streamHandler.ChangeInfo)
			r.Get("/me/credentials", streamHandler.Credentials)
			r.Post("/me/ingress", streamHandler.CreateIngress)
			r.Put("/me/thumbnail", streamHandler.ChangeThumbnail)
			r.Delete("/me/thumbnail", streamHandler.RemoveThumbnail)
		})
	})

	r.Route("/chat/{stream_id}", func(r chi.Router) {
		r.Get("/messages", chatHandler.History)
		r.Get("/subscribe", chatHandler.Subscribe)
		r.With(authMW).Post("/messages", chatHandler.Send)
	})

	r.Post("/webhooks/livevideo", webhookHandler.LiveVideo)
}
