package handlers

import (
	"errors"
	"net/http"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	notifysvc "github.com/key-forr/keytostream-backend/internal/services/notifications"
	"github.com/key-forr/keytostream-backend/internal/transport/http/dto"
	httperrors "github.com/key-forr/keytostream-backend/internal/transport/http/errors"
)

type NotificationHandler struct {
	service *notifysvc.Service
}

func NewNotificationHandler(service *notifysvc.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List returns the caller's inbox, newest first. Reading the list marks
// unread rows as read.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "NOTIFICATION_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	notifications, err := h.service.ListByUser(r.Context(), identity.User.ID)
	if err != nil {
		handleNotificationError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toNotificationResponses(notifications))
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "NOTIFICATION_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(r.Context(), identity.User.ID)
	if err != nil {
		handleNotificationError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.UnreadCountResponse{Count: count})
}

func (h *NotificationHandler) Settings(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "NOTIFICATION_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	settings, err := h.service.Settings(r.Context(), identity.User.ID)
	if err != nil {
		handleNotificationError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NotificationSettingsResponse{
		SiteNotifications:     settings.SiteNotifications,
		TelegramNotifications: settings.TelegramNotifications,
	})
}

func (h *NotificationHandler) ChangeSettings(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "NOTIFICATION_SERVICE_UNAVAILABLE", "notification service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.NotificationSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.ChangeSettings(r.Context(), identity.User.ID, req.SiteNotifications, req.TelegramNotifications)
	if err != nil {
		handleNotificationError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.NotificationSettingsResponse{
		SiteNotifications:     result.Settings.SiteNotifications,
		TelegramNotifications: result.Settings.TelegramNotifications,
		TelegramAuthToken:     result.TelegramAuthToken,
	})
}

func toNotificationResponses(notifications []model.Notification) []dto.NotificationResponse {
	out := make([]dto.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, dto.NotificationResponse{
			ID:        n.ID,
			Type:      string(n.Type),
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

func handleNotificationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notifysvc.ErrInvalidInput):
		writeBadRequest(w, "INVALID_REQUEST", "request validation failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
