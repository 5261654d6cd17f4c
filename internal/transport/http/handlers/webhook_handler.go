package handlers

import (
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/key-forr/keytostream-backend/internal/infra/livevideo"
	streamsvc "github.com/key-forr/keytostream-backend/internal/services/streams"
	"github.com/key-forr/keytostream-backend/internal/transport/http/dto"
	httperrors "github.com/key-forr/keytostream-backend/internal/transport/http/errors"
)

// WebhookHandler receives live-video server callbacks. Deliveries are
// authenticated by the signed token in the Authorization header, not by
// a user session.
type WebhookHandler struct {
	service *streamsvc.Service
	client  *livevideo.Client
	logger  *zap.Logger
}

func NewWebhookHandler(service *streamsvc.Service, client *livevideo.Client, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{service: service, client: client, logger: logger}
}

func (h *WebhookHandler) LiveVideo(w http.ResponseWriter, r *http.Request) {
	if h.service == nil || h.client == nil {
		writeInternal(w, "WEBHOOK_UNAVAILABLE", "webhook processing is unavailable")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "INVALID_WEBHOOK", "cannot read webhook body")
		return
	}

	authToken := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	event, err := h.client.VerifyWebhook(authToken, body)
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.Error(err))
		writeUnauthorized(w, "INVALID_WEBHOOK", "webhook verification failed")
		return
	}

	if err := h.service.HandleWebhook(r.Context(), event); err != nil {
		h.logger.Error("webhook handling failed",
			zap.String("event", event.Event),
			zap.String("ingress_id", event.IngressID),
			zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}
