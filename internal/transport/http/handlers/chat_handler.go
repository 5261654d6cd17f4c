package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	chatsvc "github.com/key-forr/keytostream-backend/internal/services/chat"
	"github.com/key-forr/keytostream-backend/internal/transport/http/dto"
	httperrors "github.com/key-forr/keytostream-backend/internal/transport/http/errors"
)

type ChatHandler struct {
	service *chatsvc.Service
}

func NewChatHandler(service *chatsvc.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := h.service.History(r.Context(), chi.URLParam(r, "stream_id"), limit)
	if err != nil {
		handleChatError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toChatMessages(messages))
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	message, err := h.service.Send(r.Context(), chi.URLParam(r, "stream_id"), identity.User, req.Text)
	if err != nil {
		handleChatError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, toChatMessage(message))
}

// Subscribe streams chat messages over server-sent events until the
// client disconnects.
func (h *ChatHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternal(w, "STREAMING_UNSUPPORTED", "response writer does not support streaming")
		return
	}

	messages, err := h.service.Subscribe(r.Context(), chi.URLParam(r, "stream_id"))
	if err != nil {
		handleChatError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	encoder := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case message, open := <-messages:
			if !open {
				return
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if err := encoder.Encode(toChatMessage(message)); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func toChatMessages(messages []model.ChatMessage) []dto.ChatMessageResponse {
	out := make([]dto.ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, toChatMessage(message))
	}
	return out
}

func toChatMessage(message model.ChatMessage) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		ID:        message.ID,
		StreamID:  message.StreamID,
		UserID:    message.UserID,
		Username:  message.Username,
		Text:      message.Text,
		CreatedAt: message.CreatedAt,
	}
}

func handleChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatsvc.ErrInvalidInput):
		writeBadRequest(w, "INVALID_REQUEST", "request validation failed")
	case errors.Is(err, chatsvc.ErrMessageTooLong):
		writeBadRequest(w, "MESSAGE_TOO_LONG", "message exceeds the length limit")
	case errors.Is(err, chatsvc.ErrStreamNotFound):
		writeNotFound(w, "STREAM_NOT_FOUND", "stream not found")
	case errors.Is(err, chatsvc.ErrStreamOffline):
		writeConflict(w, "STREAM_OFFLINE", "chat is only open while the stream is live")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
