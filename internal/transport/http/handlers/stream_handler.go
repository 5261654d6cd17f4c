package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	accountsvc "github.com/key-forr/keytostream-backend/internal/services/accounts"
	streamsvc "github.com/key-forr/keytostream-backend/internal/services/streams"
	"github.com/key-forr/keytostream-backend/internal/transport/http/dto"
	httperrors "github.com/key-forr/keytostream-backend/internal/transport/http/errors"
)

type StreamHandler struct {
	service  *streamsvc.Service
	accounts *accountsvc.Service
}

func NewStreamHandler(service *streamsvc.Service, accounts *accountsvc.Service) *StreamHandler {
	return &StreamHandler{service: service, accounts: accounts}
}

// List returns the public directory, live channels first. An optional
// ?search= term matches titles and usernames.
func (h *StreamHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "STREAM_SERVICE_UNAVAILABLE", "stream service is unavailable")
		return
	}

	entries, err := h.service.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		handleStreamError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toStreamEntries(entries))
}

func (h *StreamHandler) Random(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "STREAM_SERVICE_UNAVAILABLE", "stream service is unavailable")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.Random(r.Context(), limit)
	if err != nil {
		handleStreamError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toStreamEntries(entries))
}

// ByUsername is the public channel page view.
func (h *StreamHandler) ByUsername(w http.ResponseWriter, r *http.Request) {
	if h.service == nil || h.accounts == nil {
		writeInternal(w, "STREAM_SERVICE_UNAVAILABLE", "stream service is unavailable")
		return
	}

	user, err := h.accounts.FindByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		if errors.Is(err, accountsvc.ErrNotFound) {
			writeNotFound(w, "USER_NOT_FOUND", "user not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
		return
	}

	stream, err := h.service.FindByUserID(r.Context(), user.ID)
	if err != nil {
		handleStreamError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toStreamResponse(stream, user))
}

// Me is the owner view of the caller's own stream.
func (h *StreamHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "STREAM_SERVICE_UNAVAILABLE", "stream service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	stream, err := h.service.FindByUserID(r.Context(), identity.User.ID)
	if err != nil {
		handleStreamError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toStreamResponse(stream, identity.User))
}

// Credentials returns the RTMP endpoint and key, owner only.
func (h *StreamHandler) Credentials(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "STREAM_SERVICE_UNAVAILABLE", "stream service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	stream, err := h.service.FindByUserID(r.Context(), identity.User.ID)
	if err != nil {
		handleStreamError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.StreamCredentialsResponse{
		IngressID: stream.IngressID,
		ServerURL: stream.ServerURL,
		StreamKey: stream.StreamKey,
	})
}

func (h *StreamHandler) ChangeInfo(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "STREAM_SERVICE_UNAVAILABLE", "stream service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.ChangeStreamInfoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.ChangeInfo(r.Context(), identity.User.ID, req.Title, req.Category); err != nil {
		handleStreamError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *StreamHandler) ChangeThumbnail(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "STREAM_SERVICE_UNAVAILABLE", "stream service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeBadRequest(w, "INVALID_UPLOAD", "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "INVALID_UPLOAD", "file field is required")
		return
	}
	defer file.Close()

	key, err := h.service.ChangeThumbnail(r.Context(), identity.User.ID, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		handleStreamError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ThumbnailResponse{ThumbnailURL: key})
}

func (h *StreamHandler) RemoveThumbnail(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "STREAM_SERVICE_UNAVAILABLE", "stream service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveThumbnail(r.Context(), identity.User.ID); err != nil {
		handleStreamError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

// CreateIngress rotates the channel's RTMP credentials.
func (h *StreamHandler) CreateIngress(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "STREAM_SERVICE_UNAVAILABLE", "stream service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	stream, err := h.service.CreateIngress(r.Context(), identity.User.ID)
	if err != nil {
		handleStreamError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.StreamCredentialsResponse{
		IngressID: stream.IngressID,
		ServerURL: stream.ServerURL,
		StreamKey: stream.StreamKey,
	})
}

func toStreamEntries(entries []model.StreamEntry) []dto.StreamResponse {
	out := make([]dto.StreamResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toStreamResponse(entry.Stream, entry.User))
	}
	return out
}

func toStreamResponse(stream model.Stream, user model.User) dto.StreamResponse {
	return dto.StreamResponse{
		ID:           stream.ID,
		Title:        stream.Title,
		Category:     stream.Category,
		ThumbnailURL: stream.ThumbnailURL,
		IsLive:       stream.IsLive,
		User:         toPublicUser(user),
	}
}

func handleStreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, streamsvc.ErrInvalidInput):
		writeBadRequest(w, "INVALID_REQUEST", "request validation failed")
	case errors.Is(err, streamsvc.ErrStreamNotFound):
		writeNotFound(w, "STREAM_NOT_FOUND", "stream not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
