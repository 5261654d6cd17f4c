package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	followsvc "github.com/key-forr/keytostream-backend/internal/services/follow"
	"github.com/key-forr/keytostream-backend/internal/transport/http/dto"
	httperrors "github.com/key-forr/keytostream-backend/internal/transport/http/errors"
)

type FollowHandler struct {
	service *followsvc.Service
}

func NewFollowHandler(service *followsvc.Service) *FollowHandler {
	return &FollowHandler{service: service}
}

func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "FOLLOW_SERVICE_UNAVAILABLE", "follow service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	targetID := chi.URLParam(r, "user_id")
	if err := h.service.Follow(r.Context(), identity.User.ID, targetID); err != nil {
		handleFollowError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "FOLLOW_SERVICE_UNAVAILABLE", "follow service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	targetID := chi.URLParam(r, "user_id")
	if err := h.service.Unfollow(r.Context(), identity.User.ID, targetID); err != nil {
		handleFollowError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

// Status reports whether the caller follows the target plus the target's
// follower count, for rendering a channel page header.
func (h *FollowHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "FOLLOW_SERVICE_UNAVAILABLE", "follow service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	targetID := chi.URLParam(r, "user_id")
	following, err := h.service.IsFollowing(r.Context(), identity.User.ID, targetID)
	if err != nil {
		handleFollowError(w, err)
		return
	}
	followers, err := h.service.CountFollowers(r.Context(), targetID)
	if err != nil {
		handleFollowError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.FollowStatusResponse{
		Following: following,
		Followers: followers,
	})
}

func (h *FollowHandler) Followers(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "FOLLOW_SERVICE_UNAVAILABLE", "follow service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListFollowers(r.Context(), identity.User.ID)
	if err != nil {
		handleFollowError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toFollowEntries(entries))
}

func (h *FollowHandler) Followings(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "FOLLOW_SERVICE_UNAVAILABLE", "follow service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListFollowings(r.Context(), identity.User.ID)
	if err != nil {
		handleFollowError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toFollowEntries(entries))
}

func toFollowEntries(entries []model.FollowEntry) []dto.FollowEntryResponse {
	out := make([]dto.FollowEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.FollowEntryResponse{
			User:      toPublicUser(entry.User),
			CreatedAt: entry.CreatedAt,
		})
	}
	return out
}

func handleFollowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, followsvc.ErrInvalidInput):
		writeBadRequest(w, "INVALID_REQUEST", "request validation failed")
	case errors.Is(err, followsvc.ErrSelfFollow):
		writeConflict(w, "SELF_FOLLOW", "cannot follow yourself")
	case errors.Is(err, followsvc.ErrUserNotFound):
		writeNotFound(w, "USER_NOT_FOUND", "user not found")
	case errors.Is(err, followsvc.ErrAlreadyFollowing):
		writeConflict(w, "ALREADY_FOLLOWING", "already following this user")
	case errors.Is(err, followsvc.ErrNotFollowing):
		writeConflict(w, "NOT_FOLLOWING", "not following this user")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
