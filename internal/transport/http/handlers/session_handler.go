package handlers

import (
	"errors"
	"net/http"
	"time"

	sessionsvc "github.com/key-forr/keytostream-backend/internal/services/sessions"
	"github.com/key-forr/keytostream-backend/internal/transport/http/dto"
	httperrors "github.com/key-forr/keytostream-backend/internal/transport/http/errors"
)

type SessionHandler struct {
	service      *sessionsvc.Service
	sessionTTL   time.Duration
	cookieSecure bool
}

func NewSessionHandler(service *sessionsvc.Service, sessionTTL time.Duration, cookieSecure bool) *SessionHandler {
	return &SessionHandler{
		service:      service,
		sessionTTL:   sessionTTL,
		cookieSecure: cookieSecure,
	}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "SESSION_SERVICE_UNAVAILABLE", "session service is unavailable")
		return
	}

	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	res, err := h.service.Login(r.Context(), req.Login, req.Password, req.Pin)
	if err != nil {
		handleSessionError(w, err)
		return
	}

	sessionsvc.SetCookie(w, res.SID, time.Now().Add(h.sessionTTL), h.cookieSecure)
	httperrors.Write(w, http.StatusOK, dto.LoginResponse{User: toPrivateUser(res.User)})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "SESSION_SERVICE_UNAVAILABLE", "session service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), identity.SID); err != nil {
		handleSessionError(w, err)
		return
	}

	sessionsvc.ClearCookie(w, h.cookieSecure)
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *SessionHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "SESSION_SERVICE_UNAVAILABLE", "session service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.DestroyAll(r.Context(), identity.User.ID); err != nil {
		handleSessionError(w, err)
		return
	}

	sessionsvc.ClearCookie(w, h.cookieSecure)
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func handleSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionsvc.ErrInvalidInput):
		writeBadRequest(w, "INVALID_REQUEST", "request validation failed")
	case errors.Is(err, sessionsvc.ErrUserNotFound):
		writeNotFound(w, "USER_NOT_FOUND", "user not found")
	case errors.Is(err, sessionsvc.ErrInvalidPassword):
		writeUnauthorized(w, "INVALID_PASSWORD", "invalid password")
	case errors.Is(err, sessionsvc.ErrPinRequired):
		writeUnauthorized(w, "PIN_REQUIRED", "totp pin is required")
	case errors.Is(err, sessionsvc.ErrInvalidPin):
		writeUnauthorized(w, "INVALID_PIN", "invalid totp pin")
	case errors.Is(err, sessionsvc.ErrAccountDeactivated):
		writeUnauthorized(w, "ACCOUNT_DEACTIVATED", "account is deactivated")
	case errors.Is(err, sessionsvc.ErrUnauthorized):
		writeUnauthorized(w, "UNAUTHORIZED", "authentication failed")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
