package handlers

import (
	"errors"
	"net/http"

	deactivatesvc "github.com/key-forr/keytostream-backend/internal/services/deactivate"
	sessionsvc "github.com/key-forr/keytostream-backend/internal/services/sessions"
	"github.com/key-forr/keytostream-backend/internal/transport/http/dto"
	httperrors "github.com/key-forr/keytostream-backend/internal/transport/http/errors"
)

type DeactivateHandler struct {
	service      *deactivatesvc.Service
	cookieSecure bool
}

func NewDeactivateHandler(service *deactivatesvc.Service, cookieSecure bool) *DeactivateHandler {
	return &DeactivateHandler{service: service, cookieSecure: cookieSecure}
}

func (h *DeactivateHandler) Request(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "DEACTIVATE_SERVICE_UNAVAILABLE", "deactivate service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.DeactivateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.Request(r.Context(), identity.User.ID, req.Email, req.Password); err != nil {
		handleDeactivateError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *DeactivateHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "DEACTIVATE_SERVICE_UNAVAILABLE", "deactivate service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.ConfirmDeactivateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.Confirm(r.Context(), identity.User.ID, req.Code); err != nil {
		handleDeactivateError(w, err)
		return
	}

	sessionsvc.ClearCookie(w, h.cookieSecure)
	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func handleDeactivateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, deactivatesvc.ErrInvalidInput):
		writeBadRequest(w, "INVALID_REQUEST", "request validation failed")
	case errors.Is(err, deactivatesvc.ErrInvalidCredentials):
		writeBadRequest(w, "INVALID_CREDENTIALS", "email or password does not match")
	case errors.Is(err, deactivatesvc.ErrCodeNotFound):
		writeNotFound(w, "CODE_NOT_FOUND", "code not found or already used")
	case errors.Is(err, deactivatesvc.ErrInvalidCode):
		writeBadRequest(w, "INVALID_CODE", "code does not belong to this account")
	case errors.Is(err, deactivatesvc.ErrCodeExpired):
		writeBadRequest(w, "CODE_EXPIRED", "code has expired")
	case errors.Is(err, deactivatesvc.ErrAlreadyDeactivated):
		writeConflict(w, "ALREADY_DEACTIVATED", "account is already deactivated")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
