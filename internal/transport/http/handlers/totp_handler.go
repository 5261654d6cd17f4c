package handlers

import (
	"errors"
	"net/http"

	totpsvc "github.com/key-forr/keytostream-backend/internal/services/totp"
	"github.com/key-forr/keytostream-backend/internal/transport/http/dto"
	httperrors "github.com/key-forr/keytostream-backend/internal/transport/http/errors"
)

type TotpHandler struct {
	service *totpsvc.Service
}

func NewTotpHandler(service *totpsvc.Service) *TotpHandler {
	return &TotpHandler{service: service}
}

func (h *TotpHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "TOTP_SERVICE_UNAVAILABLE", "totp service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	setup, err := h.service.Generate(r.Context(), identity.User.ID)
	if err != nil {
		handleTotpError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.TotpSetupResponse{
		Secret:     setup.Secret,
		OtpauthURL: setup.OtpauthURL,
		QRDataURL:  setup.QRDataURL,
	})
}

func (h *TotpHandler) Enable(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "TOTP_SERVICE_UNAVAILABLE", "totp service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.EnableTotpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.Enable(r.Context(), identity.User.ID, req.Secret, req.Pin); err != nil {
		handleTotpError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *TotpHandler) Disable(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "TOTP_SERVICE_UNAVAILABLE", "totp service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.Disable(r.Context(), identity.User.ID); err != nil {
		handleTotpError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func handleTotpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, totpsvc.ErrInvalidInput):
		writeBadRequest(w, "INVALID_REQUEST", "request validation failed")
	case errors.Is(err, totpsvc.ErrUserNotFound):
		writeNotFound(w, "USER_NOT_FOUND", "user not found")
	case errors.Is(err, totpsvc.ErrInvalidPin):
		writeBadRequest(w, "INVALID_PIN", "pin does not match the secret")
	case errors.Is(err, totpsvc.ErrAlreadyEnabled):
		writeConflict(w, "TOTP_ALREADY_ENABLED", "two-factor auth is already enabled")
	case errors.Is(err, totpsvc.ErrNotEnabled):
		writeConflict(w, "TOTP_NOT_ENABLED", "two-factor auth is not enabled")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
