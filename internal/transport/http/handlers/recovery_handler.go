package handlers

import (
	"errors"
	"net/http"

	recoverysvc "github.com/key-forr/keytostream-backend/internal/services/recovery"
	"github.com/key-forr/keytostream-backend/internal/transport/http/dto"
	httperrors "github.com/key-forr/keytostream-backend/internal/transport/http/errors"
)

type RecoveryHandler struct {
	service *recoverysvc.Service
}

func NewRecoveryHandler(service *recoverysvc.Service) *RecoveryHandler {
	return &RecoveryHandler{service: service}
}

func (h *RecoveryHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "RECOVERY_SERVICE_UNAVAILABLE", "recovery service is unavailable")
		return
	}

	var req dto.ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.Reset(r.Context(), req.Email); err != nil {
		handleRecoveryError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *RecoveryHandler) NewPassword(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "RECOVERY_SERVICE_UNAVAILABLE", "recovery service is unavailable")
		return
	}

	var req dto.NewPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.NewPassword(r.Context(), req.Token, req.Password); err != nil {
		handleRecoveryError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func handleRecoveryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recoverysvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, recoverysvc.ErrUserNotFound):
		writeNotFound(w, "USER_NOT_FOUND", "no account with this email")
	case errors.Is(err, recoverysvc.ErrInvalidToken):
		writeBadRequest(w, "INVALID_TOKEN", "token is invalid or already used")
	case errors.Is(err, recoverysvc.ErrTokenExpired):
		writeBadRequest(w, "TOKEN_EXPIRED", "token has expired")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
