package handlers

import (
	"errors"
	"net/http"

	accountsvc "github.com/key-forr/keytostream-backend/internal/services/accounts"
	"github.com/key-forr/keytostream-backend/internal/transport/http/dto"
	httperrors "github.com/key-forr/keytostream-backend/internal/transport/http/errors"
)

const maxUploadSize = 10 << 20

type AccountHandler struct {
	service *accountsvc.Service
}

func NewAccountHandler(service *accountsvc.Service) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCOUNT_SERVICE_UNAVAILABLE", "account service is unavailable")
		return
	}

	var req dto.CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	user, err := h.service.Create(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleAccountError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, toPrivateUser(user))
}

func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCOUNT_SERVICE_UNAVAILABLE", "account service is unavailable")
		return
	}

	var req dto.VerifyEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		handleAccountError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	httperrors.Write(w, http.StatusOK, toPrivateUser(identity.User))
}

func (h *AccountHandler) ChangeInfo(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCOUNT_SERVICE_UNAVAILABLE", "account service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.ChangeInfoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	user, err := h.service.ChangeInfo(r.Context(), identity.User.ID, req.Username, req.DisplayName, req.Bio)
	if err != nil {
		handleAccountError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, toPrivateUser(user))
}

func (h *AccountHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCOUNT_SERVICE_UNAVAILABLE", "account service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.ChangeEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.ChangeEmail(r.Context(), identity.User.ID, req.Email); err != nil {
		handleAccountError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCOUNT_SERVICE_UNAVAILABLE", "account service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.ChangePassword(r.Context(), identity.User.ID, req.OldPassword, req.NewPassword); err != nil {
		handleAccountError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *AccountHandler) ChangeAvatar(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCOUNT_SERVICE_UNAVAILABLE", "account service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "multipart form is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "file field is required")
		return
	}
	defer file.Close()

	objectKey, err := h.service.ChangeAvatar(r.Context(), identity.User.ID, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		handleAccountError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AvatarResponse{Avatar: objectKey})
}

func (h *AccountHandler) RemoveAvatar(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "ACCOUNT_SERVICE_UNAVAILABLE", "account service is unavailable")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveAvatar(r.Context(), identity.User.ID); err != nil {
		handleAccountError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func handleAccountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accountsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, accountsvc.ErrUsernameTaken):
		writeConflict(w, "USERNAME_TAKEN", "username is already taken")
	case errors.Is(err, accountsvc.ErrEmailTaken):
		writeConflict(w, "EMAIL_TAKEN", "email is already taken")
	case errors.Is(err, accountsvc.ErrInvalidPassword):
		writeBadRequest(w, "INVALID_PASSWORD", "current password does not match")
	case errors.Is(err, accountsvc.ErrInvalidToken):
		writeBadRequest(w, "INVALID_TOKEN", "token is invalid or already used")
	case errors.Is(err, accountsvc.ErrTokenExpired):
		writeBadRequest(w, "TOKEN_EXPIRED", "token has expired")
	case errors.Is(err, accountsvc.ErrNotFound):
		writeNotFound(w, "USER_NOT_FOUND", "user not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
