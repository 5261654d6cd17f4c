package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	sessionsvc "github.com/key-forr/keytostream-backend/internal/services/sessions"
	"github.com/key-forr/keytostream-backend/internal/transport/http/dto"
	httperrors "github.com/key-forr/keytostream-backend/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeConflict(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusConflict, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (sessionsvc.Identity, bool) {
	identity, ok := sessionsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return sessionsvc.Identity{}, false
	}
	return identity, true
}

// toPrivateUser renders a user for its owner, email included.
func toPrivateUser(user model.User) dto.UserResponse {
	resp := toPublicUser(user)
	resp.Email = user.Email
	return resp
}

// toPublicUser renders a user for everyone else.
func toPublicUser(user model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:              user.ID,
		Username:        user.Username,
		DisplayName:     user.DisplayName,
		Avatar:          user.Avatar,
		Bio:             user.Bio,
		IsVerified:      user.IsVerified,
		IsEmailVerified: user.IsEmailVerified,
		IsTotpEnabled:   user.IsTotpEnabled,
		CreatedAt:       user.CreatedAt,
	}
}
