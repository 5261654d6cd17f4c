package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/key-forr/keytostream-backend/internal/domain/enums"
	"github.com/key-forr/keytostream-backend/internal/domain/model"
	"github.com/key-forr/keytostream-backend/internal/pkg/password"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	deactivatesvc "github.com/key-forr/keytostream-backend/internal/services/deactivate"
	sessionsvc "github.com/key-forr/keytostream-backend/internal/services/sessions"
	tokensvc "github.com/key-forr/keytostream-backend/internal/services/tokens"
)

type deactivateUserStub struct {
	user model.User
}

func (s *deactivateUserStub) FindByID(_ context.Context, id string) (model.User, error) {
	if id != s.user.ID {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return s.user, nil
}

func (s *deactivateUserStub) SetDeactivated(_ context.Context, userID string, _ time.Time) error {
	if userID != s.user.ID {
		return pgrepo.ErrUserNotFound
	}
	s.user.IsDeactivated = true
	return nil
}

type deactivateTokenStub struct {
	issued string
}

func (s *deactivateTokenStub) Issue(_ context.Context, userID string, tokenType enums.TokenType) (model.Token, error) {
	s.issued = "271828"
	return model.Token{ID: "t-1", Token: s.issued, Type: tokenType, UserID: userID}, nil
}

func (s *deactivateTokenStub) Consume(_ context.Context, value string, tokenType enums.TokenType) (model.Token, error) {
	if s.issued == "" || value != s.issued || tokenType != enums.TokenTypeDeactivateAccount {
		return model.Token{}, tokensvc.ErrTokenNotFound
	}
	return model.Token{ID: "t-1", Token: value, Type: tokenType, UserID: "u-1"}, nil
}

type sessionDestroyerNop struct{}

func (sessionDestroyerNop) DestroyAll(_ context.Context, _ string) error { return nil }

func newDeactivateHandlerForTest(t *testing.T) *DeactivateHandler {
	t.Helper()

	hash, err := password.Hash("correct-horse-1")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users := &deactivateUserStub{user: model.User{
		ID:           "u-1",
		Username:     "streamer",
		Email:        "streamer@example.com",
		PasswordHash: hash,
	}}
	service := deactivatesvc.NewService(users, &deactivateTokenStub{}, sessionDestroyerNop{}, nil, nil, nil)
	return NewDeactivateHandler(service, false)
}

func deactivateRequestAs(t *testing.T, h http.HandlerFunc, target string, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	ctx := sessionsvc.WithIdentity(req.Context(), sessionsvc.Identity{
		User: model.User{ID: "u-1"},
		SID:  "sid-1",
	})
	rr := httptest.NewRecorder()
	h(rr, req.WithContext(ctx))
	return rr
}

func TestDeactivateRequestBadCredentialsIsBadRequest(t *testing.T) {
	h := newDeactivateHandlerForTest(t)

	rr := deactivateRequestAs(t, h.Request, "/account/deactivate", map[string]string{
		"email":    "streamer@example.com",
		"password": "wrong",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("unexpected error code: got %q want %q", payload.Code, "INVALID_CREDENTIALS")
	}
}

func TestDeactivateConfirmUnknownCodeIsNotFound(t *testing.T) {
	h := newDeactivateHandlerForTest(t)

	rr := deactivateRequestAs(t, h.Confirm, "/account/deactivate/confirm", map[string]string{
		"code": "000000",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "CODE_NOT_FOUND" {
		t.Fatalf("unexpected error code: got %q want %q", payload.Code, "CODE_NOT_FOUND")
	}
}
