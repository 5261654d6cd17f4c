package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	"github.com/key-forr/keytostream-backend/internal/pkg/password"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	redrepo "github.com/key-forr/keytostream-backend/internal/repo/redis"
	sessionsvc "github.com/key-forr/keytostream-backend/internal/services/sessions"
)

type userStoreStub struct {
	users map[string]model.User
}

func (s userStoreStub) FindByLogin(_ context.Context, login string) (model.User, error) {
	for _, u := range s.users {
		if u.Username == login || u.Email == login {
			return u, nil
		}
	}
	return model.User{}, pgrepo.ErrUserNotFound
}

func (s userStoreStub) FindByID(_ context.Context, id string) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return u, nil
}

func newSessionHandlerForTest(t *testing.T) *SessionHandler {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := password.Hash("correct-horse-1")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	store := userStoreStub{users: map[string]model.User{
		"u-1": {
			ID:           "u-1",
			Username:     "streamer",
			Email:        "streamer@example.com",
			PasswordHash: hash,
		},
		"u-2": {
			ID:            "u-2",
			Username:      "guarded",
			Email:         "guarded@example.com",
			PasswordHash:  hash,
			TotpSecret:    "JBSWY3DPEHPK3PXP",
			IsTotpEnabled: true,
		},
	}}

	service := sessionsvc.NewService(store, redrepo.NewSessionRepo(client), 24*time.Hour)
	return NewSessionHandler(service, 24*time.Hour, false)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	h := newSessionHandlerForTest(t)

	body, err := json.Marshal(map[string]string{
		"login":    "streamer",
		"password": "correct-horse-1",
	})
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/session/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d, body %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var sessionCookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionsvc.CookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatalf("expected %s cookie to be set", sessionsvc.CookieName)
	}
	if !sessionCookie.HttpOnly {
		t.Fatalf("session cookie must be http-only")
	}

	var payload struct {
		User struct {
			Username string `json:"username"`
			Email    string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.User.Username != "streamer" {
		t.Fatalf("unexpected username: got %q want %q", payload.User.Username, "streamer")
	}
	if payload.User.Email != "streamer@example.com" {
		t.Fatalf("login response must include the owner's email")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	h := newSessionHandlerForTest(t)

	body, err := json.Marshal(map[string]string{
		"login":    "streamer",
		"password": "wrong",
	})
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/session/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "INVALID_PASSWORD" {
		t.Fatalf("unexpected error code: got %q want %q", payload.Code, "INVALID_PASSWORD")
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionsvc.CookieName {
			t.Fatalf("no session cookie must be set on failed login")
		}
	}
}

func TestLoginWithoutPinIsUnauthorized(t *testing.T) {
	h := newSessionHandlerForTest(t)

	body, err := json.Marshal(map[string]string{
		"login":    "guarded",
		"password": "correct-horse-1",
	})
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/session/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "PIN_REQUIRED" {
		t.Fatalf("unexpected error code: got %q want %q", payload.Code, "PIN_REQUIRED")
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionsvc.CookieName {
			t.Fatalf("no session cookie must be set when the pin is missing")
		}
	}
}

func TestLoginRejectsUnknownFields(t *testing.T) {
	h := newSessionHandlerForTest(t)

	req := httptest.NewRequest(http.MethodPost, "/session/login",
		bytes.NewReader([]byte(`{"login":"streamer","password":"correct-horse-1","admin":true}`)))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}
