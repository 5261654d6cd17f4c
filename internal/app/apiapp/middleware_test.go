package apiapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	"github.com/key-forr/keytostream-backend/internal/pkg/password"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	redrepo "github.com/key-forr/keytostream-backend/internal/repo/redis"
	sessionsvc "github.com/key-forr/keytostream-backend/internal/services/sessions"
)

type userStoreStub struct {
	user model.User
}

func (s userStoreStub) FindByLogin(_ context.Context, login string) (model.User, error) {
	if s.user.Username == login || s.user.Email == login {
		return s.user, nil
	}
	return model.User{}, pgrepo.ErrUserNotFound
}

func (s userStoreStub) FindByID(_ context.Context, id string) (model.User, error) {
	if s.user.ID == id {
		return s.user, nil
	}
	return model.User{}, pgrepo.ErrUserNotFound
}

func newSessionServiceForTest(t *testing.T) *sessionsvc.Service {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := password.Hash("correct-horse-1")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	store := userStoreStub{user: model.User{
		ID:           "u-1",
		Username:     "streamer",
		Email:        "streamer@example.com",
		PasswordHash: hash,
	}}

	return sessionsvc.NewService(store, redrepo.NewSessionRepo(client), 24*time.Hour)
}

func TestAuthMiddlewareRejectsMissingCookie(t *testing.T) {
	mw := AuthMiddleware(newSessionServiceForTest(t), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/account/me", nil)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not be called without a session cookie")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsUnknownSession(t *testing.T) {
	mw := AuthMiddleware(newSessionServiceForTest(t), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/account/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionsvc.CookieName, Value: "no-such-sid"})
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not be called with an unknown session")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareInjectsIdentity(t *testing.T) {
	service := newSessionServiceForTest(t)
	mw := AuthMiddleware(service, zap.NewNop())

	res, err := service.Login(context.Background(), "streamer", "correct-horse-1", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/account/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionsvc.CookieName, Value: res.SID})
	rr := httptest.NewRecorder()

	var got sessionsvc.Identity
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := sessionsvc.IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity missing from request context")
		}
		got = identity
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
	if got.User.ID != "u-1" {
		t.Fatalf("unexpected user id: got %q want %q", got.User.ID, "u-1")
	}
	if got.SID != res.SID {
		t.Fatalf("unexpected sid: got %q want %q", got.SID, res.SID)
	}
}
