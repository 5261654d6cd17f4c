package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	followsvc "github.com/key-forr/keytostream-backend/internal/services/follow"
	notifysvc "github.com/key-forr/keytostream-backend/internal/services/notifications"
	sessionsvc "github.com/key-forr/keytostream-backend/internal/services/sessions"
)

type followStoreStub struct {
	edges map[[2]string]model.Follow
}

func (s *followStoreStub) Create(_ context.Context, follow model.Follow) error {
	key := [2]string{follow.FollowerID, follow.FollowingID}
	if _, ok := s.edges[key]; ok {
		return pgrepo.ErrFollowExists
	}
	s.edges[key] = follow
	return nil
}

func (s *followStoreStub) Delete(_ context.Context, followerID, followingID string) error {
	key := [2]string{followerID, followingID}
	if _, ok := s.edges[key]; !ok {
		return pgrepo.ErrFollowNotFound
	}
	delete(s.edges, key)
	return nil
}

func (s *followStoreStub) Exists(_ context.Context, followerID, followingID string) (bool, error) {
	_, ok := s.edges[[2]string{followerID, followingID}]
	return ok, nil
}

func (s *followStoreStub) CountFollowers(_ context.Context, _ string) (int, error) {
	return len(s.edges), nil
}

func (s *followStoreStub) ListFollowers(_ context.Context, _ string) ([]model.FollowEntry, error) {
	return nil, nil
}

func (s *followStoreStub) ListFollowings(_ context.Context, _ string) ([]model.FollowEntry, error) {
	return nil, nil
}

type dispatcherStub struct{}

func (dispatcherStub) DispatchToUser(_ context.Context, _ string, _ notifysvc.Event) error {
	return nil
}

func newFollowRouterForTest(t *testing.T) http.Handler {
	t.Helper()

	store := userStoreStub{users: map[string]model.User{
		"u-1": {ID: "u-1", Username: "streamer"},
		"u-2": {ID: "u-2", Username: "viewer"},
	}}
	service := followsvc.NewService(&followStoreStub{edges: map[[2]string]model.Follow{}}, store, dispatcherStub{}, nil)
	h := NewFollowHandler(service)

	r := chi.NewRouter()
	r.Post("/follows/{user_id}", h.Follow)
	return r
}

func followAs(t *testing.T, router http.Handler, callerID, targetID string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/follows/"+targetID, nil)
	ctx := sessionsvc.WithIdentity(req.Context(), sessionsvc.Identity{
		User: model.User{ID: callerID},
		SID:  "sid-1",
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req.WithContext(ctx))
	return rr
}

func TestFollowSelfIsConflict(t *testing.T) {
	router := newFollowRouterForTest(t)

	rr := followAs(t, router, "u-1", "u-1")
	if rr.Code != http.StatusConflict {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusConflict)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "SELF_FOLLOW" {
		t.Fatalf("unexpected error code: got %q want %q", payload.Code, "SELF_FOLLOW")
	}
}

func TestFollowUnknownTarget(t *testing.T) {
	router := newFollowRouterForTest(t)

	if rr := followAs(t, router, "u-1", "missing"); rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
}

func TestFollowTwiceConflicts(t *testing.T) {
	router := newFollowRouterForTest(t)

	if rr := followAs(t, router, "u-1", "u-2"); rr.Code != http.StatusOK {
		t.Fatalf("first follow: got %d want %d", rr.Code, http.StatusOK)
	}
	if rr := followAs(t, router, "u-1", "u-2"); rr.Code != http.StatusConflict {
		t.Fatalf("second follow: got %d want %d", rr.Code, http.StatusConflict)
	}
}
