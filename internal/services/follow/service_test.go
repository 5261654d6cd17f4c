package follow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	followsvc "github.com/key-forr/keytostream-backend/internal/services/follow"
	notifysvc "github.com/key-forr/keytostream-backend/internal/services/notifications"
)

func TestFollowCreatesEdgeAndNotifies(t *testing.T) {
	svc, store, dispatcher := newFollowServiceForTest(
		model.User{ID: "a", Username: "alice"},
		model.User{ID: "b", Username: "bob"},
	)

	ctx := context.Background()
	if err := svc.Follow(ctx, "a", "b"); err != nil {
		t.Fatalf("follow: %v", err)
	}

	exists, err := store.Exists(ctx, "a", "b")
	if err != nil || !exists {
		t.Fatalf("expected edge a->b, exists=%v err=%v", exists, err)
	}
	if dispatcher.lastUserID != "b" {
		t.Fatalf("expected notification for b, got %q", dispatcher.lastUserID)
	}
}

func TestFollowConflicts(t *testing.T) {
	svc, _, _ := newFollowServiceForTest(
		model.User{ID: "a", Username: "alice"},
		model.User{ID: "b", Username: "bob"},
		model.User{ID: "c", Username: "carol", IsDeactivated: true},
	)

	ctx := context.Background()
	if err := svc.Follow(ctx, "a", "a"); !errors.Is(err, followsvc.ErrSelfFollow) {
		t.Fatalf("expected ErrSelfFollow, got %v", err)
	}
	if err := svc.Follow(ctx, "a", "missing"); !errors.Is(err, followsvc.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := svc.Follow(ctx, "a", "c"); !errors.Is(err, followsvc.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for deactivated target, got %v", err)
	}

	if err := svc.Follow(ctx, "a", "b"); err != nil {
		t.Fatalf("first follow: %v", err)
	}
	if err := svc.Follow(ctx, "a", "b"); !errors.Is(err, followsvc.ErrAlreadyFollowing) {
		t.Fatalf("expected ErrAlreadyFollowing, got %v", err)
	}
}

func TestUnfollowAbsentEdge(t *testing.T) {
	svc, _, _ := newFollowServiceForTest(
		model.User{ID: "a", Username: "alice"},
		model.User{ID: "b", Username: "bob"},
	)

	if err := svc.Unfollow(context.Background(), "a", "b"); !errors.Is(err, followsvc.ErrNotFollowing) {
		t.Fatalf("expected ErrNotFollowing, got %v", err)
	}
}

func newFollowServiceForTest(users ...model.User) (*followsvc.Service, *fakeFollowStore, *fakeDispatcher) {
	userStore := &fakeUserStore{users: map[string]model.User{}}
	for _, user := range users {
		userStore.users[user.ID] = user
	}
	followStore := &fakeFollowStore{edges: map[[2]string]model.Follow{}}
	dispatcher := &fakeDispatcher{}
	svc := followsvc.NewService(followStore, userStore, dispatcher, nil)
	return svc, followStore, dispatcher
}

type fakeUserStore struct {
	users map[string]model.User
}

func (f *fakeUserStore) FindByID(_ context.Context, id string) (model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

type fakeFollowStore struct {
	edges map[[2]string]model.Follow
}

func (f *fakeFollowStore) Create(_ context.Context, follow model.Follow) error {
	key := [2]string{follow.FollowerID, follow.FollowingID}
	if _, ok := f.edges[key]; ok {
		return pgrepo.ErrFollowExists
	}
	f.edges[key] = follow
	return nil
}

func (f *fakeFollowStore) Delete(_ context.Context, followerID, followingID string) error {
	key := [2]string{followerID, followingID}
	if _, ok := f.edges[key]; !ok {
		return pgrepo.ErrFollowNotFound
	}
	delete(f.edges, key)
	return nil
}

func (f *fakeFollowStore) Exists(_ context.Context, followerID, followingID string) (bool, error) {
	_, ok := f.edges[[2]string{followerID, followingID}]
	return ok, nil
}

func (f *fakeFollowStore) CountFollowers(_ context.Context, userID string) (int, error) {
	var count int
	for key := range f.edges {
		if key[1] == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeFollowStore) ListFollowers(_ context.Context, userID string) ([]model.FollowEntry, error) {
	var out []model.FollowEntry
	for key, edge := range f.edges {
		if key[1] == userID {
			out = append(out, model.FollowEntry{Follow: edge})
		}
	}
	return out, nil
}

func (f *fakeFollowStore) ListFollowings(_ context.Context, userID string) ([]model.FollowEntry, error) {
	var out []model.FollowEntry
	for key, edge := range f.edges {
		if key[0] == userID {
			out = append(out, model.FollowEntry{Follow: edge})
		}
	}
	return out, nil
}

type fakeDispatcher struct {
	lastUserID string
}

func (f *fakeDispatcher) DispatchToUser(_ context.Context, userID string, _ notifysvc.Event) error {
	f.lastUserID = userID
	return nil
}
