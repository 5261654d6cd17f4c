// Package follow manages the follower graph between channels.
package follow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	notifysvc "github.com/key-forr/keytostream-backend/internal/services/notifications"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrSelfFollow       = errors.New("cannot follow yourself")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyFollowing = errors.New("already following")
	ErrNotFollowing     = errors.New("not following")
)

type FollowStore interface {
	Create(ctx context.Context, follow model.Follow) error
	Delete(ctx context.Context, followerID, followingID string) error
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	CountFollowers(ctx context.Context, userID string) (int, error)
	ListFollowers(ctx context.Context, userID string) ([]model.FollowEntry, error)
	ListFollowings(ctx context.Context, userID string) ([]model.FollowEntry, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
}

type Dispatcher interface {
	DispatchToUser(ctx context.Context, userID string, event notifysvc.Event) error
}

type Service struct {
	follows    FollowStore
	users      UserStore
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewService(follows FollowStore, users UserStore, dispatcher Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		follows:    follows,
		users:      users,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Follow creates the edge follower -> following and notifies the channel
// owner about the new follower.
func (s *Service) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == "" || followingID == "" {
		return ErrInvalidInput
	}
	if followerID == followingID {
		return ErrSelfFollow
	}

	target, err := s.users.FindByID(ctx, followingID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find follow target: %w", err)
	}
	if target.IsDeactivated {
		return ErrUserNotFound
	}

	follow := model.Follow{
		ID:          uuid.NewString(),
		FollowerID:  followerID,
		FollowingID: followingID,
	}
	if err := s.follows.Create(ctx, follow); err != nil {
		if errors.Is(err, pgrepo.ErrFollowExists) {
			return ErrAlreadyFollowing
		}
		return fmt.Errorf("create follow: %w", err)
	}

	if s.dispatcher != nil {
		follower, err := s.users.FindByID(ctx, followerID)
		if err == nil {
			if err := s.dispatcher.DispatchToUser(ctx, followingID, notifysvc.NewFollowerEvent(follower.Username)); err != nil {
				s.logger.Warn("new follower notification failed",
					zap.String("user_id", followingID), zap.Error(err))
			}
		}
	}

	return nil
}

func (s *Service) Unfollow(ctx context.Context, followerID, followingID string) error {
	if followerID == "" || followingID == "" {
		return ErrInvalidInput
	}
	if followerID == followingID {
		return ErrSelfFollow
	}

	if err := s.follows.Delete(ctx, followerID, followingID); err != nil {
		if errors.Is(err, pgrepo.ErrFollowNotFound) {
			return ErrNotFollowing
		}
		return fmt.Errorf("delete follow: %w", err)
	}

	return nil
}

func (s *Service) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	if followerID == "" || followingID == "" {
		return false, ErrInvalidInput
	}
	return s.follows.Exists(ctx, followerID, followingID)
}

func (s *Service) CountFollowers(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidInput
	}
	return s.follows.CountFollowers(ctx, userID)
}

func (s *Service) ListFollowers(ctx context.Context, userID string) ([]model.FollowEntry, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.follows.ListFollowers(ctx, userID)
}

func (s *Service) ListFollowings(ctx context.Context, userID string) ([]model.FollowEntry, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.follows.ListFollowings(ctx, userID)
}
