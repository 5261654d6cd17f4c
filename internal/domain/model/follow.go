package model

import "time"

type Follow struct {
	ID          string
	FollowerID  string
	FollowingID string
	CreatedAt   time.Time
}

// FollowEntry is one row of a followers/followings listing together with
// the user on the far side of the edge.
type FollowEntry struct {
	Follow
	User User
}

// FollowerRecipient is the fan-out view of a follower: just enough to
// decide where a stream start notification should go.
type FollowerRecipient struct {
	UserID                string
	TelegramChatID        int64
	SiteNotifications     bool
	TelegramNotifications bool
}
