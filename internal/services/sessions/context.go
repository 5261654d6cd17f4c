package sessions

import (
	"context"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
)

type identityContextKey string

const identityKey identityContextKey = "session_identity"

type Identity struct {
	User model.User
	SID  string
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
