package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/key-forr/keytostream-backend/internal/domain/model"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	redrepo "github.com/key-forr/keytostream-backend/internal/repo/redis"
	chatsvc "github.com/key-forr/keytostream-backend/internal/services/chat"
)

func TestSendDeliversToSubscriber(t *testing.T) {
	svc, cleanup := newChatServiceForTest(t, model.Stream{ID: "s1", UserID: "owner", IsLive: true})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := svc.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	sender := model.User{ID: "u1", Username: "viewer"}
	sent, err := svc.Send(ctx, "s1", sender, "hello chat")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case got := <-messages:
		if got.ID != sent.ID || got.Text != "hello chat" || got.Username != "viewer" {
			t.Fatalf("unexpected message: %+v", got)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for published message")
	}
}

func TestSendRejectsOfflineStream(t *testing.T) {
	svc, cleanup := newChatServiceForTest(t, model.Stream{ID: "s1", UserID: "owner", IsLive: false})
	defer cleanup()

	_, err := svc.Send(context.Background(), "s1", model.User{ID: "u1", Username: "viewer"}, "anyone here?")
	if !errors.Is(err, chatsvc.ErrStreamOffline) {
		t.Fatalf("expected ErrStreamOffline, got %v", err)
	}
}

func TestSendUnknownStream(t *testing.T) {
	svc, cleanup := newChatServiceForTest(t)
	defer cleanup()

	_, err := svc.Send(context.Background(), "missing", model.User{ID: "u1", Username: "viewer"}, "hi")
	if !errors.Is(err, chatsvc.ErrStreamNotFound) {
		t.Fatalf("expected ErrStreamNotFound, got %v", err)
	}
}

func TestHistoryReturnsStoredMessages(t *testing.T) {
	svc, cleanup := newChatServiceForTest(t, model.Stream{ID: "s1", UserID: "owner", IsLive: true})
	defer cleanup()

	ctx := context.Background()
	sender := model.User{ID: "u1", Username: "viewer"}
	for _, text := range []string{"first", "second", "third"} {
		if _, err := svc.Send(ctx, "s1", sender, text); err != nil {
			t.Fatalf("send %q: %v", text, err)
		}
	}

	history, err := svc.History(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 || history[0].Text != "first" || history[2].Text != "third" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func newChatServiceForTest(t *testing.T, streams ...model.Stream) (*chatsvc.Service, func()) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})

	streamStore := &fakeStreamStore{streams: map[string]model.Stream{}}
	for _, stream := range streams {
		streamStore.streams[stream.ID] = stream
	}

	svc := chatsvc.NewService(&fakeMessageStore{}, streamStore, redrepo.NewChatPubSub(client))

	cleanup := func() {
		_ = client.Close()
		mini.Close()
	}

	return svc, cleanup
}

type fakeStreamStore struct {
	streams map[string]model.Stream
}

func (f *fakeStreamStore) FindByID(_ context.Context, id string) (model.Stream, error) {
	stream, ok := f.streams[id]
	if !ok {
		return model.Stream{}, pgrepo.ErrStreamNotFound
	}
	return stream, nil
}

type fakeMessageStore struct {
	mu       sync.Mutex
	messages []model.ChatMessage
}

func (f *fakeMessageStore) Create(_ context.Context, message model.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeMessageStore) History(_ context.Context, streamID string, limit int) ([]model.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ChatMessage
	for _, msg := range f.messages {
		if msg.StreamID == streamID {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
