package deactivate_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/key-forr/keytostream-backend/internal/domain/enums"
	"github.com/key-forr/keytostream-backend/internal/domain/model"
	"github.com/key-forr/keytostream-backend/internal/pkg/password"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	deactivatesvc "github.com/key-forr/keytostream-backend/internal/services/deactivate"
	tokensvc "github.com/key-forr/keytostream-backend/internal/services/tokens"
)

func TestDeactivateTwoPhase(t *testing.T) {
	svc, users, tokens, sessions, mailer, telegram := newDeactivateServiceForTest(t)
	ctx := context.Background()

	if err := svc.Request(ctx, "u-1", "ann@example.com", "correct-horse-1"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if mailer.lastTo != "ann@example.com" {
		t.Fatalf("expected code mailed to ann@example.com, got %q", mailer.lastTo)
	}
	if tokens.issued == "" {
		t.Fatal("expected a deactivation code to be issued")
	}
	if telegram.lastChatID != 42 {
		t.Fatalf("expected code delivered to linked chat 42, got %d", telegram.lastChatID)
	}
	if !strings.Contains(telegram.lastText, tokens.issued) {
		t.Fatalf("telegram message must carry the code, got %q", telegram.lastText)
	}

	if err := svc.Confirm(ctx, "u-1", tokens.issued); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if users.deactivatedAt.IsZero() {
		t.Fatal("expected account to be marked deactivated")
	}
	if sessions.destroyedUserID != "u-1" {
		t.Fatalf("expected sessions destroyed for u-1, got %q", sessions.destroyedUserID)
	}
}

func TestDeactivateRequestRejectsBadCredentials(t *testing.T) {
	svc, _, tokens, _, _, _ := newDeactivateServiceForTest(t)
	ctx := context.Background()

	if err := svc.Request(ctx, "u-1", "other@example.com", "correct-horse-1"); !errors.Is(err, deactivatesvc.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong email, got %v", err)
	}
	if err := svc.Request(ctx, "u-1", "ann@example.com", "wrong"); !errors.Is(err, deactivatesvc.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if tokens.issued != "" {
		t.Fatalf("no code should be issued on failed checks, got %q", tokens.issued)
	}
}

func TestDeactivateConfirmRejectsForeignAndExpiredCodes(t *testing.T) {
	svc, users, tokens, _, _, _ := newDeactivateServiceForTest(t)
	ctx := context.Background()

	if err := svc.Confirm(ctx, "u-1", "no-such-code"); !errors.Is(err, deactivatesvc.ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}

	if err := svc.Request(ctx, "u-1", "ann@example.com", "correct-horse-1"); err != nil {
		t.Fatalf("request: %v", err)
	}

	if err := svc.Confirm(ctx, "u-2", tokens.issued); !errors.Is(err, deactivatesvc.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode for another user's code, got %v", err)
	}

	tokens.expired = true
	if err := svc.Confirm(ctx, "u-1", tokens.issued); !errors.Is(err, deactivatesvc.ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
	if !users.deactivatedAt.IsZero() {
		t.Fatal("account must stay active when confirmation fails")
	}
}

func newDeactivateServiceForTest(t *testing.T) (*deactivatesvc.Service, *deactivateUserStore, *deactivateTokenService, *sessionDestroyerStub, *mailerStub, *telegramSenderStub) {
	t.Helper()

	hash, err := password.Hash("correct-horse-1")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users := &deactivateUserStore{user: model.User{
		ID:             "u-1",
		Username:       "ann",
		Email:          "ann@example.com",
		PasswordHash:   hash,
		TelegramChatID: 42,
	}}
	tokens := &deactivateTokenService{}
	sessions := &sessionDestroyerStub{}
	mailer := &mailerStub{}
	telegram := &telegramSenderStub{}

	svc := deactivatesvc.NewService(users, tokens, sessions, mailer, telegram, nil)
	return svc, users, tokens, sessions, mailer, telegram
}

type deactivateUserStore struct {
	user          model.User
	deactivatedAt time.Time
}

func (f *deactivateUserStore) FindByID(_ context.Context, id string) (model.User, error) {
	if id != f.user.ID {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return f.user, nil
}

func (f *deactivateUserStore) SetDeactivated(_ context.Context, userID string, at time.Time) error {
	if userID != f.user.ID {
		return pgrepo.ErrUserNotFound
	}
	f.user.IsDeactivated = true
	f.deactivatedAt = at
	return nil
}

type deactivateTokenService struct {
	issued  string
	expired bool
}

func (f *deactivateTokenService) Issue(_ context.Context, userID string, tokenType enums.TokenType) (model.Token, error) {
	f.issued = "482910"
	return model.Token{
		ID:        "t-1",
		Token:     f.issued,
		Type:      tokenType,
		UserID:    userID,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}, nil
}

func (f *deactivateTokenService) Consume(_ context.Context, value string, tokenType enums.TokenType) (model.Token, error) {
	if f.issued == "" || value != f.issued || tokenType != enums.TokenTypeDeactivateAccount {
		return model.Token{}, tokensvc.ErrTokenNotFound
	}
	if f.expired {
		return model.Token{}, tokensvc.ErrTokenExpired
	}
	return model.Token{ID: "t-1", Token: value, Type: tokenType, UserID: "u-1"}, nil
}

type sessionDestroyerStub struct {
	destroyedUserID string
}

func (f *sessionDestroyerStub) DestroyAll(_ context.Context, userID string) error {
	f.destroyedUserID = userID
	return nil
}

type mailerStub struct {
	lastTo      string
	lastSubject string
}

func (f *mailerStub) Send(to, subject, _ string) error {
	f.lastTo = to
	f.lastSubject = subject
	return nil
}

type telegramSenderStub struct {
	lastChatID int64
	lastText   string
}

func (f *telegramSenderStub) SendHTML(chatID int64, text string) error {
	f.lastChatID = chatID
	f.lastText = text
	return nil
}
