package tokens_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/key-forr/keytostream-backend/internal/domain/enums"
	"github.com/key-forr/keytostream-backend/internal/domain/model"
	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	tokensvc "github.com/key-forr/keytostream-backend/internal/services/tokens"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func TestIssueAndConsumeRoundTrip(t *testing.T) {
	svc, _ := newTokenServiceForTest()
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "u1", enums.TokenTypeEmailVerify)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	consumed, err := svc.Consume(ctx, issued.Token, enums.TokenTypeEmailVerify)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if consumed.UserID != "u1" {
		t.Fatalf("unexpected owner: %q", consumed.UserID)
	}

	if _, err := svc.Consume(ctx, issued.Token, enums.TokenTypeEmailVerify); !errors.Is(err, tokensvc.ErrTokenNotFound) {
		t.Fatalf("second consume should fail with ErrTokenNotFound, got %v", err)
	}
}

func TestDeactivationTokenIsSixDigitCode(t *testing.T) {
	svc, _ := newTokenServiceForTest()

	issued, err := svc.Issue(context.Background(), "u1", enums.TokenTypeDeactivateAccount)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !sixDigits.MatchString(issued.Token) {
		t.Fatalf("expected six digit code, got %q", issued.Token)
	}
}

func TestIssueReplacesPreviousTokenOfSameType(t *testing.T) {
	svc, _ := newTokenServiceForTest()
	ctx := context.Background()

	first, err := svc.Issue(ctx, "u1", enums.TokenTypePasswordReset)
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	if _, err := svc.Issue(ctx, "u1", enums.TokenTypePasswordReset); err != nil {
		t.Fatalf("issue second: %v", err)
	}

	if _, err := svc.Consume(ctx, first.Token, enums.TokenTypePasswordReset); !errors.Is(err, tokensvc.ErrTokenNotFound) {
		t.Fatalf("first token should have been replaced, got %v", err)
	}
}

func TestConsumeWrongTypeDoesNotMatch(t *testing.T) {
	svc, _ := newTokenServiceForTest()
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "u1", enums.TokenTypeEmailVerify)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.Consume(ctx, issued.Token, enums.TokenTypePasswordReset); !errors.Is(err, tokensvc.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for wrong type, got %v", err)
	}
	// The original token must still be redeemable under its own type.
	if _, err := svc.Consume(ctx, issued.Token, enums.TokenTypeEmailVerify); err != nil {
		t.Fatalf("consume with correct type: %v", err)
	}
}

func TestExpiredTokenIsConsumedAndReported(t *testing.T) {
	svc, store := newTokenServiceForTest()
	ctx := context.Background()

	expired := model.Token{
		ID:        "t1",
		Token:     "stale-token",
		Type:      enums.TokenTypePasswordReset,
		UserID:    "u1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := store.Save(ctx, expired); err != nil {
		t.Fatalf("seed expired token: %v", err)
	}

	if _, err := svc.Consume(ctx, "stale-token", enums.TokenTypePasswordReset); !errors.Is(err, tokensvc.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	// The expired row is gone; a retry sees not-found.
	if _, err := svc.Consume(ctx, "stale-token", enums.TokenTypePasswordReset); !errors.Is(err, tokensvc.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound on retry, got %v", err)
	}
}

func TestConcurrentConsumeSucceedsAtMostOnce(t *testing.T) {
	svc, _ := newTokenServiceForTest()
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "u1", enums.TokenTypeEmailVerify)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Consume(ctx, issued.Token, enums.TokenTypeEmailVerify)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		} else if !errors.Is(err, tokensvc.ErrTokenNotFound) {
			t.Fatalf("unexpected consume error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", successes)
	}
}

func newTokenServiceForTest() (*tokensvc.Service, *fakeTokenStore) {
	store := &fakeTokenStore{tokens: map[string]model.Token{}}
	svc := tokensvc.NewService(store, tokensvc.TTLs{
		EmailVerify:   30 * time.Minute,
		PasswordReset: 15 * time.Minute,
		Deactivate:    5 * time.Minute,
		TelegramAuth:  15 * time.Minute,
	})
	return svc, store
}

// fakeTokenStore mirrors the database semantics: save replaces the
// user+type pair, consume removes and returns in one step.
type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]model.Token
}

func (f *fakeTokenStore) Save(_ context.Context, token model.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for value, existing := range f.tokens {
		if existing.UserID == token.UserID && existing.Type == token.Type {
			delete(f.tokens, value)
		}
	}
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeTokenStore) Consume(_ context.Context, value string, tokenType enums.TokenType) (model.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[value]
	if !ok || token.Type != tokenType {
		return model.Token{}, pgrepo.ErrTokenNotFound
	}
	delete(f.tokens, value)
	return token, nil
}
