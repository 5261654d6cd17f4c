package cleanup

import (
	"context"
	"testing"
	"time"

	pgrepo "github.com/key-forr/keytostream-backend/internal/repo/postgres"
	notifysvc "github.com/key-forr/keytostream-backend/internal/services/notifications"
)

func TestRunDeletesAccountsPastRetention(t *testing.T) {
	now := time.Date(2026, time.March, 3, 1, 0, 0, 0, time.UTC)

	accounts := &fakeAccounts{
		rows: []deactivatedRow{
			{
				account: pgrepo.DeactivatedAccount{
					ID:     "old",
					Email:  "old@example.com",
					Avatar: "avatars/old/a",
				},
				deactivatedAt: now.Add(-8 * 24 * time.Hour),
			},
			{
				account: pgrepo.DeactivatedAccount{
					ID:    "fresh",
					Email: "fresh@example.com",
				},
				deactivatedAt: now.Add(-3 * 24 * time.Hour),
			},
		},
	}
	storage := &fakeRemover{}
	mail := &fakeMailer{}

	job := NewAccountCleanupJob(accounts, nil, storage, mail, nil, 7*24*time.Hour, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	if len(accounts.rows) != 1 || accounts.rows[0].account.ID != "fresh" {
		t.Fatalf("expected only the fresh account to remain, got %+v", accounts.rows)
	}
	if len(mail.sent) != 1 || mail.sent[0] != "old@example.com" {
		t.Fatalf("expected deletion mail to old@example.com, got %v", mail.sent)
	}
	if len(storage.removed) != 1 || storage.removed[0] != "avatars/old/a" {
		t.Fatalf("expected avatar object removed, got %v", storage.removed)
	}
}

func TestRunBoundaryIsExactlyRetentionOld(t *testing.T) {
	now := time.Date(2026, time.March, 3, 1, 0, 0, 0, time.UTC)

	accounts := &fakeAccounts{
		rows: []deactivatedRow{
			{
				account:       pgrepo.DeactivatedAccount{ID: "edge", Email: "edge@example.com"},
				deactivatedAt: now.Add(-7 * 24 * time.Hour),
			},
		},
	}

	job := NewAccountCleanupJob(accounts, nil, nil, nil, nil, 7*24*time.Hour, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	if len(accounts.rows) != 0 {
		t.Fatalf("expected account deactivated exactly retention ago to be deleted")
	}
}

func TestRunSendsDeletionFarewellOverTelegram(t *testing.T) {
	now := time.Date(2026, time.March, 3, 1, 0, 0, 0, time.UTC)

	accounts := &fakeAccounts{
		rows: []deactivatedRow{
			{
				account: pgrepo.DeactivatedAccount{
					ID:                    "old",
					Email:                 "old@example.com",
					TelegramChatID:        42,
					TelegramNotifications: true,
				},
				deactivatedAt: now.Add(-8 * 24 * time.Hour),
			},
		},
	}
	telegram := &fakeTelegram{}

	job := NewAccountCleanupJob(accounts, nil, nil, nil, telegram, 7*24*time.Hour, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	if telegram.lastChatID != 42 {
		t.Fatalf("expected farewell sent to chat 42, got %d", telegram.lastChatID)
	}
	if want := notifysvc.AccountDeletionEvent().TelegramHTML; telegram.lastText != want {
		t.Fatalf("unexpected farewell text: got %q want %q", telegram.lastText, want)
	}
}

func TestRunPurgesExpiredTokens(t *testing.T) {
	now := time.Date(2026, time.March, 3, 1, 0, 0, 0, time.UTC)

	tokens := &fakeTokenPurger{}
	job := NewAccountCleanupJob(nil, tokens, nil, nil, nil, 0, nil)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run cleanup job: %v", err)
	}

	if !tokens.called || !tokens.cutoff.Equal(now) {
		t.Fatalf("expected token purge at %v, got called=%v cutoff=%v", now, tokens.called, tokens.cutoff)
	}
}

type deactivatedRow struct {
	account       pgrepo.DeactivatedAccount
	deactivatedAt time.Time
}

type fakeAccounts struct {
	rows []deactivatedRow
}

func (f *fakeAccounts) ListDeactivatedBefore(_ context.Context, cutoff time.Time) ([]pgrepo.DeactivatedAccount, error) {
	var out []pgrepo.DeactivatedAccount
	for _, row := range f.rows {
		if !row.deactivatedAt.After(cutoff) {
			out = append(out, row.account)
		}
	}
	return out, nil
}

func (f *fakeAccounts) DeleteDeactivatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []deactivatedRow
	var deleted int64
	for _, row := range f.rows {
		if !row.deactivatedAt.After(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return deleted, nil
}

type fakeTokenPurger struct {
	called bool
	cutoff time.Time
}

func (f *fakeTokenPurger) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.called = true
	f.cutoff = cutoff
	return 2, nil
}

type fakeRemover struct {
	removed []string
}

func (f *fakeRemover) Remove(_ context.Context, objectKey string) error {
	f.removed = append(f.removed, objectKey)
	return nil
}

type fakeTelegram struct {
	lastChatID int64
	lastText   string
}

func (f *fakeTelegram) SendHTML(chatID int64, text string) error {
	f.lastChatID = chatID
	f.lastText = text
	return nil
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) Send(to, _, _ string) error {
	f.sent = append(f.sent, to)
	return nil
}
