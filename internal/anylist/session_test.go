package anylist_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/revittco/anylist-mcp/internal/anylist"
	"github.com/revittco/anylist-mcp/internal/anylist/anylisttest"
)

type memTokenStore struct {
	token string
	saved []string
}

func (m *memTokenStore) Load() (string, error) { return m.token, nil }

func (m *memTokenStore) Save(token string) error {
	m.saved = append(m.saved, token)
	m.token = token
	return nil
}

func TestSessionReady_SingleLoginUnderConcurrency(t *testing.T) {
	b := anylisttest.New()
	b.Account.UserID = "u-1"
	b.LoginDelay = 20 * time.Millisecond
	s := anylist.NewSession(b, anylist.Credentials{Email: "a", Password: "b"})

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uid, err := s.Ready(context.Background())
			if err != nil {
				errs <- err
				return
			}
			if uid != "u-1" {
				errs <- errors.New("unexpected uid " + uid)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	if got := b.Logins(); got != 1 {
		t.Fatalf("logins = %d; want 1", got)
	}

	if _, err := s.Ready(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := b.Logins(); got != 1 {
		t.Fatalf("logins after ready = %d; want 1", got)
	}
}

func TestSessionReady_RetriesAfterLoginFailure(t *testing.T) {
	b := anylisttest.New()
	b.Account.UserID = "u-1"
	b.LoginErr = errors.New("bad password")
	s := anylist.NewSession(b, anylist.Credentials{})

	if _, err := s.Ready(context.Background()); err == nil {
		t.Fatal("expected login error")
	}

	b.LoginErr = nil
	uid, err := s.Ready(context.Background())
	if err != nil {
		t.Fatalf("second Ready: %v", err)
	}
	if uid != "u-1" {
		t.Fatalf("uid = %q; want u-1", uid)
	}
	if got := b.Logins(); got != 2 {
		t.Fatalf("logins = %d; want 2", got)
	}
}

func TestSessionReady_IdentityUnresolvedUntilItemExists(t *testing.T) {
	b := anylisttest.New()
	s := anylist.NewSession(b, anylist.Credentials{})

	_, err := s.Ready(context.Background())
	if !errors.Is(err, anylist.ErrIdentityUnresolved) {
		t.Fatalf("err = %v; want ErrIdentityUnresolved", err)
	}
	if s.UserID() != "" {
		t.Fatalf("UserID = %q before resolution", s.UserID())
	}

	b.AddList("Groceries", &anylist.Item{Name: "Milk", OwnerID: "owner-7"})
	uid, err := s.Ready(context.Background())
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if uid != "owner-7" {
		t.Fatalf("uid = %q; want owner-7", uid)
	}
	if got := b.Logins(); got != 1 {
		t.Fatalf("logins = %d; want 1 (account reused across identity retries)", got)
	}
}

func TestSession_OverrideBeatsToken(t *testing.T) {
	b := anylisttest.New()
	b.Account.AccessToken = "h.eyJzdWIiOiJ0b2tlbi11c2VyIn0.s" // {"sub":"token-user"}
	s := anylist.NewSession(b, anylist.Credentials{}, anylist.WithUserID("operator"))

	uid, err := s.Ready(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if uid != "operator" {
		t.Fatalf("uid = %q; want operator", uid)
	}
}

func TestSession_SnapshotsAndWritesCarryIdentity(t *testing.T) {
	b := anylisttest.New()
	b.Account.UserID = "u-9"
	listID := b.AddList("Groceries")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := anylist.NewSession(b, anylist.Credentials{}, anylist.WithClock(func() time.Time { return now }))

	snap, err := s.Lists(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.UserID != "u-9" {
		t.Fatalf("snapshot UserID = %q; want u-9", snap.UserID)
	}
	if !snap.FetchedAt.Equal(now) {
		t.Fatalf("FetchedAt = %v; want %v", snap.FetchedAt, now)
	}
	if len(snap.Items) != 1 || snap.Items[0].ID != listID {
		t.Fatalf("unexpected lists: %+v", snap.Items)
	}

	item, err := s.AddItem(context.Background(), listID, &anylist.Item{Name: "Eggs"})
	if err != nil {
		t.Fatal(err)
	}
	if item.OwnerID != "u-9" || b.LastUserID() != "u-9" {
		t.Fatalf("write attributed to %q/%q; want u-9", item.OwnerID, b.LastUserID())
	}
}

func TestSession_ResumesStoredToken(t *testing.T) {
	b := anylisttest.New()
	b.Account.UserID = "u-1"
	b.AcceptToken("stored")
	ts := &memTokenStore{token: "stored"}
	s := anylist.NewSession(b, anylist.Credentials{}, anylist.WithTokenStore(ts))

	if _, err := s.Ready(context.Background()); err != nil {
		t.Fatal(err)
	}
	if b.Resumes() != 1 || b.Logins() != 0 {
		t.Fatalf("resumes=%d logins=%d; want 1, 0", b.Resumes(), b.Logins())
	}
	if len(ts.saved) != 0 {
		t.Fatalf("unexpected token save: %v", ts.saved)
	}
}

func TestSession_RejectedTokenFallsBackToLogin(t *testing.T) {
	b := anylisttest.New()
	b.Account.UserID = "u-1"
	b.Account.AccessToken = "fresh"
	ts := &memTokenStore{token: "stale"}
	s := anylist.NewSession(b, anylist.Credentials{}, anylist.WithTokenStore(ts))

	if _, err := s.Ready(context.Background()); err != nil {
		t.Fatal(err)
	}
	if b.Logins() != 1 {
		t.Fatalf("logins = %d; want 1", b.Logins())
	}
	if len(ts.saved) != 1 || ts.saved[0] != "fresh" {
		t.Fatalf("saved tokens = %v; want [fresh]", ts.saved)
	}
}
