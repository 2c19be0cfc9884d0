package anylist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Session owns the single upstream account for the process. It logs in
// lazily on first use; concurrent first callers share one initialization.
type Session struct {
	backend  Backend
	creds    Credentials
	override string
	tokens   TokenStore
	now      func() time.Time

	init singleflight.Group

	mu      sync.Mutex
	account *Account
	userID  string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithUserID sets an operator-supplied identity that takes precedence over
// token and item based derivation.
func WithUserID(uid string) SessionOption {
	return func(s *Session) { s.override = uid }
}

// WithTokenStore enables reuse of a previously issued access token.
func WithTokenStore(ts TokenStore) SessionOption {
	return func(s *Session) { s.tokens = ts }
}

// WithClock overrides the time source used to stamp snapshots.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession creates a Session. No upstream call is made until first use.
func NewSession(b Backend, creds Credentials, opts ...SessionOption) *Session {
	s := &Session{backend: b, creds: creds, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ready establishes the upstream account and resolves the acting user id,
// returning it. Once resolved it never changes. A failed attempt is
// reported to every caller waiting on it and retried on the next call.
func (s *Session) Ready(ctx context.Context) (string, error) {
	if uid, ok := s.resolved(); ok {
		return uid, nil
	}

	v, err, _ := s.init.Do("ready", func() (any, error) {
		if uid, ok := s.resolved(); ok {
			return uid, nil
		}
		// Shared by every waiter; one caller going away must not abort it.
		return s.initialize(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// UserID returns the resolved user id, or "" before Ready has succeeded.
func (s *Session) UserID() string {
	uid, _ := s.resolved()
	return uid
}

func (s *Session) resolved() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.userID != ""
}

func (s *Session) initialize(ctx context.Context) (string, error) {
	s.mu.Lock()
	acct := s.account
	s.mu.Unlock()

	if acct == nil {
		var err error
		acct, err = s.establish(ctx)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.account = acct
		s.mu.Unlock()
	}

	uid, err := resolveIdentity(ctx, resolveInput{
		account:  acct,
		override: s.override,
		backend:  s.backend,
	})
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.userID = uid
	s.mu.Unlock()
	slog.Info("anylist session ready", "email", acct.Email, "user_id", uid)
	return uid, nil
}

func (s *Session) establish(ctx context.Context) (*Account, error) {
	if s.tokens != nil {
		token, err := s.tokens.Load()
		switch {
		case err != nil:
			slog.Warn("load stored credentials", "error", err)
		case token != "":
			acct, err := s.backend.Resume(ctx, token)
			if err == nil {
				return acct, nil
			}
			slog.Info("stored credentials rejected, logging in", "error", err)
		}
	}

	acct, err := s.backend.Login(ctx, s.creds)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if s.tokens != nil && acct.AccessToken != "" {
		if err := s.tokens.Save(acct.AccessToken); err != nil {
			slog.Warn("save credentials", "error", err)
		}
	}
	return acct, nil
}

func fetch[T any](ctx context.Context, s *Session, load func(context.Context) ([]T, error)) (Snapshot[T], error) {
	uid, err := s.Ready(ctx)
	if err != nil {
		return Snapshot[T]{}, err
	}
	items, err := load(ctx)
	if err != nil {
		return Snapshot[T]{}, err
	}
	return Snapshot[T]{UserID: uid, Items: items, FetchedAt: s.now()}, nil
}

// Lists fetches all shopping lists.
func (s *Session) Lists(ctx context.Context) (Snapshot[*List], error) {
	return fetch(ctx, s, s.backend.Lists)
}

// Recipes fetches all recipes.
func (s *Session) Recipes(ctx context.Context) (Snapshot[*Recipe], error) {
	return fetch(ctx, s, s.backend.Recipes)
}

// MealPlanEvents fetches all meal planning calendar events.
func (s *Session) MealPlanEvents(ctx context.Context) (Snapshot[*MealPlanEvent], error) {
	return fetch(ctx, s, s.backend.MealPlanEvents)
}

// MealPlanLabels fetches the meal planning calendar labels.
func (s *Session) MealPlanLabels(ctx context.Context) (Snapshot[*Label], error) {
	return fetch(ctx, s, s.backend.MealPlanLabels)
}

// AddItem creates an item on the given list.
func (s *Session) AddItem(ctx context.Context, listID string, item *Item) (*Item, error) {
	uid, err := s.Ready(ctx)
	if err != nil {
		return nil, err
	}
	return s.backend.AddItem(ctx, uid, listID, item)
}

// SaveItem writes an existing item.
func (s *Session) SaveItem(ctx context.Context, item *Item) error {
	uid, err := s.Ready(ctx)
	if err != nil {
		return err
	}
	return s.backend.SaveItem(ctx, uid, item)
}

// RemoveItem deletes an item from a list.
func (s *Session) RemoveItem(ctx context.Context, listID, itemID string) error {
	if _, err := s.Ready(ctx); err != nil {
		return err
	}
	return s.backend.RemoveItem(ctx, listID, itemID)
}

// UncheckAll clears the checked state of every item on a list.
func (s *Session) UncheckAll(ctx context.Context, listID string) error {
	uid, err := s.Ready(ctx)
	if err != nil {
		return err
	}
	return s.backend.UncheckAll(ctx, uid, listID)
}

// SaveRecipe creates or updates a recipe.
func (s *Session) SaveRecipe(ctx context.Context, r *Recipe) error {
	uid, err := s.Ready(ctx)
	if err != nil {
		return err
	}
	return s.backend.SaveRecipe(ctx, uid, r)
}

// DeleteRecipe deletes a recipe.
func (s *Session) DeleteRecipe(ctx context.Context, id string) error {
	if _, err := s.Ready(ctx); err != nil {
		return err
	}
	return s.backend.DeleteRecipe(ctx, id)
}

// SaveEvent creates or updates a meal planning event.
func (s *Session) SaveEvent(ctx context.Context, e *MealPlanEvent) error {
	uid, err := s.Ready(ctx)
	if err != nil {
		return err
	}
	return s.backend.SaveEvent(ctx, uid, e)
}

// DeleteEvent deletes a meal planning event.
func (s *Session) DeleteEvent(ctx context.Context, id string) error {
	if _, err := s.Ready(ctx); err != nil {
		return err
	}
	return s.backend.DeleteEvent(ctx, id)
}
