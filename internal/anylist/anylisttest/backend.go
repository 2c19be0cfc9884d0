// Package anylisttest provides an in-memory anylist.Backend for tests.
package anylisttest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/revittco/anylist-mcp/internal/anylist"
)

// ErrNotFound is returned by writes that target a missing entity.
var ErrNotFound = errors.New("anylisttest: not found")

// Backend is an in-memory anylist.Backend. Configure the exported fields
// before first use.
type Backend struct {
	// Account is returned (copied) by Login and Resume.
	Account anylist.Account
	// LoginErr, when set, fails every Login.
	LoginErr error
	// LoginDelay stalls Login to widen races in concurrency tests.
	LoginDelay time.Duration

	logins        atomic.Int32
	resumes       atomic.Int32
	listFetches   atomic.Int32
	recipeFetches atomic.Int32

	mu        sync.Mutex
	writeErr  error
	lastUID   string
	nextID    int
	lists     []*anylist.List
	recent    map[string][]*anylist.Item
	recipes   []*anylist.Recipe
	events    []*anylist.MealPlanEvent
	labels    []*anylist.Label
	validToks map[string]bool
}

var _ anylist.Backend = (*Backend)(nil)

// New returns an empty Backend whose Login issues a token with no identity.
func New() *Backend {
	return &Backend{
		Account:   anylist.Account{Email: "cook@example.com", AccessToken: "opaque-token"},
		recent:    make(map[string][]*anylist.Item),
		validToks: make(map[string]bool),
	}
}

// AddList seeds a list with the given items and returns its id.
func (b *Backend) AddList(name string, items ...*anylist.Item) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	l := &anylist.List{ID: b.newID("list"), Name: name}
	for _, it := range items {
		c := *it
		if c.ID == "" {
			c.ID = b.newID("item")
		}
		c.ListID = l.ID
		l.Items = append(l.Items, &c)
	}
	b.lists = append(b.lists, l)
	return l.ID
}

// SetRecentItems seeds the recently used items of a list.
func (b *Backend) SetRecentItems(listID string, items ...*anylist.Item) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recent[listID] = items
}

// AddRecipe seeds a recipe and returns its id.
func (b *Backend) AddRecipe(r *anylist.Recipe) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := r.Clone()
	if c.ID == "" {
		c.ID = b.newID("recipe")
	}
	b.recipes = append(b.recipes, c)
	return c.ID
}

// AddEvent seeds a meal plan event and returns its id.
func (b *Backend) AddEvent(e *anylist.MealPlanEvent) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := *e
	if c.ID == "" {
		c.ID = b.newID("event")
	}
	b.events = append(b.events, &c)
	return c.ID
}

// AddLabel seeds a meal plan label.
func (b *Backend) AddLabel(l *anylist.Label) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := *l
	b.labels = append(b.labels, &c)
}

// FailWrites makes every subsequent write return err. Pass nil to reset.
func (b *Backend) FailWrites(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeErr = err
}

// Logins reports how many times Login was called.
func (b *Backend) Logins() int { return int(b.logins.Load()) }

// Resumes reports how many times Resume was called.
func (b *Backend) Resumes() int { return int(b.resumes.Load()) }

// ListFetches reports how many times Lists was called.
func (b *Backend) ListFetches() int { return int(b.listFetches.Load()) }

// RecipeFetches reports how many times Recipes was called.
func (b *Backend) RecipeFetches() int { return int(b.recipeFetches.Load()) }

// LastUserID returns the user id passed to the most recent attributed write.
func (b *Backend) LastUserID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUID
}

func (b *Backend) Login(ctx context.Context, _ anylist.Credentials) (*anylist.Account, error) {
	b.logins.Add(1)
	if b.LoginDelay > 0 {
		select {
		case <-time.After(b.LoginDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.LoginErr != nil {
		return nil, b.LoginErr
	}
	acct := b.Account
	b.mu.Lock()
	b.validToks[acct.AccessToken] = true
	b.mu.Unlock()
	return &acct, nil
}

func (b *Backend) Resume(_ context.Context, token string) (*anylist.Account, error) {
	b.resumes.Add(1)
	b.mu.Lock()
	ok := b.validToks[token]
	b.mu.Unlock()
	if !ok {
		return nil, errors.New("anylisttest: token rejected")
	}
	acct := b.Account
	acct.AccessToken = token
	return &acct, nil
}

// AcceptToken marks token as valid for Resume.
func (b *Backend) AcceptToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validToks[token] = true
}

func (b *Backend) Lists(_ context.Context) ([]*anylist.List, error) {
	b.listFetches.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*anylist.List, len(b.lists))
	for i, l := range b.lists {
		out[i] = l.Clone()
	}
	return out, nil
}

func (b *Backend) RecentItems(_ context.Context) (map[string][]*anylist.Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string][]*anylist.Item, len(b.recent))
	for k, items := range b.recent {
		for _, it := range items {
			c := *it
			out[k] = append(out[k], &c)
		}
	}
	return out, nil
}

func (b *Backend) Recipes(_ context.Context) ([]*anylist.Recipe, error) {
	b.recipeFetches.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*anylist.Recipe, len(b.recipes))
	for i, r := range b.recipes {
		out[i] = r.Clone()
	}
	return out, nil
}

func (b *Backend) MealPlanEvents(_ context.Context) ([]*anylist.MealPlanEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*anylist.MealPlanEvent, len(b.events))
	for i, e := range b.events {
		c := *e
		out[i] = &c
	}
	return out, nil
}

func (b *Backend) MealPlanLabels(_ context.Context) ([]*anylist.Label, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*anylist.Label, len(b.labels))
	for i, l := range b.labels {
		c := *l
		out[i] = &c
	}
	return out, nil
}

func (b *Backend) AddItem(_ context.Context, uid, listID string, item *anylist.Item) (*anylist.Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginWriteLocked(uid); err != nil {
		return nil, err
	}
	l := b.listLocked(listID)
	if l == nil {
		return nil, fmt.Errorf("list %s: %w", listID, ErrNotFound)
	}
	c := *item
	c.ID = b.newID("item")
	c.ListID = listID
	c.OwnerID = uid
	l.Items = append(l.Items, &c)
	out := c
	return &out, nil
}

func (b *Backend) SaveItem(_ context.Context, uid string, item *anylist.Item) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginWriteLocked(uid); err != nil {
		return err
	}
	l := b.listLocked(item.ListID)
	if l == nil {
		return fmt.Errorf("list %s: %w", item.ListID, ErrNotFound)
	}
	for i, it := range l.Items {
		if it.ID == item.ID {
			c := *item
			l.Items[i] = &c
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", item.ID, ErrNotFound)
}

func (b *Backend) RemoveItem(_ context.Context, listID, itemID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginWriteLocked(""); err != nil {
		return err
	}
	l := b.listLocked(listID)
	if l == nil {
		return fmt.Errorf("list %s: %w", listID, ErrNotFound)
	}
	for i, it := range l.Items {
		if it.ID == itemID {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
}

func (b *Backend) UncheckAll(_ context.Context, uid, listID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginWriteLocked(uid); err != nil {
		return err
	}
	l := b.listLocked(listID)
	if l == nil {
		return fmt.Errorf("list %s: %w", listID, ErrNotFound)
	}
	for _, it := range l.Items {
		it.Checked = false
	}
	return nil
}

func (b *Backend) SaveRecipe(_ context.Context, uid string, r *anylist.Recipe) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginWriteLocked(uid); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = b.newID("recipe")
		b.recipes = append(b.recipes, r.Clone())
		return nil
	}
	for i, existing := range b.recipes {
		if existing.ID == r.ID {
			b.recipes[i] = r.Clone()
			return nil
		}
	}
	return fmt.Errorf("recipe %s: %w", r.ID, ErrNotFound)
}

func (b *Backend) DeleteRecipe(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginWriteLocked(""); err != nil {
		return err
	}
	for i, r := range b.recipes {
		if r.ID == id {
			b.recipes = append(b.recipes[:i], b.recipes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("recipe %s: %w", id, ErrNotFound)
}

func (b *Backend) SaveEvent(_ context.Context, uid string, e *anylist.MealPlanEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginWriteLocked(uid); err != nil {
		return err
	}
	for _, r := range b.recipes {
		if r.ID == e.RecipeID {
			e.RecipeName = r.Name
		}
	}
	for _, l := range b.labels {
		if l.ID == e.LabelID {
			e.LabelName = l.Name
		}
	}
	if e.ID == "" {
		e.ID = b.newID("event")
	}
	c := *e
	for i, existing := range b.events {
		if existing.ID == e.ID {
			b.events[i] = &c
			return nil
		}
	}
	b.events = append(b.events, &c)
	return nil
}

func (b *Backend) DeleteEvent(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginWriteLocked(""); err != nil {
		return err
	}
	for i, e := range b.events {
		if e.ID == id {
			b.events = append(b.events[:i], b.events[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("event %s: %w", id, ErrNotFound)
}

func (b *Backend) beginWriteLocked(uid string) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	if uid != "" {
		b.lastUID = uid
	}
	return nil
}

func (b *Backend) listLocked(id string) *anylist.List {
	for _, l := range b.lists {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (b *Backend) newID(prefix string) string {
	b.nextID++
	return fmt.Sprintf("%s-%d", prefix, b.nextID)
}
