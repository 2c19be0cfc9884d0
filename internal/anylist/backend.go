package anylist

import "context"

// Backend is the upstream account service. Implementations own network or
// storage access; Session layers lazy login and identity on top.
//
// Write methods take the acting user id explicitly so every write is
// attributed to the identity resolved for the session.
type Backend interface {
	Login(ctx context.Context, creds Credentials) (*Account, error)
	Resume(ctx context.Context, accessToken string) (*Account, error)

	Lists(ctx context.Context) ([]*List, error)
	RecentItems(ctx context.Context) (map[string][]*Item, error)
	Recipes(ctx context.Context) ([]*Recipe, error)
	MealPlanEvents(ctx context.Context) ([]*MealPlanEvent, error)
	MealPlanLabels(ctx context.Context) ([]*Label, error)

	AddItem(ctx context.Context, uid, listID string, item *Item) (*Item, error)
	SaveItem(ctx context.Context, uid string, item *Item) error
	RemoveItem(ctx context.Context, listID, itemID string) error
	UncheckAll(ctx context.Context, uid, listID string) error

	SaveRecipe(ctx context.Context, uid string, r *Recipe) error
	DeleteRecipe(ctx context.Context, id string) error

	SaveEvent(ctx context.Context, uid string, e *MealPlanEvent) error
	DeleteEvent(ctx context.Context, id string) error
}

// TokenStore persists the upstream access token between process runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
}
