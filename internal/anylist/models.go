package anylist

import "time"

// List is a shopping list and its items.
type List struct {
	ID       string
	Name     string
	ParentID string
	Items    []*Item
}

// Item is a single entry on a shopping list. OwnerID is set on items that
// carry the identity of the account that added them.
type Item struct {
	ID              string
	ListID          string
	Name            string
	Details         string
	Quantity        string
	Checked         bool
	CategoryMatchID string
	OwnerID         string
}

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	RawIngredient string `json:"rawIngredient"`
	Name          string `json:"name"`
	Quantity      string `json:"quantity"`
	Note          string `json:"note"`
}

// Recipe is a stored recipe. Timestamps are unix seconds.
type Recipe struct {
	ID                string
	Name              string
	Note              string
	SourceName        string
	SourceURL         string
	Servings          string
	PreparationSteps  []string
	Ingredients       []Ingredient
	ScaleFactor       *float64
	Rating            *float64
	NutritionalInfo   string
	CookTime          *int64
	PrepTime          *int64
	Timestamp         float64
	CreationTimestamp float64
}

// MealPlanEvent is a meal planning calendar entry. Date is nil for
// undated events.
type MealPlanEvent struct {
	ID                string
	Date              *time.Time
	Title             string
	Details           string
	RecipeID          string
	RecipeName        string
	LabelID           string
	LabelName         string
	RecipeScaleFactor *float64
}

// Label is a meal planning calendar label.
type Label struct {
	ID        string
	Name      string
	HexColor  string
	SortIndex int
}

// Account is the upstream session established by Login or Resume.
type Account struct {
	Email       string
	AccessToken string
	UserID      string
}

// Credentials authenticate a Login.
type Credentials struct {
	Email    string
	Password string
}

// Snapshot is a fetched collection together with the identity that was
// resolved for the session at fetch time.
type Snapshot[T any] struct {
	UserID    string
	Items     []T
	FetchedAt time.Time
}

// Clone returns a deep copy of the list, including its items.
func (l *List) Clone() *List {
	c := *l
	c.Items = make([]*Item, len(l.Items))
	for i, it := range l.Items {
		ic := *it
		c.Items[i] = &ic
	}
	return &c
}

// Clone returns a deep copy of the recipe.
func (r *Recipe) Clone() *Recipe {
	c := *r
	c.PreparationSteps = append([]string(nil), r.PreparationSteps...)
	c.Ingredients = append([]Ingredient(nil), r.Ingredients...)
	c.ScaleFactor = clonePtr(r.ScaleFactor)
	c.Rating = clonePtr(r.Rating)
	c.CookTime = clonePtr(r.CookTime)
	c.PrepTime = clonePtr(r.PrepTime)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
