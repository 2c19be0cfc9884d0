package tools

import (
	"github.com/revittco/anylist-mcp/internal/anylist"
	"github.com/revittco/anylist-mcp/internal/schema"
)

// Result views. Empty optional strings render as null.

type listView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ItemCount int    `json:"itemCount"`
}

type itemView struct {
	ID              string  `json:"id"`
	ListID          string  `json:"listId"`
	Name            string  `json:"name"`
	Details         *string `json:"details"`
	Quantity        *string `json:"quantity"`
	Checked         bool    `json:"checked"`
	CategoryMatchID *string `json:"categoryMatchId"`
}

type ingredientView struct {
	RawIngredient *string `json:"rawIngredient"`
	Name          *string `json:"name"`
	Quantity      *string `json:"quantity"`
	Note          *string `json:"note"`
}

type recipeView struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Note              *string          `json:"note"`
	SourceName        *string          `json:"sourceName"`
	SourceURL         *string          `json:"sourceUrl"`
	Servings          *string          `json:"servings"`
	PreparationSteps  []string         `json:"preparationSteps"`
	Ingredients       []ingredientView `json:"ingredients"`
	ScaleFactor       *float64         `json:"scaleFactor"`
	Rating            *float64         `json:"rating"`
	NutritionalInfo   *string          `json:"nutritionalInfo"`
	CookTime          *int64           `json:"cookTime"`
	PrepTime          *int64           `json:"prepTime"`
	Timestamp         *float64         `json:"timestamp"`
	CreationTimestamp *float64         `json:"creationTimestamp"`
}

type eventView struct {
	ID                string   `json:"id"`
	Date              *string  `json:"date"`
	Title             *string  `json:"title"`
	Details           *string  `json:"details"`
	RecipeID          *string  `json:"recipeId"`
	RecipeName        *string  `json:"recipeName"`
	LabelID           *string  `json:"labelId"`
	LabelName         *string  `json:"labelName"`
	RecipeScaleFactor *float64 `json:"recipeScaleFactor"`
}

type labelView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	HexColor  string `json:"hexColor"`
	SortIndex int    `json:"sortIndex"`
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonZero(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

func newListView(l *anylist.List) listView {
	return listView{ID: l.ID, Name: l.Name, ItemCount: len(l.Items)}
}

func newItemView(it *anylist.Item) itemView {
	return itemView{
		ID:              it.ID,
		ListID:          it.ListID,
		Name:            it.Name,
		Details:         optString(it.Details),
		Quantity:        optString(it.Quantity),
		Checked:         it.Checked,
		CategoryMatchID: optString(it.CategoryMatchID),
	}
}

func newItemViews(items []*anylist.Item) []itemView {
	out := make([]itemView, len(items))
	for i, it := range items {
		out[i] = newItemView(it)
	}
	return out
}

func newRecipeView(r *anylist.Recipe) recipeView {
	steps := r.PreparationSteps
	if steps == nil {
		steps = []string{}
	}
	ings := make([]ingredientView, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ings[i] = ingredientView{
			RawIngredient: optString(ing.RawIngredient),
			Name:          optString(ing.Name),
			Quantity:      optString(ing.Quantity),
			Note:          optString(ing.Note),
		}
	}
	return recipeView{
		ID:                r.ID,
		Name:              r.Name,
		Note:              optString(r.Note),
		SourceName:        optString(r.SourceName),
		SourceURL:         optString(r.SourceURL),
		Servings:          optString(r.Servings),
		PreparationSteps:  steps,
		Ingredients:       ings,
		ScaleFactor:       r.ScaleFactor,
		Rating:            r.Rating,
		NutritionalInfo:   optString(r.NutritionalInfo),
		CookTime:          r.CookTime,
		PrepTime:          r.PrepTime,
		Timestamp:         nonZero(r.Timestamp),
		CreationTimestamp: nonZero(r.CreationTimestamp),
	}
}

func newEventView(e *anylist.MealPlanEvent) eventView {
	v := eventView{
		ID:                e.ID,
		Title:             optString(e.Title),
		Details:           optString(e.Details),
		RecipeID:          optString(e.RecipeID),
		RecipeName:        optString(e.RecipeName),
		LabelID:           optString(e.LabelID),
		LabelName:         optString(e.LabelName),
		RecipeScaleFactor: e.RecipeScaleFactor,
	}
	if e.Date != nil {
		d := schema.FormatDate(*e.Date)
		v.Date = &d
	}
	return v
}

func newLabelView(l *anylist.Label) labelView {
	return labelView{ID: l.ID, Name: l.Name, HexColor: l.HexColor, SortIndex: l.SortIndex}
}
