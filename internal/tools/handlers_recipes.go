package tools

import (
	"context"
	"strings"

	"github.com/revittco/anylist-mcp/internal/anylist"
	"github.com/revittco/anylist-mcp/internal/schema"
)

func (h *handlers) recipes(ctx context.Context) ([]*anylist.Recipe, error) {
	snap, err := h.client.Recipes(ctx, SessionIDFrom(ctx))
	if err != nil {
		return nil, err
	}
	return snap.Items, nil
}

func (h *handlers) recipe(ctx context.Context, t schema.RecipeTarget) (*anylist.Recipe, error) {
	recipes, err := h.recipes(ctx)
	if err != nil {
		return nil, err
	}
	return findRecipe(recipes, t)
}

func (h *handlers) listRecipes(ctx context.Context, in *schema.ListRecipesInput) (any, error) {
	recipes, err := h.recipes(ctx)
	if err != nil {
		return nil, err
	}

	filtered := recipes
	if name, ok := in.Name.Get(); ok {
		needle := normalizeName(name)
		filtered = make([]*anylist.Recipe, 0, len(recipes))
		for _, r := range recipes {
			if strings.Contains(normalizeName(r.Name), needle) {
				filtered = append(filtered, r)
			}
		}
	}
	// Compared as floats: a huge limit would overflow int.
	if limit, ok := in.Limit.Get(); ok && limit < float64(len(filtered)) {
		filtered = filtered[:int(limit)]
	}

	views := make([]recipeView, len(filtered))
	for i, r := range filtered {
		views[i] = newRecipeView(r)
	}
	return map[string]any{"recipes": views}, nil
}

func (h *handlers) getRecipe(ctx context.Context, in *schema.GetRecipeInput) (any, error) {
	r, err := h.recipe(ctx, in.RecipeTarget)
	if err != nil {
		return nil, err
	}
	return map[string]any{"recipe": newRecipeView(r)}, nil
}

func (h *handlers) createRecipe(ctx context.Context, in *schema.CreateRecipeInput) (any, error) {
	now := float64(h.now().UnixMilli()) / 1000
	ings, _ := in.Ingredients.Get()
	r := &anylist.Recipe{
		Name:              in.Name,
		Note:              in.Note.Or(""),
		PreparationSteps:  in.PreparationSteps.Or([]string{}),
		Servings:          in.Servings.Or(""),
		SourceName:        in.SourceName.Or(""),
		SourceURL:         in.SourceURL.Or(""),
		Ingredients:       schema.Ingredients(ings),
		NutritionalInfo:   in.NutritionalInfo.Or(""),
		Timestamp:         now,
		CreationTimestamp: now,
	}
	applyPtr(&r.ScaleFactor, in.ScaleFactor, identity)
	applyPtr(&r.Rating, in.Rating, identity)
	applyPtr(&r.CookTime, in.CookTime, toInt64)
	applyPtr(&r.PrepTime, in.PrepTime, toInt64)

	if err := h.client.SaveRecipe(ctx, SessionIDFrom(ctx), r); err != nil {
		return nil, err
	}
	return map[string]any{"recipe": newRecipeView(r)}, nil
}

func (h *handlers) updateRecipe(ctx context.Context, in *schema.UpdateRecipeInput) (any, error) {
	found, err := h.recipe(ctx, in.RecipeTarget)
	if err != nil {
		return nil, err
	}

	r := found.Clone()
	if v, ok := in.Name.Get(); ok {
		r.Name = v
	}
	applyString(&r.Note, in.Note)
	applyString(&r.Servings, in.Servings)
	applyString(&r.SourceName, in.SourceName)
	applyString(&r.SourceURL, in.SourceURL)
	applyString(&r.NutritionalInfo, in.NutritionalInfo)
	if in.PreparationSteps.Present() {
		r.PreparationSteps = in.PreparationSteps.Or([]string{})
	}
	if in.Ingredients.Present() {
		ings, _ := in.Ingredients.Get()
		r.Ingredients = schema.Ingredients(ings)
	}
	applyPtr(&r.ScaleFactor, in.ScaleFactor, identity)
	applyPtr(&r.Rating, in.Rating, identity)
	applyPtr(&r.CookTime, in.CookTime, toInt64)
	applyPtr(&r.PrepTime, in.PrepTime, toInt64)

	if err := h.client.SaveRecipe(ctx, SessionIDFrom(ctx), r); err != nil {
		return nil, err
	}
	return map[string]any{"recipe": newRecipeView(r)}, nil
}

func (h *handlers) deleteRecipe(ctx context.Context, in *schema.DeleteRecipeInput) (any, error) {
	r, err := h.recipe(ctx, in.RecipeTarget)
	if err != nil {
		return nil, err
	}
	if err := h.client.DeleteRecipe(ctx, SessionIDFrom(ctx), r.ID); err != nil {
		return nil, err
	}
	return map[string]any{
		"deleted": map[string]string{"id": r.ID, "name": r.Name},
	}, nil
}

func identity(v float64) float64 { return v }

func toInt64(v float64) int64 { return int64(v) }
