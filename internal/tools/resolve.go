package tools

import (
	"errors"
	"strings"

	"github.com/revittco/anylist-mcp/internal/anylist"
	"github.com/revittco/anylist-mcp/internal/schema"
)

// ErrNotFound matches every *NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a target that did not resolve.
type NotFoundError struct {
	Kind string
}

func (e *NotFoundError) Error() string { return e.Kind + " not found." }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// resolve finds by exact id when one is given, else by normalized name.
func resolve[T any](items []T, id, name schema.Field[string], idOf, nameOf func(T) string) (T, bool) {
	if v, ok := id.Get(); ok {
		for _, it := range items {
			if idOf(it) == v {
				return it, true
			}
		}
		var zero T
		return zero, false
	}
	needle, _ := name.Get()
	return findByName(items, needle, nameOf)
}

func findByName[T any](items []T, name string, nameOf func(T) string) (T, bool) {
	needle := normalizeName(name)
	for _, it := range items {
		if normalizeName(nameOf(it)) == needle {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func listID(l *anylist.List) string       { return l.ID }
func listName(l *anylist.List) string     { return l.Name }
func itemID(it *anylist.Item) string      { return it.ID }
func itemName(it *anylist.Item) string    { return it.Name }
func recipeID(r *anylist.Recipe) string   { return r.ID }
func recipeName(r *anylist.Recipe) string { return r.Name }

func findList(lists []*anylist.List, t schema.ListTarget) (*anylist.List, error) {
	l, ok := resolve(lists, t.ListID, t.ListName, listID, listName)
	if !ok {
		return nil, &NotFoundError{Kind: "List"}
	}
	return l, nil
}

func findItem(l *anylist.List, t schema.ItemTarget) (*anylist.Item, error) {
	it, ok := resolve(l.Items, t.ItemID, t.ItemName, itemID, itemName)
	if !ok {
		return nil, &NotFoundError{Kind: "Item"}
	}
	return it, nil
}

func findRecipe(recipes []*anylist.Recipe, t schema.RecipeTarget) (*anylist.Recipe, error) {
	r, ok := resolve(recipes, t.RecipeID, t.RecipeName, recipeID, recipeName)
	if !ok {
		return nil, &NotFoundError{Kind: "Recipe"}
	}
	return r, nil
}
