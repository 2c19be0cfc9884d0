package tools

import "encoding/json"

func definitions(h *handlers) []Tool {
	return []Tool{
		// Lists and items
		{
			Name:        "anylist_lists",
			Description: "List shopping lists.",
			InputSchema: objectSchema(nil, nil),
			handler:     bind(h.listLists),
		},
		{
			Name:        "anylist_list_items",
			Description: "List items in a shopping list by id or name.",
			InputSchema: objectSchema(listTarget(), nil, listPair),
			handler:     bind(h.listItems),
		},
		{
			Name:        "anylist_add_item",
			Description: "Add a shopping list item.",
			InputSchema: objectSchema(merge(listTarget(), props{
				"name":          propStr("Item name"),
				"quantity":      propStrOrNum("Quantity, e.g. \"2\" or \"1 lb\""),
				"details":       propStr("Item details or notes"),
				"checked":       propBool("Whether the item starts checked (default false)"),
				"reuseExisting": propBool("Update a same-named item instead of adding a duplicate (default true)"),
			}), []string{"name"}, listPair),
			handler: bind(h.addItem),
		},
		{
			Name:        "anylist_update_item",
			Description: "Update a shopping list item by id or name.",
			InputSchema: objectSchema(merge(listTarget(), itemTarget(), props{
				"name":     propStr("New item name"),
				"quantity": nullable(propStrOrNum("Quantity; null clears it")),
				"details":  nullable(propStr("Details; null clears them")),
				"checked":  propBool("Checked state"),
			}), nil, listPair, itemPair),
			handler: bind(h.updateItem),
		},
		{
			Name:        "anylist_remove_item",
			Description: "Remove a shopping list item by id or name.",
			InputSchema: objectSchema(merge(listTarget(), itemTarget()), nil, listPair, itemPair),
			handler:     bind(h.removeItem),
		},
		{
			Name:        "anylist_uncheck_all",
			Description: "Uncheck all items in a shopping list.",
			InputSchema: objectSchema(listTarget(), nil, listPair),
			handler:     bind(h.uncheckAll),
		},

		// Recipes
		{
			Name:        "anylist_recipes",
			Description: "List recipes.",
			InputSchema: objectSchema(props{
				"name":  propStr("Case-insensitive name filter"),
				"limit": propInt("Maximum number of recipes to return"),
			}, nil),
			handler: bind(h.listRecipes),
		},
		{
			Name:        "anylist_get_recipe",
			Description: "Get a recipe by id or name.",
			InputSchema: objectSchema(recipeTarget(), nil, recipePair),
			handler:     bind(h.getRecipe),
		},
		{
			Name:        "anylist_create_recipe",
			Description: "Create a recipe.",
			InputSchema: objectSchema(recipeFields(false), []string{"name"}),
			handler:     bind(h.createRecipe),
		},
		{
			Name:        "anylist_update_recipe",
			Description: "Update a recipe by id or name.",
			InputSchema: objectSchema(merge(recipeTarget(), recipeFields(true)), nil, recipePair),
			handler:     bind(h.updateRecipe),
		},
		{
			Name:        "anylist_delete_recipe",
			Description: "Delete a recipe by id or name.",
			InputSchema: objectSchema(recipeTarget(), nil, recipePair),
			handler:     bind(h.deleteRecipe),
		},

		// Meal planning
		{
			Name:        "anylist_meal_plan_events",
			Description: "List meal planning calendar events.",
			InputSchema: objectSchema(props{
				"startDate": propDate("Earliest event date, inclusive"),
				"endDate":   propDate("Latest event date, inclusive"),
			}, nil),
			handler: bind(h.mealPlanEvents),
		},
		{
			Name:        "anylist_meal_plan_labels",
			Description: "List meal planning calendar labels.",
			InputSchema: objectSchema(nil, nil),
			handler:     bind(h.mealPlanLabels),
		},
		{
			Name:        "anylist_create_meal_plan_event",
			Description: "Create a meal planning calendar event.",
			InputSchema: objectSchema(props{
				"date":              propDate("Event date"),
				"title":             propStr("Event title"),
				"details":           propStr("Event details"),
				"recipeId":          propStr("Recipe to attach"),
				"labelId":           propStr("Calendar label"),
				"recipeScaleFactor": propNum("Recipe scale factor"),
			}, []string{"date"}),
			handler: bind(h.createMealPlanEvent),
		},
		{
			Name:        "anylist_delete_meal_plan_event",
			Description: "Delete a meal planning calendar event.",
			InputSchema: objectSchema(props{"eventId": propStr("Event ID")}, []string{"eventId"}),
			handler:     bind(h.deleteMealPlanEvent),
		},
	}
}

var (
	listPair   = [2]string{"listId", "listName"}
	itemPair   = [2]string{"itemId", "itemName"}
	recipePair = [2]string{"recipeId", "recipeName"}
)

func listTarget() props {
	return props{"listId": propStr("List ID"), "listName": propStr("List name")}
}

func itemTarget() props {
	return props{"itemId": propStr("Item ID"), "itemName": propStr("Item name")}
}

func recipeTarget() props {
	return props{"recipeId": propStr("Recipe ID"), "recipeName": propStr("Recipe name")}
}

// recipeFields describes the editable recipe fields. On update every field
// except name also accepts null to clear it.
func recipeFields(clearable bool) props {
	opt := func(p map[string]any) map[string]any {
		if clearable {
			return nullable(p)
		}
		return p
	}
	ingredient := map[string]any{
		"type": "object",
		"properties": props{
			"rawIngredient": propStr("Ingredient line as written"),
			"name":          propStr("Ingredient name"),
			"quantity":      propStrOrNum("Ingredient quantity"),
			"note":          propStr("Ingredient note"),
		},
		"additionalProperties": false,
	}
	return props{
		"name":             propStr("Recipe name"),
		"note":             opt(propStr("Recipe note")),
		"preparationSteps": opt(propArr("Preparation steps")),
		"servings":         opt(propStr("Servings")),
		"sourceName":       opt(propStr("Source name")),
		"sourceUrl":        opt(propStr("Source URL")),
		"scaleFactor":      opt(propNum("Scale factor")),
		"rating":           opt(propNum("Rating")),
		"ingredients": opt(map[string]any{
			"type":        "array",
			"description": "Ingredients",
			"items":       ingredient,
		}),
		"nutritionalInfo": opt(propStr("Nutritional information")),
		"cookTime":        opt(propInt("Cook time in seconds")),
		"prepTime":        opt(propInt("Prep time in seconds")),
	}
}

// Schema helpers for building JSON Schema objects.

type props = map[string]any

// objectSchema builds a closed object schema. Each pair adds an exactly-one-of
// constraint between two properties.
func objectSchema(properties map[string]any, required []string, pairs ...[2]string) json.RawMessage {
	s := map[string]any{"type": "object", "additionalProperties": false}
	if properties != nil {
		s["properties"] = properties
	}
	if len(required) > 0 {
		s["required"] = required
	}
	oneOf := func(p [2]string) map[string]any {
		return map[string]any{"oneOf": []any{
			map[string]any{"required": []string{p[0]}},
			map[string]any{"required": []string{p[1]}},
		}}
	}
	switch len(pairs) {
	case 0:
	case 1:
		s["oneOf"] = oneOf(pairs[0])["oneOf"]
	default:
		all := make([]any, len(pairs))
		for i, p := range pairs {
			all[i] = oneOf(p)
		}
		s["allOf"] = all
	}
	data, _ := json.Marshal(s)
	return data
}

func merge(sets ...props) props {
	out := props{}
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}

func propStr(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func propInt(desc string) map[string]any {
	return map[string]any{"type": "integer", "minimum": 0, "description": desc}
}

func propNum(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

func propBool(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

func propStrOrNum(desc string) map[string]any {
	return map[string]any{"type": []string{"string", "number"}, "description": desc}
}

func propDate(desc string) map[string]any {
	return map[string]any{
		"type":        "string",
		"pattern":     `^\d{4}-\d{2}-\d{2}$`,
		"description": desc + " (YYYY-MM-DD)",
	}
}

func propArr(desc string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": desc,
		"items":       map[string]string{"type": "string"},
	}
}

// nullable widens a property's type to also accept null.
func nullable(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	switch t := p["type"].(type) {
	case string:
		out["type"] = []string{t, "null"}
	case []string:
		out["type"] = append(append([]string(nil), t...), "null")
	}
	return out
}
