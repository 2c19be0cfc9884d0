package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/revittco/anylist-mcp/internal/anylist"
)

const recipeColumns = `id, name, note, source_name, source_url, servings,
	preparation_steps, ingredients, scale_factor, rating, nutritional_info,
	cook_time, prep_time, timestamp, creation_timestamp`

func (d *DB) Recipes(ctx context.Context) ([]*anylist.Recipe, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	var out []*anylist.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveRecipe inserts a recipe without an id, assigning one, and updates
// an existing recipe otherwise.
func (d *DB) SaveRecipe(ctx context.Context, uid string, r *anylist.Recipe) error {
	steps, err := json.Marshal(orEmpty(r.PreparationSteps))
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	ings, err := json.Marshal(orEmpty(r.Ingredients))
	if err != nil {
		return fmt.Errorf("marshal ingredients: %w", err)
	}

	if r.ID == "" {
		id := uuid.NewString()
		_, err := d.q.ExecContext(ctx, `
			INSERT INTO recipes (`+recipeColumns+`, owner_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, r.Name, r.Note, r.SourceName, r.SourceURL, r.Servings,
			string(steps), string(ings), toNull(r.ScaleFactor), toNull(r.Rating),
			r.NutritionalInfo, toNull(r.CookTime), toNull(r.PrepTime),
			r.Timestamp, r.CreationTimestamp, uid,
		)
		if err != nil {
			return mapConstraintError(err)
		}
		r.ID = id
		return nil
	}

	res, err := d.q.ExecContext(ctx, `
		UPDATE recipes SET name = ?, note = ?, source_name = ?, source_url = ?,
			servings = ?, preparation_steps = ?, ingredients = ?,
			scale_factor = ?, rating = ?, nutritional_info = ?,
			cook_time = ?, prep_time = ?, timestamp = ?, owner_id = ?
		WHERE id = ?`,
		r.Name, r.Note, r.SourceName, r.SourceURL, r.Servings,
		string(steps), string(ings), toNull(r.ScaleFactor), toNull(r.Rating),
		r.NutritionalInfo, toNull(r.CookTime), toNull(r.PrepTime),
		r.Timestamp, uid, r.ID,
	)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res); err != nil {
		return fmt.Errorf("recipe %s: %w", r.ID, err)
	}
	return nil
}

func (d *DB) DeleteRecipe(ctx context.Context, id string) error {
	res, err := d.q.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res); err != nil {
		return fmt.Errorf("recipe %s: %w", id, err)
	}
	return nil
}

func scanRecipe(row rowScanner) (*anylist.Recipe, error) {
	var (
		r                   anylist.Recipe
		steps, ings         string
		scaleFactor, rating sql.Null[float64]
		cookTime, prepTime  sql.Null[int64]
	)
	err := row.Scan(
		&r.ID, &r.Name, &r.Note, &r.SourceName, &r.SourceURL, &r.Servings,
		&steps, &ings, &scaleFactor, &rating, &r.NutritionalInfo,
		&cookTime, &prepTime, &r.Timestamp, &r.CreationTimestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("scan recipe: %w", err)
	}
	if err := json.Unmarshal([]byte(normalizeJSON(json.RawMessage(steps), "[]")), &r.PreparationSteps); err != nil {
		return nil, fmt.Errorf("recipe %s steps: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(normalizeJSON(json.RawMessage(ings), "[]")), &r.Ingredients); err != nil {
		return nil, fmt.Errorf("recipe %s ingredients: %w", r.ID, err)
	}
	r.ScaleFactor = fromNull(scaleFactor)
	r.Rating = fromNull(rating)
	r.CookTime = fromNull(cookTime)
	r.PrepTime = fromNull(prepTime)
	return &r, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
