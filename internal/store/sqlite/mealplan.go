package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/revittco/anylist-mcp/internal/anylist"
	"github.com/revittco/anylist-mcp/internal/store"
)

const eventSelect = `
	SELECT e.id, e.date, e.title, e.details,
		COALESCE(e.recipe_id, ''), COALESCE(r.name, ''),
		COALESCE(e.label_id, ''), COALESCE(l.name, ''),
		e.recipe_scale_factor
	FROM meal_plan_events e
	LEFT JOIN recipes r ON r.id = e.recipe_id
	LEFT JOIN meal_plan_labels l ON l.id = e.label_id`

func (d *DB) MealPlanEvents(ctx context.Context) ([]*anylist.MealPlanEvent, error) {
	rows, err := d.q.QueryContext(ctx, eventSelect+` ORDER BY e.date, e.rowid`)
	if err != nil {
		return nil, fmt.Errorf("query meal plan events: %w", err)
	}
	defer rows.Close()

	var out []*anylist.MealPlanEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DB) MealPlanLabels(ctx context.Context) ([]*anylist.Label, error) {
	rows, err := d.q.QueryContext(ctx, `
		SELECT id, name, hex_color, sort_index
		FROM meal_plan_labels ORDER BY sort_index, name`)
	if err != nil {
		return nil, fmt.Errorf("query meal plan labels: %w", err)
	}
	defer rows.Close()

	var out []*anylist.Label
	for rows.Next() {
		l := &anylist.Label{}
		if err := rows.Scan(&l.ID, &l.Name, &l.HexColor, &l.SortIndex); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SaveEvent inserts an event without an id, assigning one, and updates an
// existing event otherwise. The recipe and label names are filled in from
// the stored rows.
func (d *DB) SaveEvent(ctx context.Context, uid string, e *anylist.MealPlanEvent) error {
	return d.withTx(ctx, func(q queryable) error {
		if e.ID == "" {
			id := uuid.NewString()
			_, err := q.ExecContext(ctx, `
				INSERT INTO meal_plan_events
					(id, date, title, details, recipe_id, label_id,
					 recipe_scale_factor, owner_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				id, formatDatePtr(e.Date), e.Title, e.Details,
				nullString(e.RecipeID), nullString(e.LabelID),
				toNull(e.RecipeScaleFactor), uid,
			)
			if err != nil {
				return mapConstraintError(err)
			}
			e.ID = id
		} else {
			res, err := q.ExecContext(ctx, `
				UPDATE meal_plan_events SET date = ?, title = ?, details = ?,
					recipe_id = ?, label_id = ?, recipe_scale_factor = ?,
					owner_id = ?
				WHERE id = ?`,
				formatDatePtr(e.Date), e.Title, e.Details,
				nullString(e.RecipeID), nullString(e.LabelID),
				toNull(e.RecipeScaleFactor), uid, e.ID,
			)
			if err != nil {
				return err
			}
			if err := checkRowsAffected(res); err != nil {
				return fmt.Errorf("event %s: %w", e.ID, err)
			}
		}

		saved, err := scanEvent(q.QueryRowContext(ctx, eventSelect+` WHERE e.id = ?`, e.ID))
		if err != nil {
			return err
		}
		e.RecipeName = saved.RecipeName
		e.LabelName = saved.LabelName
		return nil
	})
}

func (d *DB) DeleteEvent(ctx context.Context, id string) error {
	res, err := d.q.ExecContext(ctx, `DELETE FROM meal_plan_events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res); err != nil {
		return fmt.Errorf("event %s: %w", id, err)
	}
	return nil
}

func scanEvent(row rowScanner) (*anylist.MealPlanEvent, error) {
	var (
		e           anylist.MealPlanEvent
		date        sql.NullString
		scaleFactor sql.Null[float64]
	)
	err := row.Scan(
		&e.ID, &date, &e.Title, &e.Details,
		&e.RecipeID, &e.RecipeName, &e.LabelID, &e.LabelName,
		&scaleFactor,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	e.Date = parseDatePtr(date)
	e.RecipeScaleFactor = fromNull(scaleFactor)
	return &e, nil
}
