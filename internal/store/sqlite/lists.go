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

// CreateList adds an empty shopping list and returns its id.
func (d *DB) CreateList(ctx context.Context, name string) (string, error) {
	id := uuid.NewString()
	_, err := d.q.ExecContext(ctx,
		`INSERT INTO lists (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, formatTime(d.now()),
	)
	if err != nil {
		return "", mapConstraintError(err)
	}
	return id, nil
}

func (d *DB) Lists(ctx context.Context) ([]*anylist.List, error) {
	rows, err := d.q.QueryContext(ctx,
		`SELECT id, name, parent_id FROM lists ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()

	var lists []*anylist.List
	byID := make(map[string]*anylist.List)
	for rows.Next() {
		l := &anylist.List{}
		if err := rows.Scan(&l.ID, &l.Name, &l.ParentID); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, l)
		byID[l.ID] = l
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := d.q.QueryContext(ctx, `
		SELECT id, list_id, name, details, quantity, checked,
			category_match_id, owner_id
		FROM items ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		it, err := scanItemRow(itemRows)
		if err != nil {
			return nil, err
		}
		if l, ok := byID[it.ListID]; ok {
			l.Items = append(l.Items, it)
		}
	}
	return lists, itemRows.Err()
}

func (d *DB) RecentItems(ctx context.Context) (map[string][]*anylist.Item, error) {
	rows, err := d.q.QueryContext(ctx, `
		SELECT id, list_id, name, details, quantity, owner_id
		FROM recent_items ORDER BY used_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query recent items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]*anylist.Item)
	for rows.Next() {
		it := &anylist.Item{}
		if err := rows.Scan(&it.ID, &it.ListID, &it.Name, &it.Details, &it.Quantity, &it.OwnerID); err != nil {
			return nil, fmt.Errorf("scan recent item: %w", err)
		}
		out[it.ListID] = append(out[it.ListID], it)
	}
	return out, rows.Err()
}

func (d *DB) AddItem(ctx context.Context, uid, listID string, item *anylist.Item) (*anylist.Item, error) {
	out := *item
	out.ID = uuid.NewString()
	out.ListID = listID
	out.OwnerID = uid

	err := d.withTx(ctx, func(q queryable) error {
		if err := listExists(ctx, q, listID); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO items
				(id, list_id, name, details, quantity, checked,
				 category_match_id, owner_id, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			out.ID, out.ListID, out.Name, out.Details, out.Quantity,
			boolToInt(out.Checked), out.CategoryMatchID, out.OwnerID,
			formatTime(d.now()),
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (d *DB) SaveItem(ctx context.Context, uid string, item *anylist.Item) error {
	owner := item.OwnerID
	if owner == "" {
		owner = uid
	}
	res, err := d.q.ExecContext(ctx, `
		UPDATE items SET name = ?, details = ?, quantity = ?, checked = ?,
			category_match_id = ?, owner_id = ?, updated_at = ?
		WHERE id = ? AND list_id = ?`,
		item.Name, item.Details, item.Quantity, boolToInt(item.Checked),
		item.CategoryMatchID, owner, formatTime(d.now()),
		item.ID, item.ListID,
	)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res); err != nil {
		return fmt.Errorf("item %s: %w", item.ID, err)
	}
	return nil
}

// RemoveItem deletes the item and remembers it as a recent item of its list.
func (d *DB) RemoveItem(ctx context.Context, listID, itemID string) error {
	return d.withTx(ctx, func(q queryable) error {
		it, err := scanItemRow(q.QueryRowContext(ctx, `
			SELECT id, list_id, name, details, quantity, checked,
				category_match_id, owner_id
			FROM items WHERE id = ? AND list_id = ?`, itemID, listID))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("item %s: %w", itemID, store.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, itemID); err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO recent_items (id, list_id, name, details, quantity, owner_id, used_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), it.ListID, it.Name, it.Details, it.Quantity,
			it.OwnerID, formatTime(d.now()),
		)
		return err
	})
}

func (d *DB) UncheckAll(ctx context.Context, uid, listID string) error {
	return d.withTx(ctx, func(q queryable) error {
		if err := listExists(ctx, q, listID); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, `
			UPDATE items SET checked = 0, updated_at = ?,
				owner_id = CASE WHEN owner_id = '' THEN ? ELSE owner_id END
			WHERE list_id = ? AND checked = 1`,
			formatTime(d.now()), uid, listID,
		)
		return err
	})
}

func listExists(ctx context.Context, q queryable, listID string) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM lists WHERE id = ?`, listID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("list %s: %w", listID, store.ErrNotFound)
	}
	return nil
}

func scanItemRow(row rowScanner) (*anylist.Item, error) {
	var it anylist.Item
	var checked int
	err := row.Scan(
		&it.ID, &it.ListID, &it.Name, &it.Details, &it.Quantity,
		&checked, &it.CategoryMatchID, &it.OwnerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	it.Checked = checked != 0
	return &it, nil
}
