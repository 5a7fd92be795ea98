package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/restaurant-management/internal/database"
	"github.com/iliyamo/restaurant-management/internal/model"
)

// DefaultCategory is used for menu items created without one.
const DefaultCategory = "Other"

type MenuRepo struct{ DB *sql.DB }

func NewMenuRepo(db *sql.DB) *MenuRepo { return &MenuRepo{DB: db} }

// List returns the menu grouped by category.
func (r *MenuRepo) List(ctx context.Context) ([]model.MenuItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, item_name, category, price FROM menu_items ORDER BY category, item_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MenuItem{}
	for rows.Next() {
		var m model.MenuItem
		if err := rows.Scan(&m.ItemID, &m.ItemName, &m.Category, &m.Price); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MenuRepo) GetByID(ctx context.Context, id uint64) (model.MenuItem, error) {
	var m model.MenuItem
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, item_name, category, price FROM menu_items WHERE id = ?", id).
		Scan(&m.ItemID, &m.ItemName, &m.Category, &m.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrMenuItemNotFound
	}
	return m, err
}

// Create inserts m, defaulting its category, and sets its ID.
func (r *MenuRepo) Create(ctx context.Context, m *model.MenuItem) error {
	m.ItemName = strings.TrimSpace(m.ItemName)
	m.Category = strings.TrimSpace(m.Category)
	if m.Category == "" {
		m.Category = DefaultCategory
	}
	m.Price = model.Money(m.Price)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO menu_items (item_name, category, price) VALUES (?,?,?)",
		m.ItemName, m.Category, m.Price)
	if err != nil {
		return err
	}
	m.ItemID, err = lastID(res)
	return err
}

// UpdatePrice changes the base price.  Existing order lines keep the price
// they were created with.
func (r *MenuRepo) UpdatePrice(ctx context.Context, id uint64, price decimal.Decimal) (model.MenuItem, error) {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE menu_items SET price = ? WHERE id = ?", model.Money(price), id); err != nil {
		return model.MenuItem{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes an item.  Items that appear on orders yield ErrInUse.
func (r *MenuRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM menu_items WHERE id = ?", id)
	if err != nil {
		if database.IsMySQLError(err, database.ErrRowIsReferenced) {
			return ErrInUse
		}
		return err
	}
	return affectedOr(res, ErrMenuItemNotFound)
}
