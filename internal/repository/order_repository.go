package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/restaurant-management/internal/database"
	"github.com/iliyamo/restaurant-management/internal/model"
)

// OrderRepo manages orders and their lines.
type OrderRepo struct{ DB *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

const orderSelect = `SELECT o.id, o.user_id, o.reservation_id, o.status, o.created_at, u.name
FROM orders o LEFT JOIN users u ON u.id = o.user_id`

func scanOrder(s rowScanner) (model.Order, error) {
	var (
		o     model.Order
		resID sql.NullInt64
		name  sql.NullString
	)
	err := s.Scan(&o.OrderID, &o.UserID, &resID, &o.Status, &o.CreatedAt, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrOrderNotFound
	}
	if err != nil {
		return o, err
	}
	if resID.Valid {
		id := uint64(resID.Int64)
		o.ReservationID = &id
	}
	if name.Valid {
		o.UserName = &name.String
	}
	return o, nil
}

// List returns all orders, newest first.
func (r *OrderRepo) List(ctx context.Context) ([]model.Order, error) {
	rows, err := r.DB.QueryContext(ctx, orderSelect+" ORDER BY o.created_at DESC, o.id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (model.Order, error) {
	return scanOrder(r.DB.QueryRowContext(ctx, orderSelect+" WHERE o.id = ?", id))
}

// Create inserts o and sets its ID.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	return r.insert(ctx, r.DB, o)
}

// CreateTx is Create inside a transaction.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	return r.insert(ctx, tx, o)
}

func (r *OrderRepo) insert(ctx context.Context, q Querier, o *model.Order) error {
	if o.Status == "" {
		o.Status = model.OrderPending
	}
	res, err := q.ExecContext(ctx,
		"INSERT INTO orders (user_id, reservation_id, status) VALUES (?,?,?)",
		o.UserID, o.ReservationID, o.Status)
	if err != nil {
		switch {
		case database.IsForeignKeyError(err, "fk_orders_reservation"):
			return ErrReservationNotFound
		case database.IsMySQLError(err, database.ErrNoReferencedRow):
			return ErrUserNotFound
		}
		return err
	}
	o.OrderID, err = lastID(res)
	return err
}

// Delete removes an order together with its lines and payments.
func (r *OrderRepo) Delete(ctx context.Context, id uint64) error {
	return database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM payments WHERE order_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM order_details WHERE order_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", id)
		if err != nil {
			return err
		}
		return affectedOr(res, ErrOrderNotFound)
	})
}

// ListDetails returns every order line with its item name.
func (r *OrderRepo) ListDetails(ctx context.Context) ([]model.OrderDetail, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT d.id, d.order_id, d.item_id, d.quantity, d.price, COALESCE(m.item_name, '')
FROM order_details d LEFT JOIN menu_items m ON m.id = d.item_id
ORDER BY d.order_id, d.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.OrderDetail{}
	for rows.Next() {
		var d model.OrderDetail
		if err := rows.Scan(&d.OrderDetailID, &d.OrderID, &d.ItemID, &d.Quantity, &d.Price, &d.ItemName); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDetail removes one order line.
func (r *OrderRepo) DeleteDetail(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM order_details WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrOrderDetailNotFound)
}

// OrderTotal sums quantity * price over the lines of an order.
func (r *OrderRepo) OrderTotal(ctx context.Context, q Querier, orderID uint64) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := q.QueryRowContext(ctx,
		"SELECT SUM(quantity * price) FROM order_details WHERE order_id = ?", orderID).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return model.Money(total.Decimal), nil
}

// PricingStore adapts a Querier to the pricing service.  Bind it to a *sql.Tx
// to price several lines in one transaction.
type PricingStore struct{ Q Querier }

// OrderOwnerIsMember reads the membership flag of the order's user.
func (s PricingStore) OrderOwnerIsMember(ctx context.Context, orderID uint64) (bool, error) {
	var member bool
	err := s.Q.QueryRowContext(ctx,
		"SELECT u.is_member FROM orders o JOIN users u ON u.id = o.user_id WHERE o.id = ?",
		orderID).Scan(&member)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrOrderNotFound
	}
	return member, err
}

// ItemPrice returns the current base price of a menu item.
func (s PricingStore) ItemPrice(ctx context.Context, itemID uint64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := s.Q.QueryRowContext(ctx, "SELECT price FROM menu_items WHERE id = ?", itemID).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrMenuItemNotFound
	}
	return price, err
}

// InsertOrderDetail stores an order line and sets its ID.
func (s PricingStore) InsertOrderDetail(ctx context.Context, d *model.OrderDetail) error {
	res, err := s.Q.ExecContext(ctx,
		"INSERT INTO order_details (order_id, item_id, quantity, price) VALUES (?,?,?,?)",
		d.OrderID, d.ItemID, d.Quantity, d.Price)
	if err != nil {
		return err
	}
	d.OrderDetailID, err = lastID(res)
	return err
}
