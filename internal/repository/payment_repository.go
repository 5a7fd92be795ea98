package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/restaurant-management/internal/database"
	"github.com/iliyamo/restaurant-management/internal/model"
)

type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

// ErrPaymentNotPending is returned when completing a payment that is not
// Pending.  Its message carries the current status.
type ErrPaymentNotPending struct{ Status string }

func (e *ErrPaymentNotPending) Error() string {
	return fmt.Sprintf("payment is already %s", e.Status)
}

func scanPayment(s rowScanner) (model.Payment, error) {
	var (
		p      model.Payment
		userID sql.NullInt64
		paid   sql.NullTime
	)
	err := s.Scan(&p.PaymentID, &p.OrderID, &userID, &p.Amount, &p.PaymentMethod, &p.Status, &paid)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrPaymentNotFound
	}
	if err != nil {
		return p, err
	}
	if userID.Valid {
		id := uint64(userID.Int64)
		p.UserID = &id
	}
	if paid.Valid {
		p.PaymentDate = &paid.Time
	}
	return p, nil
}

const paymentColumns = "id, order_id, user_id, amount, payment_method, status, payment_date"

// List returns all payments, newest first.
func (r *PaymentRepo) List(ctx context.Context) ([]model.Payment, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+paymentColumns+" FROM payments ORDER BY payment_date DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (model.Payment, error) {
	return scanPayment(r.DB.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = ?", id))
}

// Create inserts p and sets its ID.  An unknown order yields
// ErrOrderNotFound.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	return r.insert(ctx, r.DB, p)
}

// CreateTx is Create inside a transaction.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	return r.insert(ctx, tx, p)
}

func (r *PaymentRepo) insert(ctx context.Context, q Querier, p *model.Payment) error {
	if p.Status == "" {
		p.Status = model.PaymentPending
	}
	p.Amount = model.Money(p.Amount)
	res, err := q.ExecContext(ctx,
		"INSERT INTO payments (order_id, user_id, amount, payment_method, status) VALUES (?,?,?,?,?)",
		p.OrderID, p.UserID, p.Amount, p.PaymentMethod, p.Status)
	if err != nil {
		switch {
		case database.IsForeignKeyError(err, "fk_payments_user"):
			return ErrUserNotFound
		case database.IsMySQLError(err, database.ErrNoReferencedRow):
			return ErrOrderNotFound
		}
		return err
	}
	p.PaymentID, err = lastID(res)
	return err
}

func (r *PaymentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrPaymentNotFound)
}

// Complete moves a Pending payment to Completed and stamps the payment date.
func (r *PaymentRepo) Complete(ctx context.Context, id uint64) (model.Payment, error) {
	var out model.Payment
	err := database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		p, err := scanPayment(tx.QueryRowContext(ctx,
			"SELECT "+paymentColumns+" FROM payments WHERE id = ? FOR UPDATE", id))
		if err != nil {
			return err
		}
		if p.Status != model.PaymentPending {
			return &ErrPaymentNotPending{Status: p.Status}
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE payments SET status = ?, payment_date = UTC_TIMESTAMP() WHERE id = ?",
			model.PaymentCompleted, id); err != nil {
			return err
		}
		out, err = scanPayment(tx.QueryRowContext(ctx,
			"SELECT "+paymentColumns+" FROM payments WHERE id = ?", id))
		return err
	})
	return out, err
}

// ByCustomer returns the payment history of a user, optionally filtered by
// payment status.
func (r *PaymentRepo) ByCustomer(ctx context.Context, userID uint64, status string) ([]model.PaymentView, error) {
	query := `SELECT p.id, p.order_id, o.status, p.amount, p.payment_method, p.status,
       u.id, u.name, u.email, DATE_FORMAT(p.payment_date, '%Y-%m-%d %H:%i')
FROM payments p
LEFT JOIN orders o ON o.id = p.order_id
LEFT JOIN users u ON u.id = COALESCE(p.user_id, o.user_id)
WHERE COALESCE(p.user_id, o.user_id) = ?`
	args := []any{userID}
	if status != "" {
		query += " AND p.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY p.payment_date DESC, p.id DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PaymentView{}
	for rows.Next() {
		var (
			v                 model.PaymentView
			orderStatus, date sql.NullString
			custID            sql.NullInt64
			name, email       sql.NullString
		)
		if err := rows.Scan(&v.PaymentID, &v.OrderID, &orderStatus, &v.Amount, &v.PaymentMethod,
			&v.PaymentStatus, &custID, &name, &email, &date); err != nil {
			return nil, err
		}
		if orderStatus.Valid {
			v.OrderStatus = &orderStatus.String
		}
		if custID.Valid {
			id := uint64(custID.Int64)
			v.CustomerID = &id
		}
		if name.Valid {
			v.CustomerName = &name.String
		}
		if email.Valid {
			v.CustomerEmail = &email.String
		}
		if date.Valid {
			v.PaymentDate = &date.String
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
