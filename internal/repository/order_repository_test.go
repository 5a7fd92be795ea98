package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-management/internal/model"
)

func TestPricingStoreLookups(t *testing.T) {
	db, mock := newMock(t)
	store := PricingStore{Q: db}

	mock.ExpectQuery("SELECT u.is_member FROM orders").WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"is_member"}).AddRow(true))
	member, err := store.OrderOwnerIsMember(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, member)

	mock.ExpectQuery("SELECT u.is_member FROM orders").WithArgs(uint64(2)).WillReturnError(sql.ErrNoRows)
	_, err = store.OrderOwnerIsMember(context.Background(), 2)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	mock.ExpectQuery("SELECT price FROM menu_items").WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"price"}).AddRow("12.50"))
	price, err := store.ItemPrice(context.Background(), 9)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("12.5")))

	mock.ExpectQuery("SELECT price FROM menu_items").WithArgs(uint64(10)).WillReturnError(sql.ErrNoRows)
	_, err = store.ItemPrice(context.Background(), 10)
	assert.ErrorIs(t, err, ErrMenuItemNotFound)

	mock.ExpectExec("INSERT INTO order_details").
		WithArgs(uint64(1), uint64(9), 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(31, 1))
	d := model.OrderDetail{OrderID: 1, ItemID: 9, Quantity: 2, Price: decimal.RequireFromString("10.00")}
	require.NoError(t, store.InsertOrderDetail(context.Background(), &d))
	assert.Equal(t, uint64(31), d.OrderDetailID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderDeleteRemovesChildrenInTx(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM payments WHERE order_id").WithArgs(uint64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM order_details WHERE order_id").WithArgs(uint64(4)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM orders WHERE id").WithArgs(uint64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewOrderRepo(db).Delete(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderDeleteMissingRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM payments").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM order_details").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM orders").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := NewOrderRepo(db).Delete(context.Background(), 4)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderTotal(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT SUM").WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("24.000"))
	total, err := NewOrderRepo(db).OrderTotal(context.Background(), db, 3)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("24")))

	mock.ExpectQuery("SELECT SUM").WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(nil))
	total, err = NewOrderRepo(db).OrderTotal(context.Background(), db, 4)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestPaymentCompleteOnlyFromPending(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "order_id", "user_id", "amount", "payment_method", "status", "payment_date"}
	paid := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE id = \\? FOR UPDATE").WithArgs(uint64(6)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(6, 2, 1, "30.00", "Cash", "Completed", paid))
	mock.ExpectRollback()

	_, err := NewPaymentRepo(db).Complete(context.Background(), 6)
	var notPending *ErrPaymentNotPending
	require.True(t, errors.As(err, &notPending))
	assert.Equal(t, "Completed", notPending.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentComplete(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "order_id", "user_id", "amount", "payment_method", "status", "payment_date"}
	paid := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(uint64(6)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(6, 2, nil, "30.00", "Cash", "Pending", nil))
	mock.ExpectExec("UPDATE payments SET status").WithArgs("Completed", uint64(6)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM payments WHERE id = \\?").WithArgs(uint64(6)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(6, 2, nil, "30.00", "Cash", "Completed", paid))
	mock.ExpectCommit()

	p, err := NewPaymentRepo(db).Complete(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, p.Status)
	assert.Nil(t, p.UserID)
	require.NotNil(t, p.PaymentDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBusiestTimesFoldsHoursIntoSlots(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT start_time, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"start_time", "count"}).
			AddRow(9, 2).AddRow(10, 1).AddRow(19, 5).AddRow(3, 7))

	slot := func(h int) string {
		switch {
		case h >= 8 && h <= 11:
			return "Morning"
		case h >= 18 && h <= 23:
			return "Evening"
		}
		return ""
	}
	got, err := NewReportRepo(db).BusiestTimes(context.Background(), slot)
	require.NoError(t, err)
	assert.Equal(t, []SlotCount{{TimeSlot: "Evening", Reservations: 5}, {TimeSlot: "Morning", Reservations: 3}}, got)
}

func TestCreateOrderMapsForeignKeyErrors(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOrderRepo(db)
	resID := uint64(999)

	mock.ExpectExec("INSERT INTO orders").
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row: a foreign key constraint fails " +
			"(`restaurant`.`orders`, CONSTRAINT `fk_orders_reservation` FOREIGN KEY (`reservation_id`) REFERENCES `reservations` (`id`))"})
	err := repo.Create(context.Background(), &model.Order{UserID: 5, ReservationID: &resID})
	assert.ErrorIs(t, err, ErrReservationNotFound)

	mock.ExpectExec("INSERT INTO orders").
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row: a foreign key constraint fails " +
			"(`restaurant`.`orders`, CONSTRAINT `fk_orders_user` FOREIGN KEY (`user_id`) REFERENCES `users` (`id`))"})
	err = repo.Create(context.Background(), &model.Order{UserID: 404})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
