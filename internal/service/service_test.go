package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-management/internal/availability"
	"github.com/iliyamo/restaurant-management/internal/config"
	"github.com/iliyamo/restaurant-management/internal/metrics"
	"github.com/iliyamo/restaurant-management/internal/pricing"
	"github.com/iliyamo/restaurant-management/internal/repository"
)

var (
	resCols   = []string{"id", "user_id", "table_id", "date", "start_time", "end_time", "people", "status", "satisfaction_rating", "created_at"}
	tableCols = []string{"id", "table_type_id", "location", "capacity"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func fixedResolver() *availability.Resolver {
	now := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	return availability.NewResolver(nil, availability.WithClock(func() time.Time { return now }))
}

func u64(v uint64) *uint64 { return &v }
func iptr(v int) *int { return &v }

func TestLockerSerializesAndReleases(t *testing.T) {
	l := NewLocker(config.LockConfig{Enabled: true, TTL: time.Second, Wait: 60 * time.Millisecond, Prefix: "test:lock"}, newRedis(t))
	ctx := context.Background()

	release, err := l.Acquire(ctx, "table:1:2030-01-10")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "table:1:2030-01-10")
	assert.ErrorIs(t, err, ErrLockBusy)

	other, err := l.Acquire(ctx, "table:2:2030-01-10")
	require.NoError(t, err)
	other()

	release()
	again, err := l.Acquire(ctx, "table:1:2030-01-10")
	require.NoError(t, err)
	again()
}

func TestLockerWithoutRedisIsNoop(t *testing.T) {
	release, err := NewLocker(config.LockConfig{Enabled: true}, nil).Acquire(context.Background(), "k")
	require.NoError(t, err)
	assert.NotPanics(t, release)
}

func TestLockerFallsBackWhenRedisGoesAway(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	l := NewLocker(config.LockConfig{Enabled: true, TTL: time.Second, Wait: 50 * time.Millisecond, Prefix: "test:lock"}, rdb)

	mr.Close()
	release, err := l.Acquire(context.Background(), "table:1:2030-01-10")
	require.NoError(t, err)
	assert.NotPanics(t, release)
}

func TestParseBooking(t *testing.T) {
	s := NewReservationService(nil, fixedResolver(), nil, nil, nil)

	_, err := s.Parse(BookingRequest{TableID: u64(1), Date: "2030-01-10", StartTime: iptr(18), EndTime: iptr(20)}, 4)
	var ve *availability.ValidationError
	assert.ErrorAs(t, err, &ve, "People missing")

	_, err = s.Parse(BookingRequest{TableID: u64(1), Date: "2029-12-31", StartTime: iptr(18), EndTime: iptr(20), People: iptr(2)}, 4)
	assert.ErrorAs(t, err, &ve, "past date")

	_, err = s.Parse(BookingRequest{TableID: u64(1), Date: "2030-01-10", StartTime: iptr(20), EndTime: iptr(18), People: iptr(2)}, 4)
	assert.ErrorAs(t, err, &ve, "inverted hours")

	b, err := s.Parse(BookingRequest{TableID: u64(1), Date: "2030-01-10", StartTime: iptr(18), EndTime: iptr(20), People: iptr(2)}, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), b.UserID)
	assert.Equal(t, "2030-01-10", availability.FormatDate(b.Date))
}

func booking() Booking {
	return Booking{UserID: 2, TableID: 7, Date: time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC), StartTime: 18, EndTime: 20, People: 4}
}

func TestBookInsertsInsideTransaction(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM dining_tables WHERE id = \\? FOR UPDATE").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(tableCols).AddRow(7, 1, "Window", 4))
	mock.ExpectQuery("FROM reservations r").
		WithArgs(uint64(7), "2030-01-10", "Cancelled", 18, 20).
		WillReturnRows(sqlmock.NewRows(resCols))
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs(uint64(2), uint64(7), "2030-01-10", 18, 20, 4, "Pending").
		WillReturnResult(sqlmock.NewResult(15, 1))
	mock.ExpectCommit()

	m := metrics.New()
	locker := NewLocker(config.LockConfig{Enabled: true, TTL: time.Second, Prefix: "t"}, newRedis(t))
	s := NewReservationService(repository.NewReservationRepo(db), fixedResolver(), locker, NewNotifier(nil, m), m)

	res, err := s.Book(context.Background(), booking())
	require.NoError(t, err)
	assert.Equal(t, uint64(15), res.ReservationID)
	assert.Equal(t, "Pending", res.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRejectsOverlap(t *testing.T) {
	db, mock := newMock(t)
	day := time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM dining_tables").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(tableCols).AddRow(7, 1, "Window", 6))
	mock.ExpectQuery("FROM reservations r").
		WillReturnRows(sqlmock.NewRows(resCols).AddRow(3, 9, 7, day, 19, 21, 2, "Confirmed", nil, day))
	mock.ExpectRollback()

	s := NewReservationService(repository.NewReservationRepo(db), fixedResolver(), nil, nil, nil)
	_, err := s.Book(context.Background(), booking())
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRejectsPartyLargerThanTable(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM dining_tables").
		WillReturnRows(sqlmock.NewRows(tableCols).AddRow(7, 1, "Bar", 2))
	mock.ExpectRollback()

	s := NewReservationService(repository.NewReservationRepo(db), fixedResolver(), nil, nil, nil)
	_, err := s.Book(context.Background(), booking())
	var ve *availability.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookUnknownTable(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM dining_tables").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	s := NewReservationService(repository.NewReservationRepo(db), fixedResolver(), nil, nil, nil)
	_, err := s.Book(context.Background(), booking())
	assert.ErrorIs(t, err, repository.ErrTableNotFound)
}

func newCheckout(db *sql.DB) *CheckoutService {
	calc := pricing.NewCalculator(decimal.RequireFromString("0.20"))
	return NewCheckoutService(db, repository.NewOrderRepo(db), repository.NewPaymentRepo(db),
		pricing.NewService(calc), "Credit Card", nil, nil)
}

func TestCheckoutPricesLinesAndCreatesPayment(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(uint64(5), sqlmock.AnyArg(), "Pending").
		WillReturnResult(sqlmock.NewResult(40, 1))
	mock.ExpectQuery("SELECT u.is_member FROM orders").
		WithArgs(uint64(40)).
		WillReturnRows(sqlmock.NewRows([]string{"is_member"}).AddRow(true))
	mock.ExpectQuery("SELECT price FROM menu_items").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"price"}).AddRow("10.00"))
	mock.ExpectExec("INSERT INTO order_details").
		WithArgs(uint64(40), uint64(3), 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectQuery("SELECT SUM\\(quantity \\* price\\)").
		WithArgs(uint64(40)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("16.00"))
	mock.ExpectExec("INSERT INTO payments").
		WithArgs(uint64(40), sqlmock.AnyArg(), sqlmock.AnyArg(), "Cash", "Pending").
		WillReturnResult(sqlmock.NewResult(90, 1))
	mock.ExpectCommit()

	rec, err := newCheckout(db).Checkout(context.Background(), 5, CheckoutRequest{
		Items:         []CheckoutItem{{ItemID: u64(3), Quantity: iptr(2)}},
		PaymentMethod: "Cash",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(40), rec.Order.OrderID)
	require.Len(t, rec.Lines, 1)
	assert.True(t, rec.Lines[0].Quote.FinalPrice.Equal(decimal.RequireFromString("8")))
	assert.True(t, rec.Total.Equal(decimal.RequireFromString("16")))
	assert.Equal(t, uint64(90), rec.Payment.PaymentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRollsBackOnUnknownItem(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectQuery("SELECT u.is_member").WillReturnRows(sqlmock.NewRows([]string{"is_member"}).AddRow(false))
	mock.ExpectQuery("SELECT price FROM menu_items").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := newCheckout(db).Checkout(context.Background(), 5, CheckoutRequest{
		Items: []CheckoutItem{{ItemID: u64(99), Quantity: iptr(1)}},
	})
	assert.ErrorIs(t, err, repository.ErrMenuItemNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutValidatesBeforeWriting(t *testing.T) {
	db, mock := newMock(t)
	s := newCheckout(db)

	_, err := s.Checkout(context.Background(), 5, CheckoutRequest{})
	assert.ErrorIs(t, err, ErrEmptyCheckout)

	_, err = s.Checkout(context.Background(), 5, CheckoutRequest{Items: []CheckoutItem{{ItemID: u64(1), Quantity: iptr(0)}}})
	assert.ErrorIs(t, err, pricing.ErrInvalidLine)
	assert.NoError(t, mock.ExpectationsWereMet())
}
