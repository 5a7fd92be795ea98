package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-management/internal/availability"
	"github.com/iliyamo/restaurant-management/internal/config"
	"github.com/iliyamo/restaurant-management/internal/metrics"
	"github.com/iliyamo/restaurant-management/internal/middleware"
	"github.com/iliyamo/restaurant-management/internal/model"
	"github.com/iliyamo/restaurant-management/internal/pricing"
	"github.com/iliyamo/restaurant-management/internal/repository"
	"github.com/iliyamo/restaurant-management/internal/service"
	"github.com/iliyamo/restaurant-management/internal/utils"
)

const testSecret = "test-secret"

var (
	tableCols   = []string{"id", "table_type_id", "location", "capacity", "type"}
	resCols     = []string{"id", "user_id", "table_id", "date", "start_time", "end_time", "people", "status", "satisfaction_rating", "created_at"}
	resViewCols = append(append([]string{}, resCols...), "name", "location", "capacity")
	orderCols   = []string{"id", "user_id", "reservation_id", "status", "created_at", "name"}
	userCols    = []string{"id", "name", "email", "phone", "password_hash", "is_admin", "is_member", "created_at"}
)

type testServer struct {
	e    *echo.Echo
	mock sqlmock.Sqlmock
}

// newTestServer mounts the booking, ordering and auth handlers on a fresh
// echo instance backed by sqlmock.
func newTestServer(t *testing.T) testServer {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := metrics.New()
	tables := repository.NewTableRepo(db)
	reservations := repository.NewReservationRepo(db)
	orders := repository.NewOrderRepo(db)
	users := repository.NewUserRepo(db)
	resolver := availability.NewResolver(repository.AvailabilityStore{Tables: tables, Reservations: reservations})
	bookings := service.NewReservationService(reservations, resolver, nil, nil, m)
	priceSvc := pricing.NewService(pricing.NewCalculator(decimal.RequireFromString("0.20")))

	rh := NewReservationHandler(resolver, bookings, reservations, m)
	checkout := service.NewCheckoutService(db, orders, repository.NewPaymentRepo(db), priceSvc, "Cash", nil, m)
	oh := NewOrderHandler(orders, reservations, priceSvc, checkout, m)
	ah := NewAuthHandler(config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}, users, repository.NewTokenRepo(db))

	e := echo.New()
	user := []echo.MiddlewareFunc{middleware.JWTAuth(testSecret), middleware.RequireUser()}
	e.POST("/available-tables", rh.Available)
	e.POST("/reservations", rh.Create, user...)
	e.POST("/orders", oh.Create, user...)
	e.POST("/orders/checkout", oh.PlaceOrder, user...)
	e.POST("/order-details", oh.AddDetail, user...)
	e.POST("/auth/login", ah.Login)
	return testServer{e: e, mock: mock}
}

func bearer(t *testing.T, uid uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, uid, "guest@example.com", role, 15)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func (s testServer) do(method, path, body, auth string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func nextWeek() (string, time.Time) {
	n := time.Now().AddDate(0, 0, 7)
	d := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return d.Format("2006-01-02"), d
}

func TestAvailableTablesExcludesOverlappingBookings(t *testing.T) {
	s := newTestServer(t)
	date, day := nextWeek()
	s.mock.ExpectQuery("WHERE t.capacity >= \\?").
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(tableCols).
			AddRow(1, 1, "Window", 4, "Booth").
			AddRow(2, 2, "Terrace", 6, "Outdoor").
			AddRow(3, 1, "Corner", 4, "Booth"))
	s.mock.ExpectQuery("FROM reservations r WHERE r.date = \\?").
		WithArgs(date, model.ReservationCancelled).
		WillReturnRows(sqlmock.NewRows(resCols).
			AddRow(10, 5, 1, day, 18, 20, 2, "Confirmed", nil, day).
			// ends when the request starts: half-open, no clash
			AddRow(11, 6, 3, day, 17, 19, 2, "Pending", nil, day))

	rec, body := s.do(http.MethodPost, "/available-tables",
		`{"date":"`+date+`","startTime":19,"endTime":21,"capacity":4}`, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	data := body["data"].([]any)
	require.Len(t, data, 2)
	assert.EqualValues(t, 2, data[0].(map[string]any)["TableID"])
	assert.EqualValues(t, 3, data[1].(map[string]any)["TableID"])
	assert.Equal(t, "Outdoor", data[0].(map[string]any)["Type"])
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestAvailableTablesValidation(t *testing.T) {
	s := newTestServer(t)
	date, _ := nextWeek()
	cases := map[string]string{
		"past date":      `{"date":"2001-01-01","startTime":10,"endTime":12,"capacity":2}`,
		"missing fields": `{"date":"` + date + `","startTime":10}`,
		"empty range":    `{"date":"` + date + `","startTime":12,"endTime":12,"capacity":2}`,
		"bad date":       `{"date":"next tuesday","startTime":10,"endTime":12,"capacity":2}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec, out := s.do(http.MethodPost, "/available-tables", body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, out["success"])
			assert.NotEmpty(t, out["message"])
		})
	}
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func bookingBody(date string, extra string) string {
	return `{"TableID":7,"Date":"` + date + `","StartTime":18,"EndTime":20,"People":4` + extra + `}`
}

func TestCreateReservation(t *testing.T) {
	s := newTestServer(t)
	date, _ := nextWeek()
	s.mock.ExpectBegin()
	s.mock.ExpectQuery("FOR UPDATE").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_type_id", "location", "capacity"}).AddRow(7, 1, "Window", 4))
	s.mock.ExpectQuery("FROM reservations r").WillReturnRows(sqlmock.NewRows(resCols))
	s.mock.ExpectExec("INSERT INTO reservations").
		WithArgs(uint64(2), uint64(7), date, 18, 20, 4, "Pending").
		WillReturnResult(sqlmock.NewResult(15, 1))
	s.mock.ExpectCommit()

	rec, body := s.do(http.MethodPost, "/reservations", bookingBody(date, ""), bearer(t, 2, model.RoleCustomer))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Reservation created successfully", body["message"])
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 15, data["ReservationID"])
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestCreateReservationConflict(t *testing.T) {
	s := newTestServer(t)
	date, day := nextWeek()
	s.mock.ExpectBegin()
	s.mock.ExpectQuery("FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_type_id", "location", "capacity"}).AddRow(7, 1, "Window", 4))
	s.mock.ExpectQuery("FROM reservations r").
		WillReturnRows(sqlmock.NewRows(resCols).AddRow(3, 9, 7, day, 19, 21, 2, "Confirmed", nil, day))
	s.mock.ExpectRollback()

	rec, body := s.do(http.MethodPost, "/reservations", bookingBody(date, ""), bearer(t, 2, model.RoleCustomer))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestCreateReservationAuthorization(t *testing.T) {
	s := newTestServer(t)
	date, _ := nextWeek()

	rec, _ := s.do(http.MethodPost, "/reservations", bookingBody(date, ""), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := s.do(http.MethodPost, "/reservations", bookingBody(date, `,"UserID":3`), bearer(t, 2, model.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestAddOrderDetailAppliesMemberDiscount(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()
	s.mock.ExpectQuery("FROM orders o LEFT JOIN users u").
		WithArgs(uint64(40)).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(40, 2, nil, "Pending", now, "Ana"))
	s.mock.ExpectQuery("SELECT u.is_member FROM orders").
		WithArgs(uint64(40)).
		WillReturnRows(sqlmock.NewRows([]string{"is_member"}).AddRow(true))
	s.mock.ExpectQuery("SELECT price FROM menu_items").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"price"}).AddRow("12.50"))
	s.mock.ExpectExec("INSERT INTO order_details").
		WithArgs(uint64(40), uint64(3), 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(100, 1))

	rec, body := s.do(http.MethodPost, "/order-details", `{"OrderID":40,"ItemID":3,"Quantity":2}`, bearer(t, 2, model.RoleCustomer))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Order detail created successfully", body["message"])
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 100, data["OrderDetailID"])
	assert.Equal(t, true, data["isMember"])
	assert.InDelta(t, 12.5, data["basePrice"], 1e-9)
	assert.InDelta(t, 2.5, data["discountApplied"], 1e-9)
	assert.InDelta(t, 10.0, data["finalPrice"], 1e-9)
	assert.InDelta(t, 10.0, data["Price"], 1e-9)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestAddOrderDetailErrors(t *testing.T) {
	s := newTestServer(t)
	customer := bearer(t, 2, model.RoleCustomer)

	rec, _ := s.do(http.MethodPost, "/order-details", `{"OrderID":40,"ItemID":3}`, customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPost, "/order-details", `{"OrderID":40,"ItemID":3,"Quantity":-1}`, customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.mock.ExpectQuery("FROM orders o").WithArgs(uint64(41)).WillReturnError(sql.ErrNoRows)
	rec, body := s.do(http.MethodPost, "/order-details", `{"OrderID":41,"ItemID":3,"Quantity":1}`, customer)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", body["message"])

	s.mock.ExpectQuery("FROM orders o").WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(42, 9, nil, "Pending", time.Now(), "Bo"))
	rec, _ = s.do(http.MethodPost, "/order-details", `{"OrderID":42,"ItemID":3,"Quantity":1}`, customer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s.mock.ExpectQuery("FROM orders o").WithArgs(uint64(43)).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(43, 9, nil, "Pending", time.Now(), "Bo"))
	s.mock.ExpectQuery("SELECT u.is_member").WillReturnRows(sqlmock.NewRows([]string{"is_member"}).AddRow(false))
	s.mock.ExpectQuery("SELECT price FROM menu_items").WillReturnError(sql.ErrNoRows)
	rec, body = s.do(http.MethodPost, "/order-details", `{"OrderID":43,"ItemID":77,"Quantity":1}`, bearer(t, 1, model.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Menu item not found", body["message"])

	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	hash, err := utils.HashPassword("secret1", 4)
	require.NoError(t, err)
	now := time.Now()

	s.mock.ExpectQuery("FROM users WHERE email=\\?").
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(2, "Ana", "ana@example.com", "555", hash, false, true, now))
	rec, body := s.do(http.MethodPost, "/auth/login", `{"Email":"ana@example.com","Password":"wrong!"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", body["message"])

	s.mock.ExpectQuery("FROM users WHERE email=\\?").
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(2, "Ana", "ana@example.com", "555", hash, false, true, now))
	s.mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(uint64(2), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	rec, body = s.do(http.MethodPost, "/auth/login", `{"Email":"ana@example.com","Password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := body["data"].(map[string]any)
	access := data["access"].(map[string]any)["token"].(string)
	claims, err := utils.ParseAccessToken(testSecret, access)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, claims.Role)
	_, hasHash := data["user"].(map[string]any)["PasswordHash"]
	assert.False(t, hasHash)

	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func (s testServer) expectReservation(id, owner uint64) {
	_, day := nextWeek()
	s.mock.ExpectQuery("FROM reservations r").WithArgs(id).
		WillReturnRows(sqlmock.NewRows(resViewCols).AddRow(id, owner, 2, day, 19, 21, 2, "Confirmed", nil, day, "Guest", "Window", 4))
}

func TestOrdersRejectSomeoneElsesReservation(t *testing.T) {
	for _, path := range []string{"/orders", "/orders/checkout"} {
		t.Run(path, func(t *testing.T) {
			s := newTestServer(t)
			s.expectReservation(3, 7)

			rec, body := s.do(http.MethodPost, path, `{"ReservationID":3,"Items":[{"ItemID":1,"Quantity":1}]}`, bearer(t, 9, "CUSTOMER"))
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.NoError(t, s.mock.ExpectationsWereMet())
		})
	}
}

func TestOrdersUnknownReservation(t *testing.T) {
	for _, path := range []string{"/orders", "/orders/checkout"} {
		t.Run(path, func(t *testing.T) {
			s := newTestServer(t)
			s.mock.ExpectQuery("FROM reservations r").WithArgs(uint64(999)).WillReturnError(sql.ErrNoRows)

			rec, body := s.do(http.MethodPost, path, `{"ReservationID":999,"Items":[{"ItemID":1,"Quantity":1}]}`, bearer(t, 9, "CUSTOMER"))
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "Reservation not found", body["message"])
			assert.NoError(t, s.mock.ExpectationsWereMet())
		})
	}
}

func TestCreateOrderWithOwnReservation(t *testing.T) {
	s := newTestServer(t)
	s.expectReservation(3, 9)
	s.mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(50, 1))

	rec, body := s.do(http.MethodPost, "/orders", `{"ReservationID":3}`, bearer(t, 9, "CUSTOMER"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Order created successfully", body["message"])
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestCreateOrderStatusIsAdminOnly(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(http.MethodPost, "/orders", `{"Status":"Completed"}`, bearer(t, 9, "CUSTOMER"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s.mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(51, 1))
	rec, _ = s.do(http.MethodPost, "/orders", `{"UserID":9,"Status":"Completed"}`, bearer(t, 1, "ADMIN"))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NoError(t, s.mock.ExpectationsWereMet())
}
