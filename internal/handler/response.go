package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-management/internal/authz"
	"github.com/iliyamo/restaurant-management/internal/availability"
	"github.com/iliyamo/restaurant-management/internal/pricing"
	"github.com/iliyamo/restaurant-management/internal/repository"
	"github.com/iliyamo/restaurant-management/internal/service"
)

// Every response is wrapped as {success, data} or {success, message,
// error}.

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

func okMessage(c echo.Context, status int, msg string, data any) error {
	body := echo.Map{"success": true, "message": msg}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(status, body)
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// serverError logs err and echoes its text in the error field.
func serverError(c echo.Context, msg string, err error) error {
	c.Logger().Errorf("%s: %v", msg, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": msg, "error": err.Error()})
}

// storeError maps domain and repository errors to HTTP statuses.  msg is
// the message for unexpected failures.
func storeError(c echo.Context, err error, msg string) error {
	var (
		ve         *availability.ValidationError
		notPending *repository.ErrPaymentNotPending
	)
	switch {
	case errors.As(err, &ve):
		return fail(c, http.StatusBadRequest, ve.Msg)
	case errors.As(err, &notPending):
		return fail(c, http.StatusBadRequest, notPending.Error())
	case errors.Is(err, pricing.ErrInvalidLine), errors.Is(err, service.ErrEmptyCheckout):
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, authz.ErrDenied):
		return fail(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, repository.ErrUserNotFound):
		return fail(c, http.StatusNotFound, "User not found")
	case errors.Is(err, repository.ErrTableNotFound):
		return fail(c, http.StatusNotFound, "Table not found")
	case errors.Is(err, repository.ErrTableTypeNotFound):
		return fail(c, http.StatusNotFound, "Table type not found")
	case errors.Is(err, repository.ErrReservationNotFound):
		return fail(c, http.StatusNotFound, "Reservation not found")
	case errors.Is(err, repository.ErrMenuItemNotFound):
		return fail(c, http.StatusNotFound, "Menu item not found")
	case errors.Is(err, repository.ErrOrderNotFound):
		return fail(c, http.StatusNotFound, "Order not found")
	case errors.Is(err, repository.ErrOrderDetailNotFound):
		return fail(c, http.StatusNotFound, "Order detail not found")
	case errors.Is(err, repository.ErrPaymentNotFound):
		return fail(c, http.StatusNotFound, "Payment not found")
	case errors.Is(err, repository.ErrStaffNotFound):
		return fail(c, http.StatusNotFound, "Staff member not found")
	case errors.Is(err, repository.ErrEmailExists):
		return fail(c, http.StatusConflict, "Email already exists")
	case errors.Is(err, repository.ErrConflict), errors.Is(err, service.ErrLockBusy):
		return fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrInUse):
		return fail(c, http.StatusBadRequest, "Cannot delete: it is still referenced by other records")
	}
	return serverError(c, msg, err)
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badID(c echo.Context) error { return fail(c, http.StatusBadRequest, "invalid id") }

// reqCtx bounds database work to five seconds.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
