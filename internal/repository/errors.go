// Package repository holds the MySQL data access layer.  The sentinel
// errors below let handlers map store failures to HTTP statuses with
// errors.Is instead of inspecting driver messages.
package repository

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTableNotFound       = errors.New("table not found")
	ErrTableTypeNotFound   = errors.New("table type not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrMenuItemNotFound    = errors.New("menu item not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderDetailNotFound = errors.New("order detail not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrStaffNotFound       = errors.New("staff member not found")
)

// ErrEmailExists is returned when an insert or update would duplicate a
// user's email address.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a write cannot proceed because of existing
// state, such as a reservation overlapping another on the same table.
// Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrInUse is returned when a delete is blocked by rows that still
// reference the target, for example a table with reservations.
var ErrInUse = errors.New("still referenced by other records")

// ErrInvalidToken covers unknown, revoked and expired refresh tokens.
var ErrInvalidToken = errors.New("invalid refresh token")
