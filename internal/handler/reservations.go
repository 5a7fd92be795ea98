package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-management/internal/authz"
	"github.com/iliyamo/restaurant-management/internal/availability"
	"github.com/iliyamo/restaurant-management/internal/metrics"
	"github.com/iliyamo/restaurant-management/internal/middleware"
	"github.com/iliyamo/restaurant-management/internal/model"
	"github.com/iliyamo/restaurant-management/internal/queue"
	"github.com/iliyamo/restaurant-management/internal/repository"
	"github.com/iliyamo/restaurant-management/internal/service"
)

// ReservationHandler serves availability and the reservation lifecycle.
type ReservationHandler struct {
	Resolver     *availability.Resolver
	Bookings     *service.ReservationService
	Reservations *repository.ReservationRepo
	Metrics      *metrics.Metrics
}

func NewReservationHandler(resolver *availability.Resolver, bookings *service.ReservationService, repo *repository.ReservationRepo, m *metrics.Metrics) *ReservationHandler {
	return &ReservationHandler{Resolver: resolver, Bookings: bookings, Reservations: repo, Metrics: m}
}

// availableTable is one row of POST /available-tables.
type availableTable struct {
	TableID  uint64 `json:"TableID"`
	Location string `json:"Location"`
	Capacity int    `json:"Capacity"`
	Type     string `json:"Type"`
}

// Available lists the tables free for the whole requested interval.
func (h *ReservationHandler) Available(c echo.Context) error {
	var req availability.Request
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	q, err := h.Resolver.Parse(req)
	if err != nil {
		return storeError(c, err, "")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	tables, err := h.Resolver.Resolve(ctx, q)
	if err != nil {
		return serverError(c, "Database error", err)
	}
	h.Metrics.ObserveAvailability(len(tables))
	out := make([]availableTable, 0, len(tables))
	for _, t := range tables {
		out = append(out, availableTable{TableID: t.TableID, Location: t.Location, Capacity: t.Capacity, Type: t.Type})
	}
	return ok(c, http.StatusOK, out)
}

// Create books a table.  Customers book for themselves; admins may pass
// any UserID.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req service.BookingRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	actor := middleware.Actor(c)
	b, err := h.Bookings.Parse(req, actor.UserID)
	if err != nil {
		return storeError(c, err, "")
	}
	if err := authz.Check(actor, authz.Owned("reservation", b.UserID)); err != nil {
		return storeError(c, err, "")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Bookings.Book(ctx, b)
	if err != nil {
		return storeError(c, err, "Error creating reservation")
	}
	return okMessage(c, http.StatusCreated, "Reservation created successfully", view(res))
}

func view(r model.Reservation) model.ReservationView {
	return model.ReservationView{Reservation: r, DateText: availability.FormatDate(r.Date)}
}

func parseOptDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := availability.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns every reservation, filtered by the date, userID, tableID and
// status query parameters (admin).
func (h *ReservationHandler) List(c echo.Context) error {
	var f repository.ReservationFilter
	var err error
	if f.Date, err = parseOptDate(c.QueryParam("date")); err != nil {
		return storeError(c, err, "")
	}
	if v := c.QueryParam("userID"); v != "" {
		if f.UserID, err = strconv.ParseUint(v, 10, 64); err != nil {
			return fail(c, http.StatusBadRequest, "invalid userID")
		}
	}
	if v := c.QueryParam("tableID"); v != "" {
		if f.TableID, err = strconv.ParseUint(v, 10, 64); err != nil {
			return fail(c, http.StatusBadRequest, "invalid tableID")
		}
	}
	if f.Status = c.QueryParam("status"); f.Status != "" && !model.ValidReservationStatus(f.Status) {
		return fail(c, http.StatusBadRequest, "invalid status")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Reservations.List(ctx, f)
	if err != nil {
		return serverError(c, "Error fetching reservations", err)
	}
	return ok(c, http.StatusOK, out)
}

// ByUser returns a user's reservations, optionally narrowed by status,
// fromDate and toDate.
func (h *ReservationHandler) ByUser(c echo.Context) error {
	uid, valid := idParam(c, "userId")
	if !valid {
		return badID(c)
	}
	if err := authz.Check(middleware.Actor(c), authz.Owned("reservation", uid)); err != nil {
		return storeError(c, err, "")
	}
	f := repository.ReservationFilter{UserID: uid, Status: c.QueryParam("status")}
	if f.Status != "" && !model.ValidReservationStatus(f.Status) {
		return fail(c, http.StatusBadRequest, "invalid status")
	}
	var err error
	if f.FromDate, err = parseOptDate(c.QueryParam("fromDate")); err != nil {
		return storeError(c, err, "")
	}
	if f.ToDate, err = parseOptDate(c.QueryParam("toDate")); err != nil {
		return storeError(c, err, "")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Reservations.List(ctx, f)
	if err != nil {
		return serverError(c, "Error fetching reservations", err)
	}
	return ok(c, http.StatusOK, out)
}

// Get returns one reservation to its owner or an admin.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err, "Error fetching reservation")
	}
	if err := authz.Check(middleware.Actor(c), authz.Owned("reservation", r.UserID)); err != nil {
		return storeError(c, err, "")
	}
	return ok(c, http.StatusOK, r)
}

type statusReq struct {
	Status string `json:"status"`
}

// UpdateStatus moves a reservation to any of the four statuses (admin).
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if !model.ValidReservationStatus(req.Status) {
		return fail(c, http.StatusBadRequest, "Invalid status value")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Reservations.UpdateStatus(ctx, id, req.Status); err != nil {
		return storeError(c, err, "Error updating reservation")
	}
	ev := queue.NewEvent(queue.ReservationStatusChanged)
	ev.ReservationID, ev.Status = id, req.Status
	h.Bookings.Notify(ctx, ev)
	return okMessage(c, http.StatusOK, fmt.Sprintf("Status for reservation ID %d updated to %q.", id, req.Status), nil)
}

// Delete removes a reservation; owners may delete their own.
func (h *ReservationHandler) Delete(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err, "Error fetching reservation")
	}
	if err := authz.Check(middleware.Actor(c), authz.Owned("reservation", r.UserID)); err != nil {
		return storeError(c, err, "")
	}
	if err := h.Reservations.Delete(ctx, id); err != nil {
		return storeError(c, err, "Error deleting reservation")
	}
	return okMessage(c, http.StatusOK, "Reservation deleted", nil)
}
