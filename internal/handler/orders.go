package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/restaurant-management/internal/authz"
	"github.com/iliyamo/restaurant-management/internal/metrics"
	"github.com/iliyamo/restaurant-management/internal/middleware"
	"github.com/iliyamo/restaurant-management/internal/model"
	"github.com/iliyamo/restaurant-management/internal/pricing"
	"github.com/iliyamo/restaurant-management/internal/repository"
	"github.com/iliyamo/restaurant-management/internal/service"
)

// OrderHandler serves orders, order lines and checkout.
type OrderHandler struct {
	Orders       *repository.OrderRepo
	Reservations *repository.ReservationRepo
	Pricing      *pricing.Service
	Checkout     *service.CheckoutService
	Metrics      *metrics.Metrics
}

func NewOrderHandler(orders *repository.OrderRepo, reservations *repository.ReservationRepo, p *pricing.Service, checkout *service.CheckoutService, m *metrics.Metrics) *OrderHandler {
	return &OrderHandler{Orders: orders, Reservations: reservations, Pricing: p, Checkout: checkout, Metrics: m}
}

// checkReservation loads the reservation an order is attached to and makes
// sure the caller may use it.  A nil id means a walk-in order.
func (h *OrderHandler) checkReservation(ctx context.Context, actor authz.Actor, id *uint64) error {
	if id == nil {
		return nil
	}
	r, err := h.Reservations.GetByID(ctx, *id)
	if err != nil {
		return err
	}
	return authz.Check(actor, authz.Owned("reservation", r.UserID))
}

// List returns every order (admin).
func (h *OrderHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Orders.List(ctx)
	if err != nil {
		return serverError(c, "Error fetching orders", err)
	}
	return ok(c, http.StatusOK, out)
}

type createOrderReq struct {
	UserID        *uint64 `json:"UserID"`
	ReservationID *uint64 `json:"ReservationID"`
	Status        string  `json:"Status"`
}

// Create opens an empty order.  Customers open orders for themselves.
func (h *OrderHandler) Create(c echo.Context) error {
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	actor := middleware.Actor(c)
	if req.UserID == nil {
		req.UserID = &actor.UserID
	}
	if *req.UserID == 0 {
		return fail(c, http.StatusBadRequest, "UserID is required")
	}
	if err := authz.Check(actor, authz.Owned("order", *req.UserID)); err != nil {
		return storeError(c, err, "")
	}
	status := req.Status
	switch status {
	case "":
		status = model.OrderPending
	case model.OrderPending, model.OrderCompleted, model.OrderCancelled:
		if status != model.OrderPending {
			if err := authz.Check(actor, authz.AdminOnly("order status")); err != nil {
				return storeError(c, err, "")
			}
		}
	default:
		return fail(c, http.StatusBadRequest, "invalid Status")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.checkReservation(ctx, actor, req.ReservationID); err != nil {
		return storeError(c, err, "Error fetching reservation")
	}
	o := model.Order{UserID: *req.UserID, ReservationID: req.ReservationID, Status: status, CreatedAt: time.Now().UTC()}
	if err := h.Orders.Create(ctx, &o); err != nil {
		return storeError(c, err, "Error creating order")
	}
	return okMessage(c, http.StatusCreated, "Order created successfully", o)
}

// Delete removes an order with its lines and payments (admin).
func (h *OrderHandler) Delete(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Orders.Delete(ctx, id); err != nil {
		return storeError(c, err, "Error deleting order")
	}
	return okMessage(c, http.StatusOK, "Order deleted", nil)
}

// pricedDetail is the inserted order line flattened together with its
// price breakdown.
type pricedDetail struct {
	model.OrderDetail
	BasePrice       decimal.Decimal `json:"basePrice"`
	DiscountApplied decimal.Decimal `json:"discountApplied"`
	IsMember        bool            `json:"isMember"`
	FinalPrice      decimal.Decimal `json:"finalPrice"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
}

func flatten(p pricing.Priced) pricedDetail {
	return pricedDetail{
		OrderDetail:     p.Detail,
		BasePrice:       p.Quote.BasePrice,
		DiscountApplied: p.Quote.DiscountApplied,
		IsMember:        p.Quote.IsMember,
		FinalPrice:      p.Quote.FinalPrice,
		LineTotal:       p.Quote.LineTotal(p.Detail.Quantity),
	}
}

// AddDetail prices one line for an order, applying the member discount of
// the order's owner, and stores it.
func (h *OrderHandler) AddDetail(c echo.Context) error {
	var req pricing.LineRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	line, err := req.Validate()
	if err != nil {
		return fail(c, http.StatusBadRequest, "OrderID, ItemID, and Quantity are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Orders.GetByID(ctx, line.OrderID)
	if err != nil {
		return storeError(c, err, "Error fetching order")
	}
	if err := authz.Check(middleware.Actor(c), authz.Owned("order", o.UserID)); err != nil {
		return storeError(c, err, "")
	}
	p, err := h.Pricing.AddLine(ctx, repository.PricingStore{Q: h.Orders.DB}, line)
	if err != nil {
		return storeError(c, err, "Error creating order detail")
	}
	h.Metrics.ObserveOrderLine(p.Quote.IsMember)
	return okMessage(c, http.StatusCreated, "Order detail created successfully", flatten(p))
}

// ListDetails returns every order line (admin).
func (h *OrderHandler) ListDetails(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Orders.ListDetails(ctx)
	if err != nil {
		return serverError(c, "Error fetching order details", err)
	}
	return ok(c, http.StatusOK, out)
}

// DeleteDetail removes one order line (admin).
func (h *OrderHandler) DeleteDetail(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Orders.DeleteDetail(ctx, id); err != nil {
		return storeError(c, err, "Error deleting order detail")
	}
	return okMessage(c, http.StatusOK, "Order detail deleted", nil)
}

type receiptResp struct {
	Order   model.Order     `json:"order"`
	Lines   []pricedDetail  `json:"lines"`
	Total   decimal.Decimal `json:"total"`
	Payment model.Payment   `json:"payment"`
}

// PlaceOrder runs a checkout: order, priced lines and a pending payment,
// all or nothing.
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	var req service.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	actor := middleware.Actor(c)
	uid := actor.UserID
	if req.UserID != nil {
		uid = *req.UserID
	}
	if err := authz.Check(actor, authz.Owned("order", uid)); err != nil {
		return storeError(c, err, "")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.checkReservation(ctx, actor, req.ReservationID); err != nil {
		return storeError(c, err, "Error fetching reservation")
	}
	rec, err := h.Checkout.Checkout(ctx, uid, req)
	if err != nil {
		return storeError(c, err, "Error placing order")
	}
	lines := make([]pricedDetail, 0, len(rec.Lines))
	for _, p := range rec.Lines {
		lines = append(lines, flatten(p))
	}
	return okMessage(c, http.StatusCreated, "Order placed successfully", receiptResp{
		Order: rec.Order, Lines: lines, Total: rec.Total, Payment: rec.Payment,
	})
}
