package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/restaurant-management/internal/authz"
	"github.com/iliyamo/restaurant-management/internal/middleware"
	"github.com/iliyamo/restaurant-management/internal/model"
	"github.com/iliyamo/restaurant-management/internal/queue"
	"github.com/iliyamo/restaurant-management/internal/repository"
	"github.com/iliyamo/restaurant-management/internal/service"
)

type PaymentHandler struct {
	Payments      *repository.PaymentRepo
	Orders        *repository.OrderRepo
	Users         *repository.UserRepo
	Notifier      *service.Notifier
	DefaultMethod string
}

func NewPaymentHandler(p *repository.PaymentRepo, o *repository.OrderRepo, u *repository.UserRepo, n *service.Notifier, defaultMethod string) *PaymentHandler {
	return &PaymentHandler{Payments: p, Orders: o, Users: u, Notifier: n, DefaultMethod: defaultMethod}
}

// List returns every payment (admin).
func (h *PaymentHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Payments.List(ctx)
	if err != nil {
		return serverError(c, "Error fetching payments", err)
	}
	return ok(c, http.StatusOK, out)
}

type paymentReq struct {
	OrderID       uint64          `json:"OrderID"`
	UserID        *uint64         `json:"UserID"`
	Amount        decimal.Decimal `json:"Amount"`
	PaymentMethod string          `json:"PaymentMethod"`
	Status        string          `json:"Status"`
}

// Create records a payment with any method and status (admin).
func (h *PaymentHandler) Create(c echo.Context) error {
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.OrderID == 0 || !req.Amount.IsPositive() {
		return fail(c, http.StatusBadRequest, "OrderID and a positive Amount are required")
	}
	switch req.Status {
	case "", model.PaymentPending, model.PaymentCompleted:
	default:
		return fail(c, http.StatusBadRequest, "invalid Status")
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = h.DefaultMethod
	}
	p := model.Payment{OrderID: req.OrderID, UserID: req.UserID, Amount: req.Amount, PaymentMethod: req.PaymentMethod, Status: req.Status}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Payments.Create(ctx, &p); err != nil {
		return storeError(c, err, "Error creating payment")
	}
	return okMessage(c, http.StatusCreated, "Payment created successfully", p)
}

// Pay opens a Pending payment for an order on behalf of its customer.
func (h *PaymentHandler) Pay(c echo.Context) error {
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	actor := middleware.Actor(c)
	if req.UserID == nil {
		req.UserID = &actor.UserID
	}
	if req.OrderID == 0 || *req.UserID == 0 || req.Amount.IsZero() {
		return fail(c, http.StatusBadRequest, "OrderID, UserID, and Amount are required")
	}
	if !req.Amount.IsPositive() {
		return fail(c, http.StatusBadRequest, "Amount must be greater than 0")
	}
	if err := authz.Check(actor, authz.Owned("payment", *req.UserID)); err != nil {
		return storeError(c, err, "")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Orders.GetByID(ctx, req.OrderID); err != nil {
		return storeError(c, err, "Error fetching order")
	}
	if _, err := h.Users.GetByID(ctx, *req.UserID); err != nil {
		return storeError(c, err, "Error fetching user")
	}
	p := model.Payment{OrderID: req.OrderID, UserID: req.UserID, Amount: req.Amount, PaymentMethod: h.DefaultMethod, Status: model.PaymentPending}
	if err := h.Payments.Create(ctx, &p); err != nil {
		return storeError(c, err, "Error creating payment")
	}
	return okMessage(c, http.StatusCreated, "Payment created successfully", p)
}

// owner resolves who a payment belongs to: its own user or else the
// order's.
func (h *PaymentHandler) owner(c echo.Context, p model.Payment) (uint64, error) {
	if p.UserID != nil {
		return *p.UserID, nil
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Orders.GetByID(ctx, p.OrderID)
	if err != nil {
		return 0, err
	}
	return o.UserID, nil
}

// Complete settles a Pending payment.
func (h *PaymentHandler) Complete(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Payments.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err, "Error fetching payment")
	}
	uid, err := h.owner(c, p)
	if err != nil {
		return storeError(c, err, "Error fetching order")
	}
	if err := authz.Check(middleware.Actor(c), authz.Owned("payment", uid)); err != nil {
		return storeError(c, err, "")
	}
	p, err = h.Payments.Complete(ctx, id)
	if err != nil {
		return storeError(c, err, "Error completing payment")
	}
	ev := queue.NewEvent(queue.PaymentCompleted)
	ev.PaymentID, ev.OrderID, ev.UserID = p.PaymentID, p.OrderID, uid
	amount := p.Amount
	ev.Amount = &amount
	h.Notifier.Notify(ctx, ev)
	return okMessage(c, http.StatusOK, "Payment successfully completed", p)
}

// ByCustomer returns a customer's payment history, optionally filtered by
// ?status=Pending|Completed.
func (h *PaymentHandler) ByCustomer(c echo.Context) error {
	uid, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	if err := authz.Check(middleware.Actor(c), authz.Owned("payment", uid)); err != nil {
		return storeError(c, err, "")
	}
	status := c.QueryParam("status")
	switch status {
	case "", model.PaymentPending, model.PaymentCompleted:
	default:
		return fail(c, http.StatusBadRequest, "status must be Pending or Completed")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Payments.ByCustomer(ctx, uid, status)
	if err != nil {
		return serverError(c, "Error fetching payments", err)
	}
	return ok(c, http.StatusOK, out)
}

// Delete removes a payment (admin).
func (h *PaymentHandler) Delete(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Payments.Delete(ctx, id); err != nil {
		return storeError(c, err, "Error deleting payment")
	}
	return okMessage(c, http.StatusOK, "Payment deleted", nil)
}
