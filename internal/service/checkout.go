package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/restaurant-management/internal/database"
	"github.com/iliyamo/restaurant-management/internal/metrics"
	"github.com/iliyamo/restaurant-management/internal/model"
	"github.com/iliyamo/restaurant-management/internal/pricing"
	"github.com/iliyamo/restaurant-management/internal/queue"
	"github.com/iliyamo/restaurant-management/internal/repository"
)

// CheckoutItem is one requested line of a checkout.
type CheckoutItem struct {
	ItemID   *uint64 `json:"ItemID"`
	Quantity *int    `json:"Quantity"`
}

// CheckoutRequest is the body of POST /orders/checkout.
type CheckoutRequest struct {
	UserID        *uint64        `json:"UserID"`
	ReservationID *uint64        `json:"ReservationID"`
	Items         []CheckoutItem `json:"Items"`
	PaymentMethod string         `json:"PaymentMethod"`
}

// ErrEmptyCheckout is returned when a checkout has no items.
var ErrEmptyCheckout = errors.New("at least one item is required")

// Receipt is the result of a checkout.
type Receipt struct {
	Order   model.Order      `json:"order"`
	Lines   []pricing.Priced `json:"lines"`
	Total   decimal.Decimal  `json:"total"`
	Payment model.Payment    `json:"payment"`
}

// CheckoutService creates an order, its priced lines and a pending payment
// in one transaction.
type CheckoutService struct {
	db            *sql.DB
	orders        *repository.OrderRepo
	payments      *repository.PaymentRepo
	pricing       *pricing.Service
	defaultMethod string
	notifier      *Notifier
	metrics       *metrics.Metrics
}

func NewCheckoutService(db *sql.DB, orders *repository.OrderRepo, payments *repository.PaymentRepo, p *pricing.Service, defaultMethod string, n *Notifier, m *metrics.Metrics) *CheckoutService {
	return &CheckoutService{db: db, orders: orders, payments: payments, pricing: p, defaultMethod: defaultMethod, notifier: n, metrics: m}
}

// Checkout places the order for userID.  Nothing is written unless every
// line prices and inserts.
func (s *CheckoutService) Checkout(ctx context.Context, userID uint64, req CheckoutRequest) (Receipt, error) {
	if len(req.Items) == 0 {
		return Receipt{}, ErrEmptyCheckout
	}
	order := model.Order{UserID: userID, ReservationID: req.ReservationID, Status: model.OrderPending}
	lines := make([]pricing.Line, 0, len(req.Items))
	for _, it := range req.Items {
		// OrderID is filled in once the order row exists
		one := uint64(1)
		l, err := pricing.LineRequest{OrderID: &one, ItemID: it.ItemID, Quantity: it.Quantity}.Validate()
		if err != nil {
			return Receipt{}, err
		}
		lines = append(lines, l)
	}
	method := req.PaymentMethod
	if method == "" {
		method = s.defaultMethod
	}

	var rec Receipt
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.orders.CreateTx(ctx, tx, &order); err != nil {
			return err
		}
		store := repository.PricingStore{Q: tx}
		priced := make([]pricing.Priced, 0, len(lines))
		for _, l := range lines {
			l.OrderID = order.OrderID
			p, err := s.pricing.AddLine(ctx, store, l)
			if err != nil {
				return err
			}
			priced = append(priced, p)
		}
		total, err := s.orders.OrderTotal(ctx, tx, order.OrderID)
		if err != nil {
			return err
		}
		uid := userID
		pay := model.Payment{OrderID: order.OrderID, UserID: &uid, Amount: total, PaymentMethod: method, Status: model.PaymentPending}
		if err := s.payments.CreateTx(ctx, tx, &pay); err != nil {
			return err
		}
		rec = Receipt{Order: order, Lines: priced, Total: total, Payment: pay}
		return nil
	})
	if err != nil {
		s.metrics.ObserveCheckout("failed")
		return Receipt{}, err
	}
	s.metrics.ObserveCheckout("ok")
	for _, p := range rec.Lines {
		s.metrics.ObserveOrderLine(p.Quote.IsMember)
	}

	ev := queue.NewEvent(queue.OrderPlaced)
	ev.UserID, ev.OrderID, ev.PaymentID, ev.Lines = userID, rec.Order.OrderID, rec.Payment.PaymentID, len(rec.Lines)
	if rec.Order.ReservationID != nil {
		ev.ReservationID = *rec.Order.ReservationID
	}
	total := rec.Total
	ev.Amount = &total
	s.notifier.Notify(ctx, ev)
	return rec, nil
}
