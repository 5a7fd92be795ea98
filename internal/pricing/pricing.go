// Package pricing turns an order line into a persisted OrderDetail, applying
// the member discount per unit.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/restaurant-management/internal/model"
)

// DefaultMemberRate is the fraction of the unit price members save.
var DefaultMemberRate = decimal.RequireFromString("0.20")

// Quote is the per-unit price breakdown for one menu item.
type Quote struct {
	BasePrice       decimal.Decimal `json:"basePrice"`
	DiscountApplied decimal.Decimal `json:"discountApplied"`
	FinalPrice      decimal.Decimal `json:"finalPrice"`
	IsMember        bool            `json:"isMember"`
}

// LineTotal is the final unit price times quantity.
func (q Quote) LineTotal(quantity int) decimal.Decimal {
	return model.Money(q.FinalPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Calculator applies a flat member discount rate.
type Calculator struct {
	Rate decimal.Decimal
}

func NewCalculator(rate decimal.Decimal) Calculator { return Calculator{Rate: rate} }

// Quote prices one unit of an item costing base.  The discount is rounded to
// cents and the final price is base minus the discount, so the two always
// add back up to base.
func (c Calculator) Quote(base decimal.Decimal, isMember bool) Quote {
	base = model.Money(base)
	discount := decimal.Zero
	if isMember {
		discount = model.Money(base.Mul(c.Rate))
	}
	return Quote{
		BasePrice:       base,
		DiscountApplied: discount,
		FinalPrice:      base.Sub(discount),
		IsMember:        isMember,
	}
}

// LineRequest is the JSON body of POST /order-details.
type LineRequest struct {
	OrderID  *uint64 `json:"OrderID"`
	ItemID   *uint64 `json:"ItemID"`
	Quantity *int    `json:"Quantity"`
}

// Line is a validated order line.
type Line struct {
	OrderID  uint64
	ItemID   uint64
	Quantity int
}

// ErrInvalidLine is returned for missing or non-positive line fields.
var ErrInvalidLine = errors.New("OrderID, ItemID and a positive Quantity are required")

// Validate converts r into a Line.
func (r LineRequest) Validate() (Line, error) {
	if r.OrderID == nil || r.ItemID == nil || r.Quantity == nil {
		return Line{}, ErrInvalidLine
	}
	if *r.OrderID == 0 || *r.ItemID == 0 || *r.Quantity < 1 {
		return Line{}, ErrInvalidLine
	}
	return Line{OrderID: *r.OrderID, ItemID: *r.ItemID, Quantity: *r.Quantity}, nil
}

// Store is what the pricing service needs from persistence.  Implementations
// bound to a transaction let checkout price several lines atomically.
type Store interface {
	// OrderOwnerIsMember reports the membership flag of the user who owns
	// the order.
	OrderOwnerIsMember(ctx context.Context, orderID uint64) (bool, error)
	// ItemPrice returns the current menu price of an item.
	ItemPrice(ctx context.Context, itemID uint64) (decimal.Decimal, error)
	// InsertOrderDetail stores d and sets its OrderDetailID.
	InsertOrderDetail(ctx context.Context, d *model.OrderDetail) error
}

// Priced is an inserted order line together with its price breakdown.
type Priced struct {
	Detail model.OrderDetail
	Quote  Quote
}

// Service prices and persists order lines.
type Service struct {
	calc Calculator
}

func NewService(calc Calculator) *Service { return &Service{calc: calc} }

// Calculator returns the discount rule the service applies.
func (s *Service) Calculator() Calculator { return s.calc }

// AddLine looks up the order owner's membership and the item price in store,
// then inserts the line at the discounted unit price.
func (s *Service) AddLine(ctx context.Context, store Store, line Line) (Priced, error) {
	member, err := store.OrderOwnerIsMember(ctx, line.OrderID)
	if err != nil {
		return Priced{}, fmt.Errorf("order %d: %w", line.OrderID, err)
	}
	base, err := store.ItemPrice(ctx, line.ItemID)
	if err != nil {
		return Priced{}, fmt.Errorf("menu item %d: %w", line.ItemID, err)
	}
	q := s.calc.Quote(base, member)
	d := model.OrderDetail{
		OrderID:  line.OrderID,
		ItemID:   line.ItemID,
		Quantity: line.Quantity,
		Price:    q.FinalPrice,
	}
	if err := store.InsertOrderDetail(ctx, &d); err != nil {
		return Priced{}, fmt.Errorf("insert order detail: %w", err)
	}
	return Priced{Detail: d, Quote: q}, nil
}
