package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderPending   = "Pending"
	OrderCompleted = "Completed"
	OrderCancelled = "Cancelled"
)

// Order groups order lines for one user, optionally tied to a reservation.
// Orders without a reservation are walk-ins.
type Order struct {
	OrderID       uint64    `json:"OrderID"`
	UserID        uint64    `json:"UserID"`
	ReservationID *uint64   `json:"ReservationID"`
	Status        string    `json:"Status"`
	CreatedAt     time.Time `json:"CreatedAt"`
	UserName      *string   `json:"UserName,omitempty"`
}

// OrderDetail is one line of an order.  Price is the final per-unit price
// captured when the line was created, after any member discount; it does
// not follow later menu price changes.
type OrderDetail struct {
	OrderDetailID uint64          `json:"OrderDetailID"`
	OrderID       uint64          `json:"OrderID"`
	ItemID        uint64          `json:"ItemID"`
	Quantity      int             `json:"Quantity"`
	Price         decimal.Decimal `json:"Price"`
	ItemName      string          `json:"ItemName,omitempty"`
}
