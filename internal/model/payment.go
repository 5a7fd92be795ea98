package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentPending   = "Pending"
	PaymentCompleted = "Completed"
)

// Payment records money owed or paid for an order.
type Payment struct {
	PaymentID     uint64          `json:"PaymentID"`
	OrderID       uint64          `json:"OrderID"`
	UserID        *uint64         `json:"UserID"`
	Amount        decimal.Decimal `json:"Amount"`
	PaymentMethod string          `json:"PaymentMethod"`
	Status        string          `json:"Status"`
	PaymentDate   *time.Time      `json:"PaymentDate"`
}

// PaymentView is a payment joined with its order and customer, as shown in
// a customer's payment history.
type PaymentView struct {
	PaymentID     uint64          `json:"PaymentID"`
	OrderID       uint64          `json:"OrderID"`
	OrderStatus   *string         `json:"OrderStatus"`
	Amount        decimal.Decimal `json:"Amount"`
	PaymentMethod string          `json:"PaymentMethod"`
	PaymentStatus string          `json:"PaymentStatus"`
	CustomerID    *uint64         `json:"CustomerID"`
	CustomerName  *string         `json:"CustomerName"`
	CustomerEmail *string         `json:"CustomerEmail"`
	PaymentDate   *string         `json:"PaymentDate"`
}
