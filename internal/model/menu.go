package model

import "github.com/shopspring/decimal"

// MenuItem is a dish or drink.  Price is the base, non-discounted price.
type MenuItem struct {
	ItemID   uint64          `json:"ItemID"`
	ItemName string          `json:"ItemName"`
	Category string          `json:"Category"`
	Price    decimal.Decimal `json:"Price"`
}
