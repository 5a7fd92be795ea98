package model

import "github.com/shopspring/decimal"

// Prices travel as JSON numbers (12.5, not "12.5") so existing clients that
// do arithmetic on them keep working.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Money rounds d to cents, the precision of every DECIMAL(10,2) column.
func Money(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
