// Package queue defines the activity events exchanged over RabbitMQ and the
// consumer that appends them to the activity log.
package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types.
const (
	ReservationCreated       = "reservation.created"
	ReservationStatusChanged = "reservation.status_changed"
	OrderPlaced              = "order.placed"
	PaymentCompleted         = "payment.completed"
)

// Event is published after a write commits.  It carries enough of the row
// for the activity log to be readable without querying the database.
// Fields that do not apply to a type are left zero and omitted.
type Event struct {
	ID            string           `json:"id"`
	Type          string           `json:"type"`
	OccurredAt    time.Time        `json:"occurred_at"`
	UserID        uint64           `json:"user_id,omitempty"`
	ReservationID uint64           `json:"reservation_id,omitempty"`
	TableID       uint64           `json:"table_id,omitempty"`
	Date          string           `json:"date,omitempty"`
	StartTime     int              `json:"start_time,omitempty"`
	EndTime       int              `json:"end_time,omitempty"`
	People        int              `json:"people,omitempty"`
	Status        string           `json:"status,omitempty"`
	OrderID       uint64           `json:"order_id,omitempty"`
	PaymentID     uint64           `json:"payment_id,omitempty"`
	Lines         int              `json:"lines,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
}

// NewEvent stamps a fresh ID and the current UTC time.
func NewEvent(typ string) Event {
	return Event{ID: uuid.NewString(), Type: typ, OccurredAt: time.Now().UTC()}
}

// Line renders ev as one human-friendly log line ending in a newline.
func (ev Event) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | id=%s", ev.OccurredAt.Format(time.RFC3339), ev.Type, ev.ID)
	field := func(name string, v uint64) {
		if v != 0 {
			fmt.Fprintf(&b, " | %s=%d", name, v)
		}
	}
	field("user_id", ev.UserID)
	field("reservation_id", ev.ReservationID)
	field("table_id", ev.TableID)
	if ev.Date != "" {
		fmt.Fprintf(&b, " | date=%s | hours=%d-%d | people=%d", ev.Date, ev.StartTime, ev.EndTime, ev.People)
	}
	if ev.Status != "" {
		fmt.Fprintf(&b, " | status=%s", ev.Status)
	}
	field("order_id", ev.OrderID)
	field("payment_id", ev.PaymentID)
	if ev.Lines > 0 {
		fmt.Fprintf(&b, " | lines=%d", ev.Lines)
	}
	if ev.Amount != nil {
		fmt.Fprintf(&b, " | amount=%s", ev.Amount.StringFixed(2))
	}
	b.WriteByte('\n')
	return b.String()
}
