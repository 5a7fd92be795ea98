package repository

import (
	"context"
	"database/sql"
	"sort"

	"github.com/shopspring/decimal"
)

// ReportRepo runs the admin aggregate queries.
type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

// RevenueRow is completed-order revenue for one day and order type.
type RevenueRow struct {
	Date      string          `json:"Date"`
	Revenue   decimal.Decimal `json:"Revenue"`
	Orders    int             `json:"Orders"`
	OrderType string          `json:"OrderType"`
}

// Order types reported by RevenueByDay.
const (
	OrderTypeWalkIn      = "Walk-in"
	OrderTypeReservation = "Reservation"
)

// RevenueByDay sums the lines of completed orders per day.  Orders placed
// against a reservation are dated by the reservation, walk-ins by their
// creation time.
func (r *ReportRepo) RevenueByDay(ctx context.Context) ([]RevenueRow, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT
    DATE_FORMAT(COALESCE(res.date, DATE(o.created_at)), '%Y-%m-%d') AS day,
    SUM(d.quantity * d.price) AS revenue,
    COUNT(DISTINCT o.id) AS orders,
    CASE WHEN o.reservation_id IS NULL THEN 'Walk-in' ELSE 'Reservation' END AS order_type
FROM order_details d
JOIN orders o ON o.id = d.order_id
LEFT JOIN reservations res ON res.id = o.reservation_id
WHERE o.status = 'Completed'
GROUP BY day, order_type
ORDER BY day DESC, order_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RevenueRow{}
	for rows.Next() {
		var row RevenueRow
		if err := rows.Scan(&row.Date, &row.Revenue, &row.Orders, &row.OrderType); err != nil {
			return nil, err
		}
		row.Revenue = row.Revenue.Round(2)
		out = append(out, row)
	}
	return out, rows.Err()
}

// PopularItem counts how often an item appears on orders.
type PopularItem struct {
	Item          string `json:"Item"`
	Orders        int    `json:"Orders"`
	TotalQuantity int    `json:"TotalQuantity"`
}

// PopularItems ranks menu items by number of order lines.
func (r *ReportRepo) PopularItems(ctx context.Context) ([]PopularItem, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT COALESCE(m.item_name, 'Deleted item') AS item,
    COUNT(d.id) AS orders, COALESCE(SUM(d.quantity), 0) AS total_quantity
FROM order_details d
LEFT JOIN menu_items m ON m.id = d.item_id
GROUP BY item
ORDER BY orders DESC, total_quantity DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []PopularItem{}
	for rows.Next() {
		var p PopularItem
		if err := rows.Scan(&p.Item, &p.Orders, &p.TotalQuantity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SlotCount is the number of reservations starting within a time slot.
type SlotCount struct {
	TimeSlot     string `json:"TimeSlot"`
	Reservations int    `json:"Reservations"`
}

// BusiestTimes counts reservations by starting hour and folds the hours
// into slots using slotFor.  Hours outside every slot are dropped.
func (r *ReportRepo) BusiestTimes(ctx context.Context, slotFor func(hour int) string) ([]SlotCount, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT start_time, COUNT(*) FROM reservations GROUP BY start_time")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var hour, n int
		if err := rows.Scan(&hour, &n); err != nil {
			return nil, err
		}
		if label := slotFor(hour); label != "" {
			counts[label] += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]SlotCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, SlotCount{TimeSlot: label, Reservations: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Reservations != out[j].Reservations {
			return out[i].Reservations > out[j].Reservations
		}
		return out[i].TimeSlot < out[j].TimeSlot
	})
	return out, nil
}
