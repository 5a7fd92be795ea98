// Package availability answers which tables can seat a party during an hour
// range on a given day.
//
// Reservations occupy the half-open range [StartTime, EndTime): a booking
// that ends at 12 does not block one that starts at 12.  Cancelled
// reservations do not occupy anything.
package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-management/internal/model"
)

const dateLayout = "2006-01-02"

// Request is the JSON body of POST /available-tables.  Pointers distinguish
// a missing field from a zero value.
type Request struct {
	Date      string `json:"date"`
	StartTime *int   `json:"startTime"`
	EndTime   *int   `json:"endTime"`
	Capacity  *int   `json:"capacity"`
}

// Query is a validated availability request.
type Query struct {
	Date      time.Time
	StartTime int
	EndTime   int
	Capacity  int
}

// ValidationError marks input the caller must fix.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Overlaps reports whether [s1,e1) and [s2,e2) share at least one hour.
func Overlaps(s1, e1, s2, e2 int) bool {
	return !(e1 <= s2 || s1 >= e2)
}

// Blocks reports whether r prevents booking its table for [start,end).
func Blocks(r model.Reservation, start, end int) bool {
	if r.Status == model.ReservationCancelled {
		return false
	}
	return Overlaps(r.StartTime, r.EndTime, start, end)
}

// Filter returns the tables from tables that seat at least q.Capacity and
// are not blocked by any reservation in reservations.  reservations must
// all be on q.Date.  The result is never nil and keeps the input order.
func Filter(tables []model.Table, reservations []model.Reservation, q Query) []model.Table {
	busy := make(map[uint64]bool)
	for _, r := range reservations {
		if Blocks(r, q.StartTime, q.EndTime) {
			busy[r.TableID] = true
		}
	}
	out := make([]model.Table, 0, len(tables))
	for _, t := range tables {
		if t.Capacity < q.Capacity || busy[t.TableID] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar day at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, invalid("invalid date %q, expected YYYY-MM-DD", s)
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

// FormatDate renders a calendar day as YYYY-MM-DD.
func FormatDate(d time.Time) string { return d.Format(dateLayout) }

// Store loads the rows the resolver filters.
type Store interface {
	// TablesWithCapacity returns every table seating at least min people.
	TablesWithCapacity(ctx context.Context, min int) ([]model.Table, error)
	// ReservationsOn returns the non-cancelled reservations on date.
	ReservationsOn(ctx context.Context, date time.Time) ([]model.Reservation, error)
}

// Resolver validates availability requests and resolves them against a
// Store.
type Resolver struct {
	store       Store
	now         func() time.Time
	openingHour int
	closingHour int
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithClock replaces time.Now, used to decide what "today" is.
func WithClock(now func() time.Time) Option { return func(r *Resolver) { r.now = now } }

// WithHours restricts bookable hours to [opening, closing].
func WithHours(opening, closing int) Option {
	return func(r *Resolver) { r.openingHour, r.closingHour = opening, closing }
}

func NewResolver(store Store, opts ...Option) *Resolver {
	r := &Resolver{store: store, now: time.Now, openingHour: 0, closingHour: 24}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Today returns the current local calendar day at midnight UTC, comparable
// with dates produced by ParseDate.
func (r *Resolver) Today() time.Time {
	n := r.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// CheckSlot validates a date and hour range for booking: the date must be
// today or later and the range non-empty within opening hours.
func (r *Resolver) CheckSlot(date time.Time, start, end int) error {
	if date.Before(r.Today()) {
		return invalid("reservation date must be today or in the future")
	}
	if start < r.openingHour || end > r.closingHour {
		return invalid("hours must be between %d and %d", r.openingHour, r.closingHour)
	}
	if start >= end {
		return invalid("startTime must be before endTime")
	}
	return nil
}

// Parse validates req and converts it into a Query.
func (r *Resolver) Parse(req Request) (Query, error) {
	if strings.TrimSpace(req.Date) == "" || req.StartTime == nil || req.EndTime == nil || req.Capacity == nil || *req.Capacity == 0 {
		return Query{}, invalid("missing required fields (date, startTime, endTime, capacity)")
	}
	if *req.Capacity < 1 {
		return Query{}, invalid("capacity must be at least 1")
	}
	date, err := ParseDate(req.Date)
	if err != nil {
		return Query{}, err
	}
	if err := r.CheckSlot(date, *req.StartTime, *req.EndTime); err != nil {
		return Query{}, err
	}
	return Query{Date: date, StartTime: *req.StartTime, EndTime: *req.EndTime, Capacity: *req.Capacity}, nil
}

// Resolve returns the free tables for q.
func (r *Resolver) Resolve(ctx context.Context, q Query) ([]model.Table, error) {
	tables, err := r.store.TablesWithCapacity(ctx, q.Capacity)
	if err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}
	if len(tables) == 0 {
		return []model.Table{}, nil
	}
	reservations, err := r.store.ReservationsOn(ctx, q.Date)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	return Filter(tables, reservations, q), nil
}
