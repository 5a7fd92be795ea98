package repository

import (
	"context"
	"time"

	"github.com/iliyamo/restaurant-management/internal/model"
)

// AvailabilityStore feeds the availability resolver from the table and
// reservation repositories.
type AvailabilityStore struct {
	Tables       *TableRepo
	Reservations *ReservationRepo
}

func (s AvailabilityStore) TablesWithCapacity(ctx context.Context, min int) ([]model.Table, error) {
	return s.Tables.TablesWithCapacity(ctx, min)
}

func (s AvailabilityStore) ReservationsOn(ctx context.Context, date time.Time) ([]model.Reservation, error) {
	return s.Reservations.ReservationsOn(ctx, date)
}
