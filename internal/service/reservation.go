package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/restaurant-management/internal/availability"
	"github.com/iliyamo/restaurant-management/internal/database"
	"github.com/iliyamo/restaurant-management/internal/metrics"
	"github.com/iliyamo/restaurant-management/internal/model"
	"github.com/iliyamo/restaurant-management/internal/queue"
	"github.com/iliyamo/restaurant-management/internal/repository"
)

// BookingRequest is the JSON body of POST /reservations.  Pointers tell a
// missing field apart from zero.
type BookingRequest struct {
	UserID    *uint64 `json:"UserID"`
	TableID   *uint64 `json:"TableID"`
	Date      string  `json:"Date"`
	StartTime *int    `json:"StartTime"`
	EndTime   *int    `json:"EndTime"`
	People    *int    `json:"People"`
}

// Booking is a validated BookingRequest.
type Booking struct {
	UserID    uint64
	TableID   uint64
	Date      time.Time
	StartTime int
	EndTime   int
	People    int
}

// ReservationStore is the part of the reservation repository the booking
// path uses.
type ReservationStore interface {
	DB() *sql.DB
	LockTableTx(ctx context.Context, tx *sql.Tx, tableID uint64) (model.Table, error)
	OverlappingTx(ctx context.Context, tx *sql.Tx, tableID uint64, date time.Time, start, end int) ([]model.Reservation, error)
	InsertTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error
}

// ReservationService books tables.
type ReservationService struct {
	store    ReservationStore
	resolver *availability.Resolver
	locker   *Locker
	notifier *Notifier
	metrics  *metrics.Metrics
}

func NewReservationService(store ReservationStore, resolver *availability.Resolver, locker *Locker, notifier *Notifier, m *metrics.Metrics) *ReservationService {
	return &ReservationService{store: store, resolver: resolver, locker: locker, notifier: notifier, metrics: m}
}

// Parse validates req.  defaultUser fills a missing UserID.
func (s *ReservationService) Parse(req BookingRequest, defaultUser uint64) (Booking, error) {
	if req.UserID == nil && defaultUser != 0 {
		req.UserID = &defaultUser
	}
	if req.UserID == nil || req.TableID == nil || req.Date == "" || req.StartTime == nil || req.EndTime == nil || req.People == nil {
		return Booking{}, &availability.ValidationError{Msg: "UserID, TableID, Date, StartTime, EndTime and People are required"}
	}
	if *req.People < 1 {
		return Booking{}, &availability.ValidationError{Msg: "People must be at least 1"}
	}
	date, err := availability.ParseDate(req.Date)
	if err != nil {
		return Booking{}, err
	}
	if err := s.resolver.CheckSlot(date, *req.StartTime, *req.EndTime); err != nil {
		return Booking{}, err
	}
	return Booking{
		UserID:    *req.UserID,
		TableID:   *req.TableID,
		Date:      date,
		StartTime: *req.StartTime,
		EndTime:   *req.EndTime,
		People:    *req.People,
	}, nil
}

// Book creates a Pending reservation.  Bookings of one table on one day are
// serialized by the Redis lock when available and always by row locks in
// the transaction, so two overlapping requests can never both succeed.
//
// Errors: repository.ErrTableNotFound, repository.ErrConflict for an
// overlap, ErrLockBusy, or *availability.ValidationError when the party is
// larger than the table.
func (s *ReservationService) Book(ctx context.Context, b Booking) (model.Reservation, error) {
	res, err := s.book(ctx, b)
	switch {
	case err == nil:
		s.metrics.ObserveReservation(metrics.OutcomeCreated)
	case errors.Is(err, repository.ErrConflict), errors.Is(err, ErrLockBusy):
		s.metrics.ObserveReservation(metrics.OutcomeConflict)
	case isValidation(err), errors.Is(err, repository.ErrTableNotFound):
		s.metrics.ObserveReservation(metrics.OutcomeRejected)
	default:
		s.metrics.ObserveReservation(metrics.OutcomeError)
	}
	if err != nil {
		return res, err
	}

	ev := queue.NewEvent(queue.ReservationCreated)
	ev.ReservationID, ev.UserID, ev.TableID = res.ReservationID, res.UserID, res.TableID
	ev.Date, ev.StartTime, ev.EndTime, ev.People = availability.FormatDate(res.Date), res.StartTime, res.EndTime, res.People
	ev.Status = res.Status
	s.notifier.Notify(ctx, ev)
	return res, nil
}

func (s *ReservationService) book(ctx context.Context, b Booking) (model.Reservation, error) {
	release, err := s.locker.Acquire(ctx, fmt.Sprintf("table:%d:%s", b.TableID, availability.FormatDate(b.Date)))
	if err != nil {
		return model.Reservation{}, err
	}
	defer release()

	res := model.Reservation{
		UserID:    b.UserID,
		TableID:   b.TableID,
		Date:      b.Date,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		People:    b.People,
		Status:    model.ReservationPending,
	}
	err = database.WithTx(ctx, s.store.DB(), func(tx *sql.Tx) error {
		table, err := s.store.LockTableTx(ctx, tx, b.TableID)
		if err != nil {
			return err
		}
		if b.People > table.Capacity {
			return &availability.ValidationError{
				Msg: fmt.Sprintf("party of %d exceeds the capacity of table %d (%d)", b.People, table.TableID, table.Capacity),
			}
		}
		clashes, err := s.store.OverlappingTx(ctx, tx, b.TableID, b.Date, b.StartTime, b.EndTime)
		if err != nil {
			return err
		}
		if len(clashes) > 0 {
			c := clashes[0]
			return fmt.Errorf("table %d is already booked %d-%d on %s: %w",
				b.TableID, c.StartTime, c.EndTime, availability.FormatDate(b.Date), repository.ErrConflict)
		}
		return s.store.InsertTx(ctx, tx, &res)
	})
	return res, err
}

// Notify publishes ev through the service's notifier.  Handlers use it for
// status changes that do not go through Book.
func (s *ReservationService) Notify(ctx context.Context, ev queue.Event) { s.notifier.Notify(ctx, ev) }

func isValidation(err error) bool {
	var ve *availability.ValidationError
	return errors.As(err, &ve)
}
