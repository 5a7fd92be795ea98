package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-management/internal/model"
)

// ReservationRepo provides CRUD operations for table reservations.  Dates
// are DATE columns scanned as midnight UTC; hours are plain integers.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the handle so services can open transactions spanning
// several repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = "r.id, r.user_id, r.table_id, r.date, r.start_time, r.end_time, r.people, r.status, r.satisfaction_rating, r.created_at"

const reservationViewSelect = "SELECT " + reservationColumns + `, u.name, t.location, t.capacity
FROM reservations r
LEFT JOIN users u ON u.id = r.user_id
LEFT JOIN dining_tables t ON t.id = r.table_id`

func scanReservation(s rowScanner, extra ...any) (model.Reservation, error) {
	var (
		res    model.Reservation
		rating sql.NullInt64
	)
	dest := []any{&res.ReservationID, &res.UserID, &res.TableID, &res.Date, &res.StartTime, &res.EndTime,
		&res.People, &res.Status, &rating, &res.CreatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return res, ErrReservationNotFound
		}
		return res, err
	}
	if rating.Valid {
		v := int(rating.Int64)
		res.SatisfactionRating = &v
	}
	return res, nil
}

func scanReservationView(s rowScanner) (model.ReservationView, error) {
	var (
		name     sql.NullString
		location sql.NullString
		capacity sql.NullInt64
	)
	res, err := scanReservation(s, &name, &location, &capacity)
	if err != nil {
		return model.ReservationView{}, err
	}
	v := model.ReservationView{Reservation: res, DateText: res.Date.Format("2006-01-02")}
	if name.Valid {
		v.UserName = &name.String
	}
	if location.Valid {
		v.TableLocation = &location.String
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		v.TableCapacity = &c
	}
	return v, nil
}

func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ReservationsOn returns every non-cancelled reservation on date, across all
// tables.
func (r *ReservationRepo) ReservationsOn(ctx context.Context, date time.Time) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations r WHERE r.date = ? AND r.status <> ? ORDER BY r.table_id, r.start_time",
		date.Format("2006-01-02"), model.ReservationCancelled)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// LockTableTx reads a table with a row lock.  Concurrent bookings for the
// same table queue on this lock until the holder commits.
func (r *ReservationRepo) LockTableTx(ctx context.Context, tx *sql.Tx, tableID uint64) (model.Table, error) {
	var t model.Table
	err := tx.QueryRowContext(ctx,
		"SELECT id, table_type_id, location, capacity FROM dining_tables WHERE id = ? FOR UPDATE",
		tableID).Scan(&t.TableID, &t.TableTypeID, &t.Location, &t.Capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrTableNotFound
	}
	return t, err
}

// OverlappingTx returns the non-cancelled reservations of tableID on date
// whose hours intersect [start, end), locking them for the rest of tx.
func (r *ReservationRepo) OverlappingTx(ctx context.Context, tx *sql.Tx, tableID uint64, date time.Time, start, end int) ([]model.Reservation, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT "+reservationColumns+` FROM reservations r
WHERE r.table_id = ? AND r.date = ? AND r.status <> ?
AND NOT (r.end_time <= ? OR r.start_time >= ?)
FOR UPDATE`,
		tableID, date.Format("2006-01-02"), model.ReservationCancelled, start, end)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// InsertTx inserts res inside tx and fills in its ID.  Status defaults to
// Pending.
func (r *ReservationRepo) InsertTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	if res.Status == "" {
		res.Status = model.ReservationPending
	}
	result, err := tx.ExecContext(ctx,
		"INSERT INTO reservations (user_id, table_id, date, start_time, end_time, people, status) VALUES (?,?,?,?,?,?,?)",
		res.UserID, res.TableID, res.Date.Format("2006-01-02"), res.StartTime, res.EndTime, res.People, res.Status)
	if err != nil {
		return err
	}
	res.ReservationID, err = lastID(result)
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	return err
}

// GetByID returns a reservation with its user and table details.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.ReservationView, error) {
	return scanReservationView(r.db.QueryRowContext(ctx, reservationViewSelect+" WHERE r.id = ?", id))
}

// ReservationFilter narrows List.  Zero values do not filter.
type ReservationFilter struct {
	UserID   uint64
	TableID  uint64
	Status   string
	Date     *time.Time
	FromDate *time.Time
	ToDate   *time.Time
}

func (f ReservationFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != 0 {
		conds, args = append(conds, "r.user_id = ?"), append(args, f.UserID)
	}
	if f.TableID != 0 {
		conds, args = append(conds, "r.table_id = ?"), append(args, f.TableID)
	}
	if f.Status != "" {
		conds, args = append(conds, "r.status = ?"), append(args, f.Status)
	}
	if f.Date != nil {
		conds, args = append(conds, "r.date = ?"), append(args, f.Date.Format("2006-01-02"))
	}
	if f.FromDate != nil {
		conds, args = append(conds, "r.date >= ?"), append(args, f.FromDate.Format("2006-01-02"))
	}
	if f.ToDate != nil {
		conds, args = append(conds, "r.date <= ?"), append(args, f.ToDate.Format("2006-01-02"))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns reservations matching f, newest date first.
func (r *ReservationRepo) List(ctx context.Context, f ReservationFilter) ([]model.ReservationView, error) {
	where, args := f.where()
	rows, err := r.db.QueryContext(ctx,
		reservationViewSelect+where+" ORDER BY r.date DESC, r.start_time", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ReservationView{}
	for rows.Next() {
		v, err := scanReservationView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateStatus sets the status of a reservation.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE reservations SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// unchanged status also reports zero rows
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a reservation.  Orders placed against it keep existing
// with a NULL reservation.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrReservationNotFound)
}
