package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/restaurant-management/internal/model"
)

type StaffRepo struct{ DB *sql.DB }

func NewStaffRepo(db *sql.DB) *StaffRepo { return &StaffRepo{DB: db} }

func (r *StaffRepo) query(ctx context.Context, q string, args ...any) ([]model.Staff, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Staff{}
	for rows.Next() {
		var (
			s       model.Staff
			contact sql.NullString
		)
		if err := rows.Scan(&s.StaffID, &s.Name, &s.Role, &contact); err != nil {
			return nil, err
		}
		if contact.Valid {
			s.ContactInfo = &contact.String
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *StaffRepo) List(ctx context.Context) ([]model.Staff, error) {
	return r.query(ctx, "SELECT id, name, role, contact_info FROM staff ORDER BY name")
}

// Chefs returns staff whose role mentions "chef" (Chef, Head Chef, Sous Chef).
func (r *StaffRepo) Chefs(ctx context.Context) ([]model.Staff, error) {
	return r.query(ctx, "SELECT id, name, role, contact_info FROM staff WHERE LOWER(role) LIKE '%chef%' ORDER BY name")
}

func (r *StaffRepo) Create(ctx context.Context, s *model.Staff) error {
	s.Name = strings.TrimSpace(s.Name)
	s.Role = strings.TrimSpace(s.Role)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO staff (name, role, contact_info) VALUES (?,?,?)", s.Name, s.Role, s.ContactInfo)
	if err != nil {
		return err
	}
	s.StaffID, err = lastID(res)
	return err
}

func (r *StaffRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM staff WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrStaffNotFound)
}
