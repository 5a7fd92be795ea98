package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/restaurant-management/internal/database"
	"github.com/iliyamo/restaurant-management/internal/model"
	"github.com/iliyamo/restaurant-management/internal/utils"
)

const userColumns = "id,name,email,phone,password_hash,is_admin,is_member,created_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func scanUser(s rowScanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.IsAdmin, &u.IsMember, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

// NewUser is the input of Create.  Password is plain text and hashed with
// bcrypt before it reaches the database.
type NewUser struct {
	Name     string
	Email    string
	Phone    string
	Password string
	IsAdmin  bool
	IsMember bool
}

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, in NewUser, cost int) (uint64, error) {
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, phone, password_hash, is_admin, is_member) VALUES (?,?,?,?,?,?)",
		strings.TrimSpace(in.Name), normalizeEmail(in.Email), strings.TrimSpace(in.Phone), hash, in.IsAdmin, in.IsMember)
	if err != nil {
		if database.IsMySQLError(err, database.ErrDupEntry) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return lastID(res)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func (r *UserRepo) list(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	return r.list(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
}

// ListMembers returns the users with an active membership.
func (r *UserRepo) ListMembers(ctx context.Context) ([]model.User, error) {
	return r.list(ctx, "SELECT "+userColumns+" FROM users WHERE is_member=1 ORDER BY name")
}

// FindByNameAndEmail matches a user on both fields; it is how staff look a
// customer up when enrolling them at the counter.
func (r *UserRepo) FindByNameAndEmail(ctx context.Context, name, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE name=? AND email=? LIMIT 1",
		strings.TrimSpace(name), normalizeEmail(email)))
}

// FindByEmailAndPhone is used to verify identity before a password reset.
func (r *UserRepo) FindByEmailAndPhone(ctx context.Context, email, phone string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND phone=? LIMIT 1",
		normalizeEmail(email), strings.TrimSpace(phone)))
}

// SetMember turns membership on or off.
func (r *UserRepo) SetMember(ctx context.Context, id uint64, member bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET is_member=? WHERE id=?", member, id)
	if err != nil {
		return err
	}
	// MySQL reports zero affected rows when the value is unchanged, so
	// existence is checked separately.
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SetPasswordHash stores an already hashed password.
func (r *UserRepo) SetPasswordHash(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	return affectedOr(res, ErrUserNotFound)
}

// ProfileUpdate lists the fields to change; nil means keep.
type ProfileUpdate struct {
	Name         *string
	Email        *string
	Phone        *string
	PasswordHash *string
}

func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.PasswordHash == nil
}

// UpdateProfile applies the non-nil fields of p to user id.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p ProfileUpdate) error {
	var (
		sets []string
		args []any
	)
	if p.Name != nil {
		sets, args = append(sets, "name=?"), append(args, strings.TrimSpace(*p.Name))
	}
	if p.Email != nil {
		sets, args = append(sets, "email=?"), append(args, normalizeEmail(*p.Email))
	}
	if p.Phone != nil {
		sets, args = append(sets, "phone=?"), append(args, strings.TrimSpace(*p.Phone))
	}
	if p.PasswordHash != nil {
		sets, args = append(sets, "password_hash=?"), append(args, *p.PasswordHash)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if database.IsMySQLError(err, database.ErrDupEntry) {
		return ErrEmailExists
	}
	return err
}

const passwordsHashedKey = "passwords_hashed"

// HashLegacyPasswords replaces every stored password that is not a bcrypt
// hash with its bcrypt hash, in one transaction, and records a marker so the
// migration runs once.  It returns how many rows were rewritten and whether
// the migration had already been applied.
func (r *UserRepo) HashLegacyPasswords(ctx context.Context, cost int) (n int, alreadyDone bool, err error) {
	err = database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var marker string
		err := tx.QueryRowContext(ctx,
			"SELECT config_value FROM app_config WHERE config_key=? FOR UPDATE", passwordsHashedKey).Scan(&marker)
		switch {
		case err == nil && marker == "true":
			alreadyDone = true
			return nil
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return err
		}

		rows, err := tx.QueryContext(ctx,
			"SELECT id, password_hash FROM users WHERE password_hash NOT LIKE '$2a$%' AND password_hash NOT LIKE '$2b$%' AND password_hash NOT LIKE '$2y$%'")
		if err != nil {
			return err
		}
		type legacy struct {
			id    uint64
			plain string
		}
		var pending []legacy
		for rows.Next() {
			var l legacy
			if err := rows.Scan(&l.id, &l.plain); err != nil {
				rows.Close()
				return err
			}
			pending = append(pending, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, l := range pending {
			hash, err := utils.HashPassword(l.plain, cost)
			if err != nil {
				return fmt.Errorf("hash user %d: %w", l.id, err)
			}
			if _, err := tx.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, l.id); err != nil {
				return err
			}
		}
		n = len(pending)
		_, err = tx.ExecContext(ctx,
			"INSERT INTO app_config (config_key, config_value) VALUES (?, 'true') ON DUPLICATE KEY UPDATE config_value='true'",
			passwordsHashedKey)
		return err
	})
	return n, alreadyDone, err
}
