package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/restaurant-management/internal/database"
	"github.com/iliyamo/restaurant-management/internal/model"
)

// TableRepo manages dining tables and their types.
type TableRepo struct{ DB *sql.DB }

func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{DB: db} }

const tableSelect = `SELECT t.id, t.table_type_id, t.location, t.capacity, COALESCE(tt.type, '')
FROM dining_tables t LEFT JOIN table_types tt ON tt.id = t.table_type_id`

func scanTable(s rowScanner) (model.Table, error) {
	var t model.Table
	err := s.Scan(&t.TableID, &t.TableTypeID, &t.Location, &t.Capacity, &t.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrTableNotFound
	}
	return t, err
}

func (r *TableRepo) queryTables(ctx context.Context, query string, args ...any) ([]model.Table, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// List returns all tables with their type name.
func (r *TableRepo) List(ctx context.Context) ([]model.Table, error) {
	return r.queryTables(ctx, tableSelect+" ORDER BY t.id")
}

// TablesWithCapacity returns the tables seating at least min people,
// smallest first.
func (r *TableRepo) TablesWithCapacity(ctx context.Context, min int) ([]model.Table, error) {
	return r.queryTables(ctx, tableSelect+" WHERE t.capacity >= ? ORDER BY t.capacity, t.id", min)
}

func (r *TableRepo) GetByID(ctx context.Context, id uint64) (model.Table, error) {
	return scanTable(r.DB.QueryRowContext(ctx, tableSelect+" WHERE t.id = ?", id))
}

// Create inserts t and sets its ID.  An unknown table type yields
// ErrTableTypeNotFound.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO dining_tables (table_type_id, location, capacity) VALUES (?,?,?)",
		t.TableTypeID, strings.TrimSpace(t.Location), t.Capacity)
	if err != nil {
		if database.IsMySQLError(err, database.ErrNoReferencedRow) {
			return ErrTableTypeNotFound
		}
		return err
	}
	t.TableID, err = lastID(res)
	return err
}

// Delete removes a table.  Tables referenced by reservations yield ErrInUse.
func (r *TableRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM dining_tables WHERE id = ?", id)
	if err != nil {
		if database.IsMySQLError(err, database.ErrRowIsReferenced) {
			return ErrInUse
		}
		return err
	}
	return affectedOr(res, ErrTableNotFound)
}

// ListTypes returns all table types.
func (r *TableRepo) ListTypes(ctx context.Context) ([]model.TableType, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, type FROM table_types ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TableType{}
	for rows.Next() {
		var tt model.TableType
		if err := rows.Scan(&tt.TableTypeID, &tt.Type); err != nil {
			return nil, err
		}
		out = append(out, tt)
	}
	return out, rows.Err()
}

// CreateType inserts a table type.  Duplicate names yield ErrConflict.
func (r *TableRepo) CreateType(ctx context.Context, typ string) (model.TableType, error) {
	typ = strings.TrimSpace(typ)
	res, err := r.DB.ExecContext(ctx, "INSERT INTO table_types (type) VALUES (?)", typ)
	if err != nil {
		if database.IsMySQLError(err, database.ErrDupEntry) {
			return model.TableType{}, ErrConflict
		}
		return model.TableType{}, err
	}
	id, err := lastID(res)
	return model.TableType{TableTypeID: id, Type: typ}, err
}

// DeleteType removes a table type that no table uses.
func (r *TableRepo) DeleteType(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM table_types WHERE id = ?", id)
	if err != nil {
		if database.IsMySQLError(err, database.ErrRowIsReferenced) {
			return ErrInUse
		}
		return err
	}
	return affectedOr(res, ErrTableTypeNotFound)
}
