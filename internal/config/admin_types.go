package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/table"
)

// ---------------------------------------------------------------------------
// Admin type CRUD
// ---------------------------------------------------------------------------

type adminTypeRow struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r adminTypeRow) toModel() model.AdminType {
	return model.AdminType{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// AdminTypeList describes the admin type list view.
var AdminTypeList = listSpec{
	from:    "admin_types",
	columns: []string{"id", "name", "description", "created_at", "updated_at"},
	search:  []string{"name", "description"},
	sortable: map[string]string{
		"name":      "name",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
	defaultSort: "id ASC",
}

// CreateAdminType inserts an admin type together with its privilege matrix.
func (s *Store) CreateAdminType(ctx context.Context, at *model.AdminType) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	id, err := s.insert(ctx, tx, s.sb.Insert("admin_types").
		Columns("name", "description", "created_at", "updated_at").
		Values(at.Name, at.Description, now, now))
	if err != nil {
		return fmt.Errorf("insert admin type: %w", err)
	}
	if err := s.setPrivileges(ctx, tx, id, at.Privileges); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	at.ID = id
	at.CreatedAt = now
	at.UpdatedAt = now
	at.Privileges, err = s.GetPrivileges(ctx, id)
	return err
}

// GetAdminType retrieves an admin type with its full privilege matrix.
func (s *Store) GetAdminType(ctx context.Context, id int64) (*model.AdminType, error) {
	return s.getAdminType(ctx, sq.Eq{"id": id})
}

// GetAdminTypeByName retrieves an admin type by its unique name.
func (s *Store) GetAdminTypeByName(ctx context.Context, name string) (*model.AdminType, error) {
	return s.getAdminType(ctx, sq.Eq{"name": name})
}

func (s *Store) getAdminType(ctx context.Context, where sq.Sqlizer) (*model.AdminType, error) {
	var row adminTypeRow
	if err := s.get(ctx, s.db, &row, s.sb.Select(AdminTypeList.columns...).From("admin_types").Where(where)); err != nil {
		return nil, err
	}
	at := row.toModel()
	privs, err := s.GetPrivileges(ctx, at.ID)
	if err != nil {
		return nil, err
	}
	at.Privileges = privs
	return &at, nil
}

// ListAdminTypes returns one page of admin types, each with its privileges.
func (s *Store) ListAdminTypes(ctx context.Context, st *table.State) ([]model.AdminType, int64, error) {
	var rows []adminTypeRow
	total, err := s.list(ctx, AdminTypeList, st, &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list admin types: %w", err)
	}
	out := make([]model.AdminType, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
		if out[i].Privileges, err = s.GetPrivileges(ctx, r.ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// UpdateAdminType modifies an admin type and replaces its privilege matrix.
func (s *Store) UpdateAdminType(ctx context.Context, at *model.AdminType) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	at.UpdatedAt = time.Now().UTC()
	err = s.execAffected(ctx, tx, s.sb.Update("admin_types").
		Set("name", at.Name).
		Set("description", at.Description).
		Set("updated_at", at.UpdatedAt).
		Where(sq.Eq{"id": at.ID}))
	if err != nil {
		return err
	}
	if err := s.setPrivileges(ctx, tx, at.ID, at.Privileges); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	at.Privileges, err = s.GetPrivileges(ctx, at.ID)
	return err
}

// DeleteAdminTypes removes admin types. It fails with ErrConflict when any of
// them is still assigned to an admin.
func (s *Store) DeleteAdminTypes(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	inUse, err := s.count(ctx, "admins", sq.Eq{"admin_type_id": ids})
	if err != nil {
		return 0, err
	}
	if inUse > 0 {
		return 0, fmt.Errorf("admin type assigned to %d admin(s): %w", inUse, ErrConflict)
	}
	return s.deleteIDs(ctx, "admin_types", ids)
}

// ---------------------------------------------------------------------------
// Functions and privileges
// ---------------------------------------------------------------------------

// ListFunctions returns every function in display order.
func (s *Store) ListFunctions(ctx context.Context) ([]model.Function, error) {
	var fns []model.Function
	if err := s.selectAll(ctx, s.db, &fns, s.sb.Select("id", "fn_key", "name").From("functions").OrderBy("id")); err != nil {
		return nil, fmt.Errorf("list functions: %w", err)
	}
	return fns, nil
}

type privilegeRow struct {
	ID        sql.NullInt64 `db:"id"`
	FnID      int64         `db:"function_id"`
	FnKey     string        `db:"fn_key"`
	FnName    string        `db:"function_name"`
	CanRead   sql.NullBool  `db:"can_read"`
	CanWrite  sql.NullBool  `db:"can_write"`
	CanUpdate sql.NullBool  `db:"can_update"`
	CanDelete sql.NullBool  `db:"can_delete"`
}

// GetPrivileges returns the privilege matrix of an admin type with one entry
// per function. Functions without a stored privilege are all false.
func (s *Store) GetPrivileges(ctx context.Context, adminTypeID int64) ([]model.Privilege, error) {
	var rows []privilegeRow
	b := s.sb.Select("p.id", "f.id AS function_id", "f.fn_key", "f.name AS function_name",
		"p.can_read", "p.can_write", "p.can_update", "p.can_delete").
		From("functions f").
		LeftJoin("privileges p ON p.function_id = f.id AND p.admin_type_id = ?", adminTypeID).
		OrderBy("f.id")
	if err := s.selectAll(ctx, s.db, &rows, b); err != nil {
		return nil, fmt.Errorf("get privileges: %w", err)
	}
	out := make([]model.Privilege, len(rows))
	for i, r := range rows {
		out[i] = model.Privilege{
			ID:          r.ID.Int64,
			AdminTypeID: adminTypeID,
			Function:    model.Function{ID: r.FnID, Key: r.FnKey, Name: r.FnName},
			Read:        r.CanRead.Bool,
			Write:       r.CanWrite.Bool,
			Update:      r.CanUpdate.Bool,
			Delete:      r.CanDelete.Bool,
		}
	}
	return out, nil
}

// setPrivileges replaces the privilege matrix of an admin type. Functions are
// resolved by ID, or by key when the ID is zero.
func (s *Store) setPrivileges(ctx context.Context, tx *sqlx.Tx, adminTypeID int64, privs []model.Privilege) error {
	if _, err := s.exec(ctx, tx, s.sb.Delete("privileges").Where(sq.Eq{"admin_type_id": adminTypeID})); err != nil {
		return fmt.Errorf("delete existing privileges: %w", err)
	}
	for _, p := range privs {
		fnID := p.Function.ID
		if fnID == 0 {
			err := s.get(ctx, tx, &fnID, s.sb.Select("id").From("functions").Where(sq.Eq{"fn_key": p.Function.Key}))
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w %q", ErrUnknownFunction, p.Function.Key)
			}
			if err != nil {
				return fmt.Errorf("function %q: %w", p.Function.Key, err)
			}
		}
		_, err := s.exec(ctx, tx, s.sb.Insert("privileges").
			Columns("admin_type_id", "function_id", "can_read", "can_write", "can_update", "can_delete").
			Values(adminTypeID, fnID, p.Read, p.Write, p.Update, p.Delete))
		if err != nil {
			return fmt.Errorf("insert privilege: %w", err)
		}
	}
	return nil
}
