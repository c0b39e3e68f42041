package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/table"
)

// ---------------------------------------------------------------------------
// Admin CRUD
// ---------------------------------------------------------------------------

// adminRow is a flat struct that maps 1:1 to the admins columns joined with
// the admin type name.
type adminRow struct {
	ID            int64          `db:"id"`
	Email         string         `db:"email"`
	PasswordHash  string         `db:"password_hash"`
	Name          string         `db:"name"`
	AdminTypeID   sql.NullInt64  `db:"admin_type_id"`
	AdminTypeName sql.NullString `db:"admin_type_name"`
	Image         string         `db:"image"`
	IsActive      bool           `db:"is_active"`
	IsSuperAdmin  bool           `db:"is_super_admin"`
	LastLoginAt   *time.Time     `db:"last_login_at"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r adminRow) toModel() model.Admin {
	a := model.Admin{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Name:         r.Name,
		Image:        r.Image,
		IsActive:     r.IsActive,
		IsSuperAdmin: r.IsSuperAdmin,
		LastLoginAt:  r.LastLoginAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.AdminTypeID.Valid {
		id := r.AdminTypeID.Int64
		a.AdminTypeID = &id
		a.AdminType = &model.AdminTypeRef{ID: id, Name: r.AdminTypeName.String}
	}
	return a
}

const adminFrom = "admins a LEFT JOIN admin_types t ON t.id = a.admin_type_id"

var adminColumns = []string{
	"a.id", "a.email", "a.password_hash", "a.name", "a.admin_type_id",
	"t.name AS admin_type_name", "a.image", "a.is_active", "a.is_super_admin",
	"a.last_login_at", "a.created_at", "a.updated_at",
}

// AdminList describes the admin list view.
var AdminList = listSpec{
	from:    adminFrom,
	columns: adminColumns,
	search:  []string{"a.name", "a.email"},
	sortable: map[string]string{
		"name":        "a.name",
		"email":       "a.email",
		"createdAt":   "a.created_at",
		"lastLoginAt": "a.last_login_at",
		"isActive":    "a.is_active",
	},
	filters: map[string]func(string) (sq.Sqlizer, error){
		"isActive":  boolFilter("a.is_active"),
		"adminType": eqFilter("a.admin_type_id"),
	},
	defaultSort: "a.id ASC",
}

// CreateAdmin inserts a new admin account. The caller must set PasswordHash
// to a bcrypt hash. The ID and timestamps are populated after insert.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	id, err := s.insert(ctx, s.db, s.sb.Insert("admins").
		Columns("email", "password_hash", "name", "admin_type_id", "image",
			"is_active", "is_super_admin", "created_at", "updated_at").
		Values(admin.Email, admin.PasswordHash, admin.Name, admin.AdminTypeID, admin.Image,
			admin.IsActive, admin.IsSuperAdmin, now, now))
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	admin.ID = id
	admin.CreatedAt = now
	admin.UpdatedAt = now
	return s.fillAdminType(ctx, admin)
}

// GetAdmin retrieves an admin by ID.
func (s *Store) GetAdmin(ctx context.Context, id int64) (*model.Admin, error) {
	return s.getAdmin(ctx, sq.Eq{"a.id": id})
}

// GetAdminByEmail retrieves an admin account by email address.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return s.getAdmin(ctx, sq.Eq{"a.email": email})
}

func (s *Store) getAdmin(ctx context.Context, where sq.Sqlizer) (*model.Admin, error) {
	var row adminRow
	if err := s.get(ctx, s.db, &row, s.sb.Select(adminColumns...).From(adminFrom).Where(where)); err != nil {
		return nil, err
	}
	a := row.toModel()
	return &a, nil
}

// ListAdmins returns one page of admins and the filtered total.
func (s *Store) ListAdmins(ctx context.Context, st *table.State) ([]model.Admin, int64, error) {
	var rows []adminRow
	total, err := s.list(ctx, AdminList, st, &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list admins: %w", err)
	}
	out := make([]model.Admin, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, total, nil
}

// UpdateAdmin modifies an admin. The password hash is only replaced when
// PasswordHash is set.
func (s *Store) UpdateAdmin(ctx context.Context, admin *model.Admin) error {
	admin.UpdatedAt = time.Now().UTC()
	b := s.sb.Update("admins").
		Set("email", admin.Email).
		Set("name", admin.Name).
		Set("admin_type_id", admin.AdminTypeID).
		Set("image", admin.Image).
		Set("is_active", admin.IsActive).
		Set("is_super_admin", admin.IsSuperAdmin).
		Set("updated_at", admin.UpdatedAt).
		Where(sq.Eq{"id": admin.ID})
	if admin.PasswordHash != "" {
		b = b.Set("password_hash", admin.PasswordHash)
	}
	if err := s.execAffected(ctx, s.db, b); err != nil {
		return err
	}
	return s.fillAdminType(ctx, admin)
}

// DeleteAdmins removes the admins with the given IDs and returns how many
// were deleted.
func (s *Store) DeleteAdmins(ctx context.Context, ids []int64) (int64, error) {
	return s.deleteIDs(ctx, "admins", ids)
}

// HasAnyAdmin returns true if at least one admin account exists.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	n, err := s.count(ctx, "admins", nil)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateAdminLastLogin sets the last_login_at timestamp to now.
func (s *Store) UpdateAdminLastLogin(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	return s.execAffected(ctx, s.db, s.sb.Update("admins").
		Set("last_login_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}))
}

// Overview counts the dashboard figures. Security alerts are failed sign-ins
// recorded since the given time.
func (s *Store) Overview(ctx context.Context, alertsSince time.Time) (*model.Overview, error) {
	var (
		o   model.Overview
		err error
	)
	if o.ActiveAdmins, err = s.count(ctx, "admins", sq.Eq{"is_active": true}); err != nil {
		return nil, fmt.Errorf("count active admins: %w", err)
	}
	if o.PendingInvites, err = s.count(ctx, "admins", sq.And{
		sq.Eq{"is_active": false},
		sq.Eq{"last_login_at": nil},
	}); err != nil {
		return nil, fmt.Errorf("count pending invites: %w", err)
	}
	if o.AdminTypes, err = s.count(ctx, "admin_types", nil); err != nil {
		return nil, fmt.Errorf("count admin types: %w", err)
	}
	if o.SecurityAlerts, err = s.CountFailedLogins(ctx, alertsSince); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) fillAdminType(ctx context.Context, admin *model.Admin) error {
	admin.AdminType = nil
	if admin.AdminTypeID == nil {
		return nil
	}
	var name string
	err := s.get(ctx, s.db, &name, s.sb.Select("name").From("admin_types").Where(sq.Eq{"id": *admin.AdminTypeID}))
	if err != nil {
		return fmt.Errorf("load admin type: %w", err)
	}
	admin.AdminType = &model.AdminTypeRef{ID: *admin.AdminTypeID, Name: name}
	return nil
}

func (s *Store) deleteIDs(ctx context.Context, tableName string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.exec(ctx, s.db, s.sb.Delete(tableName).Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", tableName, err)
	}
	return res.RowsAffected()
}
