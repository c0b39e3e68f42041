package config

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/phdlabs/admind/internal/model"
	"github.com/phdlabs/admind/internal/table"
)

// ---------------------------------------------------------------------------
// User CRUD
// ---------------------------------------------------------------------------

type userRow struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	PhoneCode    string    `db:"phone_code"`
	PhoneNumber  string    `db:"phone_number"`
	Image        string    `db:"image"`
	IsActive     bool      `db:"is_active"`
	IsVerified   bool      `db:"is_verified"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toModel() model.User {
	return model.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Phone:        model.Phone{Code: r.PhoneCode, Number: r.PhoneNumber},
		Image:        r.Image,
		IsActive:     r.IsActive,
		IsVerified:   r.IsVerified,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// UserList describes the user list view.
var UserList = listSpec{
	from: "users",
	columns: []string{
		"id", "email", "password_hash", "first_name", "last_name", "phone_code",
		"phone_number", "image", "is_active", "is_verified", "created_at", "updated_at",
	},
	search: []string{"first_name", "last_name", "email", "phone_number"},
	sortable: map[string]string{
		"firstName": "first_name",
		"lastName":  "last_name",
		"email":     "email",
		"createdAt": "created_at",
		"isActive":  "is_active",
	},
	filters: map[string]func(string) (sq.Sqlizer, error){
		"isActive":   boolFilter("is_active"),
		"isVerified": boolFilter("is_verified"),
	},
	defaultSort: "id ASC",
}

// CreateUser inserts an end user.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	id, err := s.insert(ctx, s.db, s.sb.Insert("users").
		Columns("email", "password_hash", "first_name", "last_name", "phone_code",
			"phone_number", "image", "is_active", "is_verified", "created_at", "updated_at").
		Values(u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone.Code,
			u.Phone.Number, u.Image, u.IsActive, u.IsVerified, now, now))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetUser retrieves an end user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var row userRow
	if err := s.get(ctx, s.db, &row, s.sb.Select(UserList.columns...).From("users").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	u := row.toModel()
	return &u, nil
}

// ListUsers returns one page of end users and the filtered total.
func (s *Store) ListUsers(ctx context.Context, st *table.State) ([]model.User, int64, error) {
	var rows []userRow
	total, err := s.list(ctx, UserList, st, &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	out := make([]model.User, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, total, nil
}

// UpdateUser modifies an end user. The password hash is only replaced when
// PasswordHash is set.
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()
	b := s.sb.Update("users").
		Set("email", u.Email).
		Set("first_name", u.FirstName).
		Set("last_name", u.LastName).
		Set("phone_code", u.Phone.Code).
		Set("phone_number", u.Phone.Number).
		Set("image", u.Image).
		Set("is_active", u.IsActive).
		Set("is_verified", u.IsVerified).
		Set("updated_at", u.UpdatedAt).
		Where(sq.Eq{"id": u.ID})
	if u.PasswordHash != "" {
		b = b.Set("password_hash", u.PasswordHash)
	}
	return s.execAffected(ctx, s.db, b)
}

// DeleteUsers removes the end users with the given IDs.
func (s *Store) DeleteUsers(ctx context.Context, ids []int64) (int64, error) {
	return s.deleteIDs(ctx, "users", ids)
}
