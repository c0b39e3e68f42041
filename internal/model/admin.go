package model

import "time"

// Admin represents an administrator of the console. Passwords are stored as
// bcrypt hashes.
type Admin struct {
	ID           int64         `json:"id" db:"id"`
	Email        string        `json:"email" db:"email"`
	PasswordHash string        `json:"-" db:"password_hash"` // bcrypt hash, never expose
	Name         string        `json:"name" db:"name"`
	AdminTypeID  *int64        `json:"-" db:"admin_type_id"`
	AdminType    *AdminTypeRef `json:"adminType,omitempty"`
	Image        string        `json:"image,omitempty" db:"image"`
	IsActive     bool          `json:"isActive" db:"is_active"`
	IsSuperAdmin bool          `json:"isSuperAdmin" db:"is_super_admin"`
	LastLoginAt  *time.Time    `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time     `json:"updatedAt" db:"updated_at"`
}

// AdminTypeRef is the short form of an admin type embedded in admin payloads.
type AdminTypeRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Pending reports whether the admin was invited but has never signed in.
func (a *Admin) Pending() bool {
	return !a.IsActive && a.LastLoginAt == nil
}
