package model

import "time"

// Function keys seeded into every database. A function is a named permission
// scope that privileges grant access to.
const (
	FunctionDashboard  = "dashboard"
	FunctionAdmins     = "admins"
	FunctionAdminTypes = "adminTypes"
	FunctionUsers      = "users"
	FunctionUserLogs   = "userLogs"
	FunctionSettings   = "settings"
)

// Function is a named permission scope, e.g. "admins" or "settings".
type Function struct {
	ID   int64  `json:"id" db:"id"`
	Key  string `json:"key" db:"fn_key"`
	Name string `json:"name" db:"name"`
}

// DefaultFunctions lists the functions every installation starts with, in
// display order.
func DefaultFunctions() []Function {
	return []Function{
		{Key: FunctionDashboard, Name: "Dashboard"},
		{Key: FunctionAdmins, Name: "Admins"},
		{Key: FunctionAdminTypes, Name: "Admin Types"},
		{Key: FunctionUsers, Name: "Users"},
		{Key: FunctionUserLogs, Name: "Activity Logs"},
		{Key: FunctionSettings, Name: "Settings"},
	}
}

// Privilege is the four-flag grant for one function within one admin type.
type Privilege struct {
	ID          int64    `json:"id,omitempty" db:"id"`
	AdminTypeID int64    `json:"-" db:"admin_type_id"`
	Function    Function `json:"function"`
	Read        bool     `json:"read" db:"can_read"`
	Write       bool     `json:"write" db:"can_write"`
	Update      bool     `json:"update" db:"can_update"`
	Delete      bool     `json:"delete" db:"can_delete"`
}

// AdminType is a reusable role bundling privileges, assigned to admins.
type AdminType struct {
	ID          int64       `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description string      `json:"description" db:"description"`
	Privileges  []Privilege `json:"privileges"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}
