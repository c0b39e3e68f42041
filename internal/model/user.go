package model

import "time"

// User is an end user of the platform managed from the console.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"firstName" db:"first_name"`
	LastName     string    `json:"lastName" db:"last_name"`
	Phone        Phone     `json:"phone"`
	Image        string    `json:"image,omitempty" db:"image"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	IsVerified   bool      `json:"isVerified" db:"is_verified"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Phone is a phone number split into country code and local number.
type Phone struct {
	Code   string `json:"code"`
	Number string `json:"number"`
}

// FullName joins the first and last name.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
