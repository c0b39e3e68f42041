package model

import "time"

// Activity log actions mirror the HTTP verb of the recorded request.
const (
	ActionGet    = "get"
	ActionPost   = "post"
	ActionPut    = "put"
	ActionDelete = "delete"
)

// UserLog is one entry of the activity log.
type UserLog struct {
	ID          int64     `json:"id" db:"id"`
	User        *LogActor `json:"user,omitempty"`
	Action      string    `json:"action" db:"action"`
	Description string    `json:"description" db:"description"`
	Table       string    `json:"table" db:"table_name"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// LogActor identifies the admin who performed a logged action.
type LogActor struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
