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
// Activity log
// ---------------------------------------------------------------------------

// TableAuth is the activity log table of sign-in events.
const TableAuth = "auth"

type userLogRow struct {
	ID          int64          `db:"id"`
	AdminID     sql.NullInt64  `db:"admin_id"`
	AdminName   sql.NullString `db:"admin_name"`
	AdminEmail  sql.NullString `db:"admin_email"`
	Action      string         `db:"action"`
	Description string         `db:"description"`
	TableName   string         `db:"table_name"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r userLogRow) toModel() model.UserLog {
	l := model.UserLog{
		ID:          r.ID,
		Action:      r.Action,
		Description: r.Description,
		Table:       r.TableName,
		CreatedAt:   r.CreatedAt,
	}
	if r.AdminID.Valid {
		l.User = &model.LogActor{ID: r.AdminID.Int64, Name: r.AdminName.String, Email: r.AdminEmail.String}
	}
	return l
}

// UserLogList describes the activity log list view.
var UserLogList = listSpec{
	from: "user_logs l LEFT JOIN admins a ON a.id = l.admin_id",
	columns: []string{
		"l.id", "l.admin_id", "a.name AS admin_name", "a.email AS admin_email",
		"l.action", "l.description", "l.table_name", "l.created_at",
	},
	search: []string{"l.description", "a.name", "a.email"},
	sortable: map[string]string{
		"createdAt": "l.created_at",
		"action":    "l.action",
		"table":     "l.table_name",
	},
	filters: map[string]func(string) (sq.Sqlizer, error){
		"action": eqFilter("l.action"),
		"table":  eqFilter("l.table_name"),
		"user":   eqFilter("l.admin_id"),
	},
	defaultSort: "l.id DESC",
}

// CreateUserLog records an activity. adminID may be zero for anonymous
// events such as a failed sign-in.
func (s *Store) CreateUserLog(ctx context.Context, adminID int64, action, tableName, description string) error {
	var actor interface{}
	if adminID > 0 {
		actor = adminID
	}
	_, err := s.insert(ctx, s.db, s.sb.Insert("user_logs").
		Columns("admin_id", "action", "description", "table_name", "created_at").
		Values(actor, action, description, tableName, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("insert user log: %w", err)
	}
	return nil
}

// ListUserLogs returns one page of the activity log, newest first by default.
func (s *Store) ListUserLogs(ctx context.Context, st *table.State) ([]model.UserLog, int64, error) {
	var rows []userLogRow
	total, err := s.list(ctx, UserLogList, st, &rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list user logs: %w", err)
	}
	out := make([]model.UserLog, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, total, nil
}

// CountFailedLogins counts failed sign-in attempts recorded since the given
// time.
func (s *Store) CountFailedLogins(ctx context.Context, since time.Time) (int64, error) {
	n, err := s.count(ctx, "user_logs", sq.And{
		sq.Eq{"table_name": TableAuth},
		sq.Like{"description": "Failed login%"},
		sq.GtOrEq{"created_at": since.UTC()},
	})
	if err != nil {
		return 0, fmt.Errorf("count failed logins: %w", err)
	}
	return n, nil
}
