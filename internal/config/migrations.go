package config

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/phdlabs/admind/internal/model"
)

// Column types are written as {{tokens}} and expanded per dialect.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS admin_types (
		id {{pk}},
		name {{str}} NOT NULL UNIQUE,
		description {{text}} NOT NULL,
		created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS functions (
		id {{pk}},
		fn_key {{str}} NOT NULL UNIQUE,
		name {{str}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS privileges (
		id {{pk}},
		admin_type_id {{bigint}} NOT NULL REFERENCES admin_types(id) ON DELETE CASCADE,
		function_id {{bigint}} NOT NULL REFERENCES functions(id) ON DELETE CASCADE,
		can_read {{bool}} NOT NULL DEFAULT {{false}},
		can_write {{bool}} NOT NULL DEFAULT {{false}},
		can_update {{bool}} NOT NULL DEFAULT {{false}},
		can_delete {{bool}} NOT NULL DEFAULT {{false}},
		UNIQUE(admin_type_id, function_id)
	)`,

	`CREATE TABLE IF NOT EXISTS admins (
		id {{pk}},
		email {{str}} NOT NULL UNIQUE,
		password_hash {{str}} NOT NULL,
		name {{str}} NOT NULL DEFAULT '',
		admin_type_id {{bigint}} REFERENCES admin_types(id),
		image {{str}} NOT NULL DEFAULT '',
		is_active {{bool}} NOT NULL DEFAULT {{true}},
		is_super_admin {{bool}} NOT NULL DEFAULT {{false}},
		last_login_at {{ts}},
		created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id {{pk}},
		email {{str}} NOT NULL UNIQUE,
		password_hash {{str}} NOT NULL DEFAULT '',
		first_name {{str}} NOT NULL,
		last_name {{str}} NOT NULL,
		phone_code {{str}} NOT NULL DEFAULT '',
		phone_number {{str}} NOT NULL DEFAULT '',
		image {{str}} NOT NULL DEFAULT '',
		is_active {{bool}} NOT NULL DEFAULT {{true}},
		is_verified {{bool}} NOT NULL DEFAULT {{false}},
		created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS user_logs (
		id {{pk}},
		admin_id {{bigint}} REFERENCES admins(id) ON DELETE SET NULL,
		action {{str}} NOT NULL,
		description {{text}} NOT NULL,
		table_name {{str}} NOT NULL,
		created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id {{pk}},
		admin_id {{bigint}} NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
		token_hash {{str}} NOT NULL UNIQUE,
		expires_at {{ts}} NOT NULL,
		revoked_at {{ts}},
		created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS settings (
		setting_key {{str}} PRIMARY KEY,
		value {{text}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS readiness_reports (
		id {{pk}},
		assessment_id {{bigint}} NOT NULL,
		title {{str}} NOT NULL,
		overall_score {{real}} NOT NULL,
		max_score {{real}} NOT NULL,
		level {{str}} NOT NULL,
		domains_json {{text}} NOT NULL,
		created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS assessments (
		id {{pk}},
		title {{str}} NOT NULL,
		admin_id {{bigint}} NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
		status {{str}} NOT NULL DEFAULT 'draft',
		answers_json {{text}} NOT NULL,
		report_id {{bigint}} REFERENCES readiness_reports(id) ON DELETE SET NULL,
		created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at {{ts}}
	)`,

	`CREATE TABLE IF NOT EXISTS policies (
		id {{pk}},
		title {{str}} NOT NULL,
		sector {{str}} NOT NULL,
		organization_size {{str}} NOT NULL,
		risk_appetite {{str}} NOT NULL DEFAULT '',
		timeline {{str}} NOT NULL DEFAULT '',
		status {{str}} NOT NULL DEFAULT 'draft',
		version {{bigint}} NOT NULL DEFAULT 1,
		executive_summary {{text}} NOT NULL,
		sections_json {{text}} NOT NULL,
		created_by {{bigint}} NOT NULL DEFAULT 0,
		created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_modified {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS policy_versions (
		id {{pk}},
		policy_id {{bigint}} NOT NULL REFERENCES policies(id) ON DELETE CASCADE,
		version {{bigint}} NOT NULL,
		title {{str}} NOT NULL,
		status {{str}} NOT NULL,
		executive_summary {{text}} NOT NULL,
		sections_json {{text}} NOT NULL,
		modified_by {{bigint}} NOT NULL DEFAULT 0,
		created_at {{ts}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX {{ine}} idx_privileges_type ON privileges(admin_type_id)`,
	`CREATE INDEX {{ine}} idx_user_logs_created ON user_logs(created_at)`,
	`CREATE INDEX {{ine}} idx_refresh_tokens_admin ON refresh_tokens(admin_id)`,
	`CREATE INDEX {{ine}} idx_policy_versions_policy ON policy_versions(policy_id)`,
}

func (s *Store) migrate() error {
	for _, m := range migrations {
		stmt := s.dialect.ddl(m)
		if _, err := s.db.Exec(stmt); err != nil {
			if s.alreadyApplied(err) {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

func (s *Store) alreadyApplied(err error) bool {
	for _, sub := range s.dialect.ignorable {
		if strings.Contains(err.Error(), sub) {
			return true
		}
	}
	return false
}

// seedFunctions inserts the default functions that are missing.
func (s *Store) seedFunctions(ctx context.Context) error {
	for _, fn := range model.DefaultFunctions() {
		n, err := s.count(ctx, "functions", sq.Eq{"fn_key": fn.Key})
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if _, err := s.insert(ctx, s.db, s.sb.Insert("functions").
			Columns("fn_key", "name").Values(fn.Key, fn.Name)); err != nil {
			return fmt.Errorf("insert function %s: %w", fn.Key, err)
		}
	}
	return nil
}
