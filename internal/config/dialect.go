package config

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// dialect captures what differs between the supported databases: the
// database/sql driver, placeholders, DDL column types and id retrieval.
type dialect struct {
	name      string
	driver    string
	ph        sq.PlaceholderFormat
	types     map[string]string
	returning bool     // INSERT ... RETURNING id instead of LastInsertId
	ilike     bool     // LIKE is case-sensitive, use ILIKE
	ignorable []string // migration errors meaning "already applied"
}

var dialects = map[string]dialect{
	"sqlite": {
		name:   "sqlite",
		driver: "sqlite",
		ph:     sq.Question,
		types: map[string]string{
			"pk": "INTEGER PRIMARY KEY AUTOINCREMENT", "str": "TEXT", "text": "TEXT",
			"bool": "INTEGER", "true": "1", "false": "0", "ts": "DATETIME",
			"bigint": "INTEGER", "real": "REAL", "ine": "IF NOT EXISTS",
		},
		ignorable: []string{"duplicate column"},
	},
	"postgres": {
		name:   "postgres",
		driver: "pgx",
		ph:     sq.Dollar,
		types: map[string]string{
			"pk": "BIGSERIAL PRIMARY KEY", "str": "VARCHAR(255)", "text": "TEXT",
			"bool": "BOOLEAN", "true": "TRUE", "false": "FALSE", "ts": "TIMESTAMPTZ",
			"bigint": "BIGINT", "real": "DOUBLE PRECISION", "ine": "IF NOT EXISTS",
		},
		returning: true,
		ilike:     true,
		ignorable: []string{"already exists"},
	},
	"mysql": {
		name:   "mysql",
		driver: "mysql",
		ph:     sq.Question,
		types: map[string]string{
			"pk": "BIGINT AUTO_INCREMENT PRIMARY KEY", "str": "VARCHAR(255)", "text": "TEXT",
			"bool": "BOOLEAN", "true": "TRUE", "false": "FALSE", "ts": "DATETIME",
			"bigint": "BIGINT", "real": "DOUBLE", "ine": "",
		},
		ignorable: []string{"Duplicate column", "Duplicate key name"},
	},
}

func lookupDialect(name string) (dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return dialects["sqlite"], nil
	case "postgres", "postgresql", "pgx":
		return dialects["postgres"], nil
	case "mysql", "mariadb":
		return dialects["mysql"], nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q", name)
}

// ddl expands {{type}} tokens in a migration statement.
func (d dialect) ddl(stmt string) string {
	for tok, typ := range d.types {
		stmt = strings.ReplaceAll(stmt, "{{"+tok+"}}", typ)
	}
	return stmt
}

// like matches column against a substring, case-insensitively.
func (d dialect) like(column, term string) sq.Sqlizer {
	pattern := "%" + term + "%"
	if d.ilike {
		return sq.ILike{column: pattern}
	}
	return sq.Like{column: pattern}
}
