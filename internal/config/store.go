package config

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/phdlabs/admind/internal/table"
)

// Options selects the database behind the store. With an empty DSN the
// SQLite database lives in DataDir, or in memory when DataDir is empty too.
type Options struct {
	Driver  string
	DSN     string
	DataDir string
}

// Store persists admins, admin types, privileges, users, activity logs,
// refresh tokens, settings, assessments, reports and policies.
type Store struct {
	db      *sqlx.DB
	dialect dialect
	sb      sq.StatementBuilderType
}

// NewStore opens the SQLite store in dataDir. Pass empty string for in-memory.
func NewStore(dataDir string) (*Store, error) {
	return Open(Options{Driver: "sqlite", DataDir: dataDir})
}

// Open connects to the configured database and applies migrations.
func Open(opts Options) (*Store, error) {
	d, err := lookupDialect(opts.Driver)
	if err != nil {
		return nil, err
	}

	dsn := opts.DSN
	if d.name == "sqlite" && dsn == "" {
		if opts.DataDir == "" {
			dsn = ":memory:?_journal_mode=WAL"
		} else {
			if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(opts.DataDir, "admind.db") + "?_journal_mode=WAL&_busy_timeout=5000"
		}
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s driver requires a dsn", d.name)
	}

	db, err := sqlx.Connect(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if d.name == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

		// Enable foreign keys (off by default in SQLite).
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	s := &Store{
		db:      db,
		dialect: d,
		sb:      sq.StatementBuilder.PlaceholderFormat(d.ph),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if err := s.seedFunctions(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed functions: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the name of the active dialect.
func (s *Store) Driver() string {
	return s.dialect.name
}

// ---------------------------------------------------------------------------
// Query helpers
// ---------------------------------------------------------------------------

func (s *Store) get(ctx context.Context, q sqlx.QueryerContext, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := sqlx.GetContext(ctx, q, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) selectAll(ctx context.Context, q sqlx.QueryerContext, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

func (s *Store) exec(ctx context.Context, e sqlx.ExecerContext, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return e.ExecContext(ctx, query, args...)
}

// execAffected runs b and maps zero affected rows to ErrNotFound.
func (s *Store) execAffected(ctx context.Context, e sqlx.ExecerContext, b sq.Sqlizer) error {
	res, err := s.exec(ctx, e, b)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// insert runs b and returns the id of the new row.
func (s *Store) insert(ctx context.Context, q sqlx.ExtContext, b sq.InsertBuilder) (int64, error) {
	if s.dialect.returning {
		query, args, err := b.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, fmt.Errorf("build query: %w", err)
		}
		var id int64
		if err := q.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := s.exec(ctx, q, b)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// count runs a COUNT(*) query.
func (s *Store) count(ctx context.Context, from string, where sq.Sqlizer) (int64, error) {
	b := s.sb.Select("COUNT(*)").From(from)
	if where != nil {
		b = b.Where(where)
	}
	var n int64
	if err := s.get(ctx, s.db, &n, b); err != nil {
		return 0, err
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Lists
// ---------------------------------------------------------------------------

// listSpec describes how a list view maps onto a table.
type listSpec struct {
	from        string
	columns     []string
	search      []string          // columns matched by the search term
	sortable    map[string]string // sortBy parameter -> column
	filters     map[string]func(string) (sq.Sqlizer, error)
	defaultSort string
	where       sq.Sqlizer // always applied
}

// SortKeys returns the accepted sortBy values.
func (l listSpec) SortKeys() []string {
	keys := make([]string, 0, len(l.sortable))
	for k := range l.sortable {
		keys = append(keys, k)
	}
	return keys
}

// FilterKeys returns the accepted filter parameters.
func (l listSpec) FilterKeys() []string {
	keys := make([]string, 0, len(l.filters))
	for k := range l.filters {
		keys = append(keys, k)
	}
	return keys
}

// list selects one page of rows into dest and returns the filtered total.
func (s *Store) list(ctx context.Context, spec listSpec, st *table.State, dest interface{}) (int64, error) {
	cond := sq.And{}
	if spec.where != nil {
		cond = append(cond, spec.where)
	}
	if st.Term != "" && len(spec.search) > 0 {
		or := sq.Or{}
		for _, col := range spec.search {
			or = append(or, s.dialect.like(col, st.Term))
		}
		cond = append(cond, or)
	}
	for key, value := range st.Filters {
		build, ok := spec.filters[key]
		if !ok {
			continue
		}
		c, err := build(value)
		if err != nil {
			return 0, fmt.Errorf("filter %s: %w", key, err)
		}
		cond = append(cond, c)
	}

	total, err := s.count(ctx, spec.from, cond)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	order := spec.defaultSort
	if col, ok := spec.sortable[st.SortBy]; ok {
		dir := "ASC"
		if st.SortDirection == table.Desc {
			dir = "DESC"
		}
		order = col + " " + dir
	}

	b := s.sb.Select(spec.columns...).From(spec.from).Where(cond).
		Limit(uint64(st.PageSize)).Offset(uint64(st.Offset()))
	if order != "" {
		b = b.OrderBy(order)
	}
	if err := s.selectAll(ctx, s.db, dest, b); err != nil {
		return 0, err
	}
	return total, nil
}

func boolFilter(column string) func(string) (sq.Sqlizer, error) {
	return func(v string) (sq.Sqlizer, error) {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			return sq.Eq{column: true}, nil
		case "false", "0", "no":
			return sq.Eq{column: false}, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", v)
	}
}

func eqFilter(column string) func(string) (sq.Sqlizer, error) {
	return func(v string) (sq.Sqlizer, error) {
		return sq.Eq{column: v}, nil
	}
}

// ---------------------------------------------------------------------------
// Token hashing
// ---------------------------------------------------------------------------

// HashToken returns the hex-encoded SHA-256 hash of a raw token string.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
