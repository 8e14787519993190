package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pavelanni/academy/internal/apperr"

	_ "modernc.org/sqlite"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds every data-access method. It runs either directly against
// the database or inside a transaction.
type Queries struct {
	q querier
}

// Store is the SQLite-backed document store.
type Store struct {
	Queries
	db *sql.DB
}

// Tx is a transaction-scoped view of the store.
type Tx struct {
	Queries
}

func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps ":memory:"
	// databases shared across calls.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{Queries: Queries{q: db}, db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InTx runs fn inside a transaction. Only the Tx passed to fn may be used
// while it runs.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{Queries: Queries{q: sqlTx}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		public_id TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		governorate TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'student',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS sequences (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		price TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS doors (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL,
		title TEXT NOT NULL,
		price TEXT NOT NULL DEFAULT '0',
		position INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (course_id) REFERENCES courses(id)
	);

	CREATE TABLE IF NOT EXISTS lessons (
		id TEXT PRIMARY KEY,
		door_id TEXT NOT NULL,
		title TEXT NOT NULL,
		FOREIGN KEY (door_id) REFERENCES doors(id)
	);

	CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		lesson_id TEXT NOT NULL,
		title TEXT NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 0,
		questions TEXT NOT NULL DEFAULT '[]',
		FOREIGN KEY (lesson_id) REFERENCES lessons(id)
	);

	CREATE TABLE IF NOT EXISTS student_exams (
		id TEXT PRIMARY KEY,
		exam_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		finished INTEGER NOT NULL DEFAULT 0,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		total_score TEXT NOT NULL DEFAULT '0',
		percentage TEXT NOT NULL DEFAULT '0',
		answers TEXT NOT NULL DEFAULT '[]',
		attempt_records TEXT NOT NULL DEFAULT '[]',
		UNIQUE (exam_id, student_id),
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		door_id TEXT NOT NULL DEFAULT '',
		course_id TEXT NOT NULL DEFAULT '',
		target_kind TEXT NOT NULL,
		target_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		coupon_code TEXT NOT NULL DEFAULT '',
		access_code TEXT NOT NULL DEFAULT '',
		final_price TEXT NOT NULL DEFAULT '0',
		doors TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS orders_active_target
		ON orders (student_id, target_kind, target_id)
		WHERE status IN ('pending', 'approved');

	CREATE TABLE IF NOT EXISTS coupons (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		discount TEXT NOT NULL DEFAULT '0',
		commission TEXT NOT NULL DEFAULT '0',
		course_id TEXT NOT NULL DEFAULT '',
		usage_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS coupon_users (
		coupon_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		PRIMARY KEY (coupon_id, student_id)
	);

	CREATE TABLE IF NOT EXISTS access_codes (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		course_id TEXT NOT NULL,
		discount TEXT NOT NULL DEFAULT '0',
		valid_from DATETIME NOT NULL,
		valid_to DATETIME NOT NULL,
		usage_count INTEGER NOT NULL DEFAULT 0,
		max_uses INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		CHECK (usage_count <= max_uses)
	);

	CREATE TABLE IF NOT EXISTS redemptions (
		order_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		code TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (order_id, kind)
	);

	CREATE TABLE IF NOT EXISTS entitlement_courses (
		student_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		granted_at DATETIME NOT NULL,
		PRIMARY KEY (student_id, course_id)
	);

	CREATE TABLE IF NOT EXISTS lesson_progress (
		student_id TEXT NOT NULL,
		lesson_id TEXT NOT NULL,
		views INTEGER NOT NULL DEFAULT 0,
		first_viewed_at DATETIME NOT NULL,
		last_viewed_at DATETIME NOT NULL,
		PRIMARY KEY (student_id, lesson_id),
		FOREIGN KEY (lesson_id) REFERENCES lessons(id)
	);

	CREATE TABLE IF NOT EXISTS entitlement_doors (
		student_id TEXT NOT NULL,
		door_id TEXT NOT NULL,
		via_course_id TEXT NOT NULL DEFAULT '',
		granted_at DATETIME NOT NULL,
		PRIMARY KEY (student_id, door_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// isUniqueViolation reports whether err comes from a UNIQUE or PRIMARY KEY
// constraint.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}

// conflictOr maps unique violations to apperr.ErrConflict.
func conflictOr(err error, what string) error {
	if isUniqueViolation(err) {
		return apperr.ErrConflict.With("%s already exists", what).Wrap(err)
	}
	return err
}

// existsOr maps unique violations on a natural key to apperr.ErrAlreadyExists.
func existsOr(err error, what string) error {
	if isUniqueViolation(err) {
		return apperr.ErrAlreadyExists.With("%s already exists", what).Wrap(err)
	}
	return err
}

// notFoundOr maps sql.ErrNoRows to apperr.ErrNotFound.
func notFoundOr(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound.With("%s %q not found", what, id)
	}
	return err
}

func marshalDoc(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

func unmarshalDoc(s string, v any) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
