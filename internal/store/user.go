package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/academy/internal/model"
)

const userColumns = `id, public_id, username, display_name, governorate, password_hash, role, active, created_at`

// CreateUser inserts a new user. Users with a governorate get a public id
// drawn from that governorate's sequence.
func (q *Queries) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Governorate != "" && u.PublicID == "" {
		n, err := q.NextValue(ctx, u.Governorate)
		if err != nil {
			return model.User{}, err
		}
		u.PublicID = PublicID(u.Governorate, n)
	}
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.PublicID, u.Username, u.DisplayName, u.Governorate, u.PasswordHash, u.Role, u.Active, u.CreatedAt,
	)
	if err != nil {
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return model.User{}, existsOr(err, "user "+u.Username)
	}
	slog.Info("created user", "id", u.ID, "username", u.Username, "role", u.Role)
	return u, nil
}

// PublicID formats a governorate-scoped public id such as "CAI07".
func PublicID(governorate string, n int64) string {
	prefix := []rune(strings.ToUpper(strings.TrimSpace(governorate)))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s%02d", string(prefix), n)
}

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.PublicID, &u.Username, &u.DisplayName, &u.Governorate, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername returns a user by username, or nil if there is none.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(q.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUserByID returns a user by ID, or nil if there is none.
func (q *Queries) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(q.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// ListUsers returns all users.
func (q *Queries) ListUsers(ctx context.Context) ([]model.User, error) {
	return q.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, username`)
}

func (q *Queries) queryUsers(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ToggleUserActive flips the active flag on a user.
func (q *Queries) ToggleUserActive(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `UPDATE users SET active = NOT active WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFoundOr(sql.ErrNoRows, "user", id)
	}
	return nil
}

// UserCount returns the total number of users.
func (q *Queries) UserCount(ctx context.Context) (int, error) {
	var count int
	err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CreateSession opens a login session for userID that expires ttl after now.
func (q *Queries) CreateSession(ctx context.Context, userID string, now time.Time, ttl time.Duration) (model.AuthSession, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return model.AuthSession{}, fmt.Errorf("session token: %w", err)
	}
	sess := model.AuthSession{
		ID:        base64.RawURLEncoding.EncodeToString(b),
		UserID:    userID,
		CreatedAt: now.UTC(),
		ExpiresAt: now.UTC().Add(ttl),
	}
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.CreatedAt, sess.ExpiresAt,
	)
	if err != nil {
		return model.AuthSession{}, err
	}
	return sess, nil
}

// SessionUser returns the active user behind a session token that is still
// live at now, or nil.
func (q *Queries) SessionUser(ctx context.Context, token string, now time.Time) (*model.User, error) {
	u, err := scanUser(q.q.QueryRowContext(ctx,
		`SELECT `+prefixed("u.", userColumns)+`
		 FROM auth_sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.id = ? AND s.expires_at > ? AND u.active = 1`,
		token, now.UTC()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// DeleteSession ends a session. Unknown tokens are ignored.
func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	_, err := q.q.ExecContext(ctx, `DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// DeleteExpiredSessions removes sessions that expired by now and reports how
// many were removed.
func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.q.ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
