package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/model"
)

const couponColumns = `id, name, discount, commission, course_id, usage_count, created_at`

// CreateCoupon inserts a coupon. Names are unique.
func (q *Queries) CreateCoupon(ctx context.Context, c model.Coupon) (model.Coupon, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO coupons (`+couponColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Discount, c.Commission, c.CourseID, c.UsageCount, c.CreatedAt,
	)
	if err != nil {
		return c, existsOr(err, "coupon "+c.Name)
	}
	slog.Info("created coupon", "id", c.ID, "name", c.Name)
	return c, nil
}

func scanCoupon(row interface{ Scan(...any) error }) (model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(&c.ID, &c.Name, &c.Discount, &c.Commission, &c.CourseID, &c.UsageCount, &c.CreatedAt)
	return c, err
}

// GetCouponByName returns a coupon by name, or nil if there is none.
func (q *Queries) GetCouponByName(ctx context.Context, name string) (*model.Coupon, error) {
	c, err := scanCoupon(q.q.QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCoupon returns a coupon by ID.
func (q *Queries) GetCoupon(ctx context.Context, id string) (model.Coupon, error) {
	c, err := scanCoupon(q.q.QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE id = ?`, id))
	return c, notFoundOr(err, "coupon", id)
}

// UseCoupon increments the usage count and records the student in the
// coupon's used-by set. The set insert is a no-op for a returning student.
func (q *Queries) UseCoupon(ctx context.Context, couponID, studentID string) error {
	if _, err := q.q.ExecContext(ctx,
		`UPDATE coupons SET usage_count = usage_count + 1 WHERE id = ?`, couponID); err != nil {
		return err
	}
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO coupon_users (coupon_id, student_id) VALUES (?, ?)
		 ON CONFLICT(coupon_id, student_id) DO NOTHING`,
		couponID, studentID,
	)
	return err
}

// CouponUsers returns the students who used a coupon.
func (q *Queries) CouponUsers(ctx context.Context, couponID string) ([]model.User, error) {
	return q.queryUsers(ctx,
		`SELECT `+prefixed("u.", userColumns)+` FROM users u
		 JOIN coupon_users cu ON cu.student_id = u.id
		 WHERE cu.coupon_id = ? ORDER BY u.username`, couponID)
}

const accessCodeColumns = `id, code, course_id, discount, valid_from, valid_to, usage_count, max_uses, created_at`

// CreateAccessCode inserts an access code. Codes are unique.
func (q *Queries) CreateAccessCode(ctx context.Context, a model.AccessCode) (model.AccessCode, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO access_codes (`+accessCodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Code, a.CourseID, a.Discount, a.ValidFrom, a.ValidTo, a.UsageCount, a.MaxUses, a.CreatedAt,
	)
	if err != nil {
		return a, existsOr(err, "access code "+a.Code)
	}
	slog.Info("created access code", "id", a.ID, "course", a.CourseID)
	return a, nil
}

// GetAccessCode returns an access code by its code, or nil if there is none.
func (q *Queries) GetAccessCode(ctx context.Context, code string) (*model.AccessCode, error) {
	var a model.AccessCode
	err := q.q.QueryRowContext(ctx,
		`SELECT `+accessCodeColumns+` FROM access_codes WHERE code = ?`, code,
	).Scan(&a.ID, &a.Code, &a.CourseID, &a.Discount, &a.ValidFrom, &a.ValidTo, &a.UsageCount, &a.MaxUses, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UseAccessCode increments the usage count while it is below the cap. It
// fails with apperr.ErrUsageLimitReached when the cap was reached meanwhile.
func (q *Queries) UseAccessCode(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE access_codes SET usage_count = usage_count + 1 WHERE id = ? AND usage_count < max_uses`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrUsageLimitReached
	}
	return nil
}
