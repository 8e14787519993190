package store

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/model"
)

const orderColumns = `id, student_id, door_id, course_id, status, coupon_code, access_code, final_price, doors, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (model.Order, error) {
	var o model.Order
	var doors string
	err := row.Scan(&o.ID, &o.StudentID, &o.DoorID, &o.CourseID, &o.Status, &o.CouponCode, &o.AccessCode,
		&o.FinalPrice, &doors, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	err = unmarshalDoc(doors, &o.Doors)
	return o, err
}

// InsertOrder stores a new order. A second active order for the same
// (student, target) fails with apperr.ErrDuplicateOrder.
func (q *Queries) InsertOrder(ctx context.Context, o model.Order) error {
	doors := o.Doors
	if doors == nil {
		doors = []string{}
	}
	doc, err := marshalDoc(doors)
	if err != nil {
		return err
	}
	kind, target := o.Target()
	_, err = q.q.ExecContext(ctx,
		`INSERT INTO orders (id, student_id, door_id, course_id, target_kind, target_id, status,
		 coupon_code, access_code, final_price, doors, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.StudentID, o.DoorID, o.CourseID, kind, target, o.Status,
		o.CouponCode, o.AccessCode, o.FinalPrice, doc, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "orders.id") {
			return conflictOr(err, "order "+o.ID)
		}
		if isUniqueViolation(err) {
			return apperr.ErrDuplicateOrder.Wrap(err)
		}
		slog.Error("failed to insert order", "id", o.ID, "error", err)
		return err
	}
	return nil
}

// GetOrder returns an order by ID.
func (q *Queries) GetOrder(ctx context.Context, id string) (model.Order, error) {
	o, err := scanOrder(q.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	return o, notFoundOr(err, "order", id)
}

// FindOrderForTarget returns the student's order for a target in one of the
// given statuses, or nil.
func (q *Queries) FindOrderForTarget(ctx context.Context, studentID, kind, target string, statuses ...model.OrderStatus) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE student_id = ? AND target_kind = ? AND target_id = ?`
	args := []any{studentID, kind, target}
	if len(statuses) > 0 {
		query += ` AND status IN (`
		for i, st := range statuses {
			if i > 0 {
				query += `, `
			}
			query += `?`
			args = append(args, st)
		}
		query += `)`
	}
	query += ` ORDER BY created_at DESC LIMIT 1`
	o, err := scanOrder(q.q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// DeleteOrdersForTarget removes the student's orders for a target that are
// in the given status. It returns the number of deleted orders.
func (q *Queries) DeleteOrdersForTarget(ctx context.Context, studentID, kind, target string, status model.OrderStatus) (int64, error) {
	res, err := q.q.ExecContext(ctx,
		`DELETE FROM orders WHERE student_id = ? AND target_kind = ? AND target_id = ? AND status = ?`,
		studentID, kind, target, status)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateOrderStatus moves an order to a new status.
func (q *Queries) UpdateOrderStatus(ctx context.Context, o model.Order) error {
	_, err := q.q.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, o.Status, o.UpdatedAt, o.ID)
	if isUniqueViolation(err) {
		return apperr.ErrDuplicateOrder.Wrap(err)
	}
	return err
}

// ListOrders returns a page of all orders, newest first, and the total count.
func (q *Queries) ListOrders(ctx context.Context, page model.Page) ([]model.Order, int, error) {
	var total int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}
	list, err := q.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		page.Limit, page.Offset())
	return list, total, err
}

// ListStudentOrders returns a page of a student's orders and the total count.
func (q *Queries) ListStudentOrders(ctx context.Context, studentID string, page model.Page) ([]model.Order, int, error) {
	var total int
	if err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE student_id = ?`, studentID).Scan(&total); err != nil {
		return nil, 0, err
	}
	list, err := q.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE student_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		studentID, page.Limit, page.Offset())
	return list, total, err
}

// ListOrdersByCourse returns every order for a course.
func (q *Queries) ListOrdersByCourse(ctx context.Context, courseID string) ([]model.Order, error) {
	return q.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE course_id = ? ORDER BY created_at DESC, id`, courseID)
}

func (q *Queries) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// RecordRedemption marks a discount of the given kind as applied to an
// order. It reports false if the order already redeemed that kind.
func (q *Queries) RecordRedemption(ctx context.Context, orderID, kind, code string, at time.Time) (bool, error) {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO redemptions (order_id, kind, code, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(order_id, kind) DO NOTHING`,
		orderID, kind, code, at,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// RedeemedKinds returns the discount kinds already redeemed for an order.
func (q *Queries) RedeemedKinds(ctx context.Context, orderID string) (map[string]bool, error) {
	kinds, err := q.queryIDs(ctx, `SELECT kind FROM redemptions WHERE order_id = ?`, orderID)
	if err != nil {
		return nil, err
	}
	m := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m, nil
}
