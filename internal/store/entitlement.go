package store

import (
	"context"
	"strings"
	"time"

	"github.com/pavelanni/academy/internal/model"
)

// GrantCourse records a course entitlement. It reports whether the course
// was newly added.
func (q *Queries) GrantCourse(ctx context.Context, studentID, courseID string, at time.Time) (bool, error) {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO entitlement_courses (student_id, course_id, granted_at) VALUES (?, ?, ?)
		 ON CONFLICT(student_id, course_id) DO NOTHING`,
		studentID, courseID, at,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// GrantDoor records a door entitlement, tagged with the course it came
// through (empty for a direct purchase). An existing grant is kept as is.
func (q *Queries) GrantDoor(ctx context.Context, studentID, doorID, viaCourseID string, at time.Time) (bool, error) {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO entitlement_doors (student_id, door_id, via_course_id, granted_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(student_id, door_id) DO NOTHING`,
		studentID, doorID, viaCourseID, at,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// HasDoor reports whether the student holds a door entitlement.
func (q *Queries) HasDoor(ctx context.Context, studentID, doorID string) (bool, error) {
	var n int
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entitlement_doors WHERE student_id = ? AND door_id = ?`,
		studentID, doorID,
	).Scan(&n)
	return n > 0, err
}

// GetEntitlement returns the student's course and door sets. A student with
// no grants gets empty sets.
func (q *Queries) GetEntitlement(ctx context.Context, studentID string) (model.Entitlement, error) {
	ent := model.Entitlement{StudentID: studentID}
	var err error
	ent.Courses, err = q.queryIDs(ctx,
		`SELECT course_id FROM entitlement_courses WHERE student_id = ? ORDER BY granted_at, course_id`, studentID)
	if err != nil {
		return ent, err
	}
	ent.Doors, err = q.queryIDs(ctx,
		`SELECT door_id FROM entitlement_doors WHERE student_id = ? ORDER BY granted_at, door_id`, studentID)
	return ent, err
}

func (q *Queries) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// prefixed qualifies every column of a comma separated list.
func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
