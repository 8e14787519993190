package store

import (
	"context"
	"time"

	"github.com/pavelanni/academy/internal/model"
)

// RecordLessonView counts one more view of a lesson and returns the updated
// record.
func (q *Queries) RecordLessonView(ctx context.Context, studentID, lessonID string, at time.Time) (model.LessonView, error) {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO lesson_progress (student_id, lesson_id, views, first_viewed_at, last_viewed_at)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT(student_id, lesson_id) DO UPDATE SET
		 	views = views + 1,
		 	last_viewed_at = excluded.last_viewed_at`,
		studentID, lessonID, at, at,
	)
	if err != nil {
		return model.LessonView{}, err
	}
	return q.GetLessonView(ctx, studentID, lessonID)
}

// GetLessonView returns the student's viewing record for a lesson.
func (q *Queries) GetLessonView(ctx context.Context, studentID, lessonID string) (model.LessonView, error) {
	v := model.LessonView{StudentID: studentID, LessonID: lessonID}
	err := q.q.QueryRowContext(ctx,
		`SELECT views, first_viewed_at, last_viewed_at FROM lesson_progress
		 WHERE student_id = ? AND lesson_id = ?`,
		studentID, lessonID,
	).Scan(&v.Views, &v.FirstViewedAt, &v.LastViewedAt)
	return v, notFoundOr(err, "lesson view", lessonID)
}

// LessonProgressCounts returns the number of lessons in the student's
// entitled doors and how many of those the student has viewed.
func (q *Queries) LessonProgressCounts(ctx context.Context, studentID string) (seen, total int, err error) {
	err = q.q.QueryRowContext(ctx,
		`SELECT COUNT(l.id), COUNT(p.lesson_id)
		 FROM entitlement_doors e
		 JOIN lessons l ON l.door_id = e.door_id
		 LEFT JOIN lesson_progress p ON p.lesson_id = l.id AND p.student_id = e.student_id
		 WHERE e.student_id = ?`,
		studentID,
	).Scan(&total, &seen)
	return seen, total, err
}
