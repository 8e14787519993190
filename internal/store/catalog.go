package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pavelanni/academy/internal/model"
)

// UpsertCourse inserts or replaces a course row.
func (q *Queries) UpsertCourse(ctx context.Context, c model.Course) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO courses (id, title, price) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, price = excluded.price`,
		c.ID, c.Title, c.Price,
	)
	return err
}

// UpsertDoor inserts or replaces a door row.
func (q *Queries) UpsertDoor(ctx context.Context, d model.Door, position int) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO doors (id, course_id, title, price, position) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET course_id = excluded.course_id, title = excluded.title,
		 price = excluded.price, position = excluded.position`,
		d.ID, d.CourseID, d.Title, d.Price, position,
	)
	return err
}

// UpsertLesson inserts or replaces a lesson row.
func (q *Queries) UpsertLesson(ctx context.Context, l model.Lesson) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO lessons (id, door_id, title) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET door_id = excluded.door_id, title = excluded.title`,
		l.ID, l.DoorID, l.Title,
	)
	return err
}

// ImportCatalog writes every course, door and lesson of a catalog file.
// Entries without ids get fresh ones. It returns the number of courses,
// doors and lessons written.
func (q *Queries) ImportCatalog(ctx context.Context, cat model.CatalogImport) (courses, doors, lessons int, err error) {
	for _, ci := range cat.Courses {
		if ci.ID == "" {
			ci.ID = uuid.NewString()
		}
		if err := q.UpsertCourse(ctx, model.Course{ID: ci.ID, Title: ci.Title, Price: ci.Price}); err != nil {
			return courses, doors, lessons, fmt.Errorf("course %q: %w", ci.Title, err)
		}
		courses++
		for pos, di := range ci.Doors {
			if di.ID == "" {
				di.ID = uuid.NewString()
			}
			d := model.Door{ID: di.ID, CourseID: ci.ID, Title: di.Title, Price: di.Price}
			if err := q.UpsertDoor(ctx, d, pos); err != nil {
				return courses, doors, lessons, fmt.Errorf("door %q: %w", di.Title, err)
			}
			doors++
			for _, l := range di.Lessons {
				if l.ID == "" {
					l.ID = uuid.NewString()
				}
				l.DoorID = di.ID
				if err := q.UpsertLesson(ctx, l); err != nil {
					return courses, doors, lessons, fmt.Errorf("lesson %q: %w", l.Title, err)
				}
				lessons++
			}
		}
	}
	return courses, doors, lessons, nil
}

// GetCourse returns a course with its doors in catalog order.
func (q *Queries) GetCourse(ctx context.Context, id string) (model.Course, error) {
	var c model.Course
	err := q.q.QueryRowContext(ctx, `SELECT id, title, price FROM courses WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.Price)
	if err != nil {
		return c, notFoundOr(err, "course", id)
	}
	c.DoorIDs, err = q.CourseDoorIDs(ctx, id)
	return c, err
}

// CourseDoorIDs returns the ids of the doors a course currently contains.
func (q *Queries) CourseDoorIDs(ctx context.Context, courseID string) ([]string, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id FROM doors WHERE course_id = ? ORDER BY position, id`, courseID)
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

// GetDoor returns a door by ID.
func (q *Queries) GetDoor(ctx context.Context, id string) (model.Door, error) {
	var d model.Door
	err := q.q.QueryRowContext(ctx, `SELECT id, course_id, title, price FROM doors WHERE id = ?`, id).
		Scan(&d.ID, &d.CourseID, &d.Title, &d.Price)
	return d, notFoundOr(err, "door", id)
}

// GetLesson returns a lesson by ID.
func (q *Queries) GetLesson(ctx context.Context, id string) (model.Lesson, error) {
	var l model.Lesson
	err := q.q.QueryRowContext(ctx, `SELECT id, door_id, title FROM lessons WHERE id = ?`, id).
		Scan(&l.ID, &l.DoorID, &l.Title)
	return l, notFoundOr(err, "lesson", id)
}

// CreateExam stores a new exam. Questions without ids get fresh ones.
func (q *Queries) CreateExam(ctx context.Context, e model.Exam) (model.Exam, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Questions == nil {
		e.Questions = []model.Question{}
	}
	for i := range e.Questions {
		if e.Questions[i].ID == "" {
			e.Questions[i].ID = uuid.NewString()
		}
	}
	doc, err := marshalDoc(e.Questions)
	if err != nil {
		return e, err
	}
	_, err = q.q.ExecContext(ctx,
		`INSERT INTO exams (id, lesson_id, title, image, duration, questions) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.LessonID, e.Title, e.Image, e.Duration, doc,
	)
	if err != nil {
		return e, existsOr(err, "exam "+e.ID)
	}
	return e, nil
}

// GetExam returns an exam with its questions.
func (q *Queries) GetExam(ctx context.Context, id string) (model.Exam, error) {
	var e model.Exam
	var doc string
	err := q.q.QueryRowContext(ctx,
		`SELECT id, lesson_id, title, image, duration, questions FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.LessonID, &e.Title, &e.Image, &e.Duration, &doc)
	if err != nil {
		return e, notFoundOr(err, "exam", id)
	}
	err = unmarshalDoc(doc, &e.Questions)
	return e, err
}

// SaveExamQuestions replaces the question list of an exam.
func (q *Queries) SaveExamQuestions(ctx context.Context, examID string, questions []model.Question) error {
	doc, err := marshalDoc(questions)
	if err != nil {
		return err
	}
	_, err = q.q.ExecContext(ctx, `UPDATE exams SET questions = ? WHERE id = ?`, doc, examID)
	return err
}

// ListExamsByLesson returns the exams owned by a lesson.
func (q *Queries) ListExamsByLesson(ctx context.Context, lessonID string) ([]model.Exam, error) {
	return q.queryExams(ctx,
		`SELECT id, lesson_id, title, image, duration, questions FROM exams WHERE lesson_id = ? ORDER BY title, id`, lessonID)
}

func (q *Queries) queryExams(ctx context.Context, query string, args ...any) ([]model.Exam, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		var doc string
		if err := rows.Scan(&e.ID, &e.LessonID, &e.Title, &e.Image, &e.Duration, &doc); err != nil {
			return nil, err
		}
		if err := unmarshalDoc(doc, &e.Questions); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}
