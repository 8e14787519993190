package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/pavelanni/academy/internal/model"
)

const studentExamColumns = `id, exam_id, student_id, finished, attempt_count, start_time, end_time,
	total_score, percentage, answers, attempt_records`

func scanStudentExam(row interface{ Scan(...any) error }) (model.StudentExam, error) {
	var se model.StudentExam
	var answers, records string
	err := row.Scan(&se.ID, &se.ExamID, &se.StudentID, &se.Finished, &se.AttemptCount, &se.StartTime, &se.EndTime,
		&se.TotalScore, &se.Percentage, &answers, &records)
	if err != nil {
		return se, err
	}
	if err := unmarshalDoc(answers, &se.Answers); err != nil {
		return se, err
	}
	err = unmarshalDoc(records, &se.AttemptRecords)
	return se, err
}

// GetStudentExam returns the attempt document for (exam, student).
func (q *Queries) GetStudentExam(ctx context.Context, examID, studentID string) (model.StudentExam, error) {
	se, err := scanStudentExam(q.q.QueryRowContext(ctx,
		`SELECT `+studentExamColumns+` FROM student_exams WHERE exam_id = ? AND student_id = ?`,
		examID, studentID))
	return se, notFoundOr(err, "student exam", examID)
}

// InsertStudentExam creates the attempt document. A second document for the
// same (exam, student) fails with apperr.ErrConflict.
func (q *Queries) InsertStudentExam(ctx context.Context, se model.StudentExam) (model.StudentExam, error) {
	if se.ID == "" {
		se.ID = uuid.NewString()
	}
	answers, err := marshalDoc(nonNilAnswers(se.Answers))
	if err != nil {
		return se, err
	}
	records, err := marshalDoc(se.AttemptRecords)
	if err != nil {
		return se, err
	}
	_, err = q.q.ExecContext(ctx,
		`INSERT INTO student_exams (`+studentExamColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		se.ID, se.ExamID, se.StudentID, boolToInt(se.Finished), se.AttemptCount, se.StartTime, se.EndTime,
		se.TotalScore, se.Percentage, answers, records,
	)
	if err != nil {
		return se, conflictOr(err, "student exam")
	}
	return se, nil
}

// UpdateStudentExam overwrites the mutable fields of the attempt document.
func (q *Queries) UpdateStudentExam(ctx context.Context, se model.StudentExam) error {
	answers, err := marshalDoc(nonNilAnswers(se.Answers))
	if err != nil {
		return err
	}
	records, err := marshalDoc(se.AttemptRecords)
	if err != nil {
		return err
	}
	_, err = q.q.ExecContext(ctx,
		`UPDATE student_exams SET finished = ?, attempt_count = ?, start_time = ?, end_time = ?,
		 total_score = ?, percentage = ?, answers = ?, attempt_records = ?
		 WHERE id = ?`,
		boolToInt(se.Finished), se.AttemptCount, se.StartTime, se.EndTime,
		se.TotalScore, se.Percentage, answers, records, se.ID,
	)
	return err
}

// ListStudentExams returns a page of a student's attempt documents and the
// total count.
func (q *Queries) ListStudentExams(ctx context.Context, studentID string, page model.Page) ([]model.StudentExam, int, error) {
	var total int
	if err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM student_exams WHERE student_id = ?`, studentID).Scan(&total); err != nil {
		return nil, 0, err
	}
	list, err := q.queryStudentExams(ctx,
		`SELECT `+studentExamColumns+` FROM student_exams WHERE student_id = ? ORDER BY start_time DESC, id LIMIT ? OFFSET ?`,
		studentID, page.Limit, page.Offset())
	return list, total, err
}

// AllStudentExams returns every attempt document of a student.
func (q *Queries) AllStudentExams(ctx context.Context, studentID string) ([]model.StudentExam, error) {
	return q.queryStudentExams(ctx,
		`SELECT `+studentExamColumns+` FROM student_exams WHERE student_id = ? ORDER BY start_time, id`, studentID)
}

// StudentExamsForExam returns every student's attempt document for an exam.
func (q *Queries) StudentExamsForExam(ctx context.Context, examID string) ([]model.StudentExam, error) {
	return q.queryStudentExams(ctx,
		`SELECT `+studentExamColumns+` FROM student_exams WHERE exam_id = ? ORDER BY start_time, id`, examID)
}

func (q *Queries) queryStudentExams(ctx context.Context, query string, args ...any) ([]model.StudentExam, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []model.StudentExam
	for rows.Next() {
		se, err := scanStudentExam(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, se)
	}
	return list, rows.Err()
}

func nonNilAnswers(a []model.Answer) []model.Answer {
	if a == nil {
		return []model.Answer{}
	}
	return a
}
