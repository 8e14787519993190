package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Question is a single multiple-choice question embedded in an exam.
type Question struct {
	ID            string          `json:"id"`
	Text          string          `json:"text"`
	Image         string          `json:"image,omitempty"`
	Options       []string        `json:"options"`
	CorrectAnswer string          `json:"correct_answer"`
	Score         decimal.Decimal `json:"score"`
}

// Exam is a timed set of questions owned by a lesson.
type Exam struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Image     string     `json:"image,omitempty"`
	LessonID  string     `json:"lesson_id"`
	Duration  int        `json:"duration"` // minutes
	Questions []Question `json:"questions"`
}

// Question returns the question with the given id.
func (e Exam) Question(id string) (Question, bool) {
	for _, q := range e.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Answer is a student's recorded answer to one question.
type Answer struct {
	QuestionID string          `json:"question_id"`
	Answer     string          `json:"answer"`
	Score      decimal.Decimal `json:"score"`
}

// AttemptRecord is the history entry of one timed attempt.
type AttemptRecord struct {
	AttemptNumber int             `json:"attempt_number"`
	Score         decimal.Decimal `json:"score"`
	Percentage    decimal.Decimal `json:"percentage"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	Duration      decimal.Decimal `json:"duration"` // minutes
}

// StudentExam tracks one student's attempts at one exam.
type StudentExam struct {
	ID             string          `json:"id"`
	ExamID         string          `json:"exam_id"`
	StudentID      string          `json:"student_id"`
	Answers        []Answer        `json:"answers"`
	Finished       bool            `json:"finished"`
	AttemptCount   int             `json:"attempt_count"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	TotalScore     decimal.Decimal `json:"total_score"`
	Percentage     decimal.Decimal `json:"percentage"`
	AttemptRecords []AttemptRecord `json:"attempt_records"`
}

// CurrentAttempt returns the latest attempt record, or nil.
func (se *StudentExam) CurrentAttempt() *AttemptRecord {
	if len(se.AttemptRecords) == 0 {
		return nil
	}
	return &se.AttemptRecords[len(se.AttemptRecords)-1]
}

// StudentExamStats aggregates a student's exam activity.
type StudentExamStats struct {
	TotalExams         int             `json:"total_exams"`
	TotalAttempts      int             `json:"total_attempts"`
	TotalFinished      int             `json:"total_finished"`
	AverageScore       decimal.Decimal `json:"average_score"`
	AveragePercentage  decimal.Decimal `json:"average_percentage"`
	PercentageFinished decimal.Decimal `json:"percentage_finished"`
}

// ExamStats aggregates all students' activity on one exam.
type ExamStats struct {
	ExamID string `json:"exam_id"`
	Title  string `json:"title"`
	StudentExamStats
}
