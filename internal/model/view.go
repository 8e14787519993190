package model

import (
	"strings"
	"time"
)

// PublicQuestion is a question as shown to a student.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Image   string   `json:"image,omitempty"`
	Options []string `json:"options"`
	Score   string   `json:"score"`
}

// PublicExam is an exam without its answer key.
type PublicExam struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Image     string           `json:"image,omitempty"`
	LessonID  string           `json:"lesson_id"`
	Duration  int              `json:"duration"`
	Questions []PublicQuestion `json:"questions"`
}

// PublicAttempt is an attempt record with fixed-point numbers.
type PublicAttempt struct {
	AttemptNumber int       `json:"attempt_number"`
	Score         string    `json:"score"`
	Percentage    string    `json:"percentage"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Duration      string    `json:"duration"`
}

// PublicStudentExam is a student's progress on an exam.
type PublicStudentExam struct {
	ExamID         string          `json:"exam_id"`
	StudentID      string          `json:"student_id"`
	Answers        []Answer        `json:"answers"`
	Finished       bool            `json:"finished"`
	AttemptCount   int             `json:"attempt_count"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	TotalScore     string          `json:"total_score"`
	Percentage     string          `json:"percentage"`
	AttemptRecords []PublicAttempt `json:"attempt_records"`
}

// ExamView combines an exam with the student's progress on it.
type ExamView struct {
	Exam     PublicExam         `json:"exam"`
	Progress *PublicStudentExam `json:"progress,omitempty"`
}

// ImageURL maps a stored image name to its public URL. Absolute URLs and
// names already carrying the base are returned unchanged.
func ImageURL(baseURL, dir, name string) string {
	if name == "" || baseURL == "" {
		return name
	}
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") || strings.HasPrefix(name, baseURL) {
		return name
	}
	return strings.TrimRight(baseURL, "/") + "/uploads/" + dir + "/" + name
}

// ToPublicExam maps an exam to its student-facing view.
func ToPublicExam(e Exam, baseURL string) PublicExam {
	pe := PublicExam{
		ID:        e.ID,
		Title:     e.Title,
		Image:     ImageURL(baseURL, "exams", e.Image),
		LessonID:  e.LessonID,
		Duration:  e.Duration,
		Questions: make([]PublicQuestion, 0, len(e.Questions)),
	}
	for _, q := range e.Questions {
		pe.Questions = append(pe.Questions, PublicQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Image:   ImageURL(baseURL, "exams", q.Image),
			Options: q.Options,
			Score:   q.Score.String(),
		})
	}
	return pe
}

// ToPublicStudentExam renders scores and percentages with two decimals.
func ToPublicStudentExam(se StudentExam) PublicStudentExam {
	p := PublicStudentExam{
		ExamID:         se.ExamID,
		StudentID:      se.StudentID,
		Answers:        se.Answers,
		Finished:       se.Finished,
		AttemptCount:   se.AttemptCount,
		StartTime:      se.StartTime,
		EndTime:        se.EndTime,
		TotalScore:     se.TotalScore.String(),
		Percentage:     se.Percentage.StringFixed(2),
		AttemptRecords: make([]PublicAttempt, 0, len(se.AttemptRecords)),
	}
	if p.Answers == nil {
		p.Answers = []Answer{}
	}
	for _, r := range se.AttemptRecords {
		p.AttemptRecords = append(p.AttemptRecords, PublicAttempt{
			AttemptNumber: r.AttemptNumber,
			Score:         r.Score.String(),
			Percentage:    r.Percentage.StringFixed(2),
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			Duration:      r.Duration.StringFixed(2),
		})
	}
	return p
}
