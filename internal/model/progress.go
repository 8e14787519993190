package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LessonView is a student's viewing record for one lesson.
type LessonView struct {
	StudentID     string    `json:"student_id"`
	LessonID      string    `json:"lesson_id"`
	Views         int       `json:"views"`
	FirstViewedAt time.Time `json:"first_viewed_at"`
	LastViewedAt  time.Time `json:"last_viewed_at"`
}

// LessonProgress counts how many lessons of a student's entitled doors the
// student has viewed.
type LessonProgress struct {
	StudentID      string          `json:"student_id"`
	SeenLessons    int             `json:"seen_lessons"`
	TotalLessons   int             `json:"total_lessons"`
	PercentageSeen decimal.Decimal `json:"percentage_seen"`
}
