package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExamExport is the top-level JSON structure for exam result export.
type ExamExport struct {
	ExamID       string          `json:"exam_id"`
	Title        string          `json:"title"`
	Date         string          `json:"date"`
	NumQuestions int             `json:"num_questions"`
	MaxScore     decimal.Decimal `json:"max_score"`
	Results      []StudentResult `json:"results"`
}

// StudentResult holds one student's attempts at an exam.
type StudentResult struct {
	PublicID    string           `json:"public_id"`
	Username    string           `json:"username"`
	DisplayName string           `json:"display_name"`
	Finished    bool             `json:"finished"`
	Attempts    []AttemptRecord  `json:"attempts"`
	Questions   []QuestionResult `json:"questions"`
	TotalScore  decimal.Decimal  `json:"total_score"`
	Percentage  decimal.Decimal  `json:"percentage"`
	LastStart   time.Time        `json:"last_start"`
}

// QuestionResult holds the latest attempt's answer to one question.
type QuestionResult struct {
	Text          string          `json:"text"`
	CorrectAnswer string          `json:"correct_answer"`
	Answer        string          `json:"answer"`
	MaxScore      decimal.Decimal `json:"max_score"`
	Score         decimal.Decimal `json:"score"`
}
