package engine

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pavelanni/academy/internal/model"
)

var hundred = decimal.NewFromInt(100)

// IsCorrect compares a submitted answer with the stored one after trimming
// surrounding whitespace. The comparison is case-sensitive.
func IsCorrect(submitted, correct string) bool {
	return strings.TrimSpace(submitted) == strings.TrimSpace(correct)
}

// AwardedScore returns the points earned for an answer to q.
func AwardedScore(q model.Question, submitted string) decimal.Decimal {
	if IsCorrect(submitted, q.CorrectAnswer) {
		return q.Score
	}
	return decimal.Zero
}

// PossibleScore sums the scores of every question in the exam.
func PossibleScore(e model.Exam) decimal.Decimal {
	total := decimal.Zero
	for _, q := range e.Questions {
		total = total.Add(q.Score)
	}
	return total
}

// Percentage returns 100*score/possible rounded to two places and clamped
// to [0, 100]. It is 0 when nothing can be scored.
func Percentage(score, possible decimal.Decimal) decimal.Decimal {
	if !possible.IsPositive() {
		return decimal.Zero
	}
	p := score.Mul(hundred).Div(possible).Round(2)
	switch {
	case p.IsNegative():
		return decimal.Zero
	case p.GreaterThan(hundred):
		return hundred
	}
	return p
}

// Totals recomputes the total score and percentage of a set of answers.
func Totals(e model.Exam, answers []model.Answer) (total, percentage decimal.Decimal) {
	total = decimal.Zero
	for _, a := range answers {
		total = total.Add(a.Score)
	}
	return total, Percentage(total, PossibleScore(e))
}

// upsertAnswer replaces the answer for the same question or appends a new one.
func upsertAnswer(answers []model.Answer, a model.Answer) []model.Answer {
	for i := range answers {
		if answers[i].QuestionID == a.QuestionID {
			answers[i] = a
			return answers
		}
	}
	return append(answers, a)
}

// elapsedMinutes returns the minutes between start and end rounded to two
// places.
func elapsedMinutes(start, end time.Time) decimal.Decimal {
	ms := end.Sub(start).Milliseconds()
	return decimal.NewFromInt(ms).Div(decimal.NewFromInt(60_000)).Round(2)
}
