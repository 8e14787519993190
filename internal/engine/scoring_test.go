package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pavelanni/academy/internal/model"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		score, possible string
		want            string
	}{
		{"5", "10", "50.00"},
		{"10", "10", "100.00"},
		{"1", "3", "33.33"},
		{"2", "3", "66.67"},
		{"0", "10", "0.00"},
		{"5", "0", "0.00"},
		{"12", "10", "100.00"},
		{"-1", "10", "0.00"},
	}
	for _, tt := range tests {
		got := Percentage(decimal.RequireFromString(tt.score), decimal.RequireFromString(tt.possible))
		if got.StringFixed(2) != tt.want {
			t.Errorf("Percentage(%s, %s) = %s, want %s", tt.score, tt.possible, got.StringFixed(2), tt.want)
		}
	}
}

func TestIsCorrect(t *testing.T) {
	tests := []struct {
		submitted, correct string
		want               bool
	}{
		{"Paris", "Paris", true},
		{" Paris\t", "Paris", true},
		{"Paris", " Paris ", true},
		{"paris", "Paris", false},
		{"", "Paris", false},
	}
	for _, tt := range tests {
		if got := IsCorrect(tt.submitted, tt.correct); got != tt.want {
			t.Errorf("IsCorrect(%q, %q) = %v, want %v", tt.submitted, tt.correct, got, tt.want)
		}
	}
}

func TestTotals(t *testing.T) {
	exam := model.Exam{Questions: []model.Question{
		{ID: "q1", CorrectAnswer: "a", Score: dec(2)},
		{ID: "q2", CorrectAnswer: "b", Score: dec(3)},
		{ID: "q3", CorrectAnswer: "c", Score: dec(5)},
	}}
	var answers []model.Answer
	for _, a := range []struct{ q, ans string }{{"q1", "a"}, {"q2", "x"}, {"q3", "c"}, {"q2", "b"}, {"q1", "z"}} {
		q, _ := exam.Question(a.q)
		answers = upsertAnswer(answers, model.Answer{QuestionID: q.ID, Answer: a.ans, Score: AwardedScore(q, a.ans)})
	}
	if len(answers) != 3 {
		t.Fatalf("answers = %d, want 3", len(answers))
	}
	total, pct := Totals(exam, answers)
	if !total.Equal(dec(8)) || pct.StringFixed(2) != "80.00" {
		t.Errorf("totals = %s, %s; want 8, 80.00", total, pct.StringFixed(2))
	}
	if !PossibleScore(exam).Equal(dec(10)) {
		t.Errorf("possible = %s", PossibleScore(exam))
	}
}

func TestElapsedMinutes(t *testing.T) {
	start := testStart
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0.00"},
		{90 * time.Second, "1.50"},
		{20 * time.Second, "0.33"},
		{40 * time.Second, "0.67"},
		{45 * time.Minute, "45.00"},
	}
	for _, tt := range tests {
		if got := elapsedMinutes(start, start.Add(tt.d)).StringFixed(2); got != tt.want {
			t.Errorf("elapsedMinutes(%v) = %s, want %s", tt.d, got, tt.want)
		}
	}
}
