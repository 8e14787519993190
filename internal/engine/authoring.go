package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/model"
)

// ExamRequest describes a new exam.
type ExamRequest struct {
	Title    string `json:"title"`
	Image    string `json:"image"`
	LessonID string `json:"lesson_id"`
	Duration int    `json:"duration"`
}

// QuestionRequest describes a question appended to an exam.
type QuestionRequest struct {
	Text          string          `json:"text"`
	Image         string          `json:"image"`
	Options       []string        `json:"options"`
	CorrectAnswer string          `json:"correct_answer"`
	Score         decimal.Decimal `json:"score"`
}

// CreateExam attaches a new, empty exam to a lesson.
func (e *Engine) CreateExam(ctx context.Context, req ExamRequest) (model.Exam, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return model.Exam{}, apperr.ErrValidation.With("title is required")
	}
	if req.Duration < 0 {
		return model.Exam{}, apperr.ErrValidation.With("duration must not be negative")
	}
	var exam model.Exam
	err := e.run(ctx, "create_exam", func(t *txn) error {
		if _, err := t.GetLesson(ctx, clean(req.LessonID)); err != nil {
			return err
		}
		var err error
		exam, err = t.CreateExam(ctx, model.Exam{
			Title:    req.Title,
			Image:    strings.TrimSpace(req.Image),
			LessonID: clean(req.LessonID),
			Duration: req.Duration,
		})
		return err
	})
	if err != nil {
		return model.Exam{}, err
	}
	slog.Info("exam created", "id", exam.ID, "lesson", exam.LessonID)
	return exam, nil
}

// AddQuestion appends a question to an exam.
func (e *Engine) AddQuestion(ctx context.Context, examID string, req QuestionRequest) (model.Exam, error) {
	q, err := validateQuestion(req)
	if err != nil {
		return model.Exam{}, err
	}
	var exam model.Exam
	err = e.run(ctx, "add_question", func(t *txn) error {
		var err error
		exam, err = t.GetExam(ctx, clean(examID))
		if err != nil {
			return err
		}
		exam.Questions = append(exam.Questions, q)
		return t.SaveExamQuestions(ctx, exam.ID, exam.Questions)
	})
	if err != nil {
		return model.Exam{}, err
	}
	slog.Info("question added", "exam", exam.ID, "question", q.ID)
	return exam, nil
}

func validateQuestion(req QuestionRequest) (model.Question, error) {
	q := model.Question{
		ID:            uuid.NewString(),
		Text:          strings.TrimSpace(req.Text),
		Image:         strings.TrimSpace(req.Image),
		CorrectAnswer: req.CorrectAnswer,
		Score:         req.Score,
	}
	for _, o := range req.Options {
		if o = strings.TrimSpace(o); o != "" {
			q.Options = append(q.Options, o)
		}
	}
	switch {
	case q.Text == "":
		return q, apperr.ErrValidation.With("question text is required")
	case len(q.Options) == 0:
		return q, apperr.ErrValidation.With("question options are required")
	case strings.TrimSpace(q.CorrectAnswer) == "":
		return q, apperr.ErrValidation.With("correct answer is required")
	case q.Score.IsNegative():
		return q, apperr.ErrValidation.With("score must not be negative")
	}
	return q, nil
}

// CouponRequest describes a new coupon.
type CouponRequest struct {
	Name       string          `json:"name"`
	Discount   decimal.Decimal `json:"discount"`
	Commission decimal.Decimal `json:"commission"`
	CourseID   string          `json:"course_id"`
}

// CreateCoupon stores a coupon, optionally bound to a course.
func (e *Engine) CreateCoupon(ctx context.Context, req CouponRequest) (model.Coupon, error) {
	req.Name = clean(req.Name)
	req.CourseID = clean(req.CourseID)
	if req.Name == "" {
		return model.Coupon{}, apperr.ErrValidation.With("coupon name is required")
	}
	if req.Discount.IsNegative() || req.Commission.IsNegative() {
		return model.Coupon{}, apperr.ErrValidation.With("discount and commission must not be negative")
	}
	var c model.Coupon
	err := e.run(ctx, "create_coupon", func(t *txn) error {
		if req.CourseID != "" {
			if _, err := t.GetCourse(ctx, req.CourseID); err != nil {
				return err
			}
		}
		var err error
		c, err = t.CreateCoupon(ctx, model.Coupon{
			Name:       req.Name,
			Discount:   req.Discount,
			Commission: req.Commission,
			CourseID:   req.CourseID,
			CreatedAt:  e.clock(),
		})
		return err
	})
	return c, err
}

// AccessCodeRequest describes a new access code.
type AccessCodeRequest struct {
	Code      string          `json:"code"`
	CourseID  string          `json:"course_id"`
	Discount  decimal.Decimal `json:"discount"`
	ValidFrom time.Time       `json:"valid_from"`
	ValidTo   time.Time       `json:"valid_to"`
	MaxUses   int             `json:"max_uses"`
}

// CreateAccessCode stores a course-scoped access code.
func (e *Engine) CreateAccessCode(ctx context.Context, req AccessCodeRequest) (model.AccessCode, error) {
	req.Code = clean(req.Code)
	req.CourseID = clean(req.CourseID)
	switch {
	case req.Code == "":
		return model.AccessCode{}, apperr.ErrValidation.With("code is required")
	case req.CourseID == "":
		return model.AccessCode{}, apperr.ErrValidation.With("course id is required")
	case !req.ValidTo.After(req.ValidFrom):
		return model.AccessCode{}, apperr.ErrValidation.With("valid_to must be after valid_from")
	case req.MaxUses < 1:
		return model.AccessCode{}, apperr.ErrValidation.With("max_uses must be at least 1")
	case req.Discount.IsNegative():
		return model.AccessCode{}, apperr.ErrValidation.With("discount must not be negative")
	}
	var a model.AccessCode
	err := e.run(ctx, "create_access_code", func(t *txn) error {
		if _, err := t.GetCourse(ctx, req.CourseID); err != nil {
			return err
		}
		var err error
		a, err = t.CreateAccessCode(ctx, model.AccessCode{
			Code:      req.Code,
			CourseID:  req.CourseID,
			Discount:  req.Discount,
			ValidFrom: req.ValidFrom.UTC(),
			ValidTo:   req.ValidTo.UTC(),
			MaxUses:   req.MaxUses,
			CreatedAt: e.clock(),
		})
		return err
	})
	return a, err
}
