package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/pavelanni/academy/internal/model"
)

// aggregate summarizes attempt documents. Average score is taken over every
// attempt record, average percentage over the documents' current values.
func aggregate(list []model.StudentExam) model.StudentExamStats {
	st := model.StudentExamStats{
		TotalExams:         len(list),
		AverageScore:       decimal.Zero,
		AveragePercentage:  decimal.Zero,
		PercentageFinished: decimal.Zero,
	}
	scores := decimal.Zero
	percentages := decimal.Zero
	for _, se := range list {
		st.TotalAttempts += len(se.AttemptRecords)
		if se.Finished {
			st.TotalFinished++
		}
		for _, r := range se.AttemptRecords {
			scores = scores.Add(r.Score)
		}
		percentages = percentages.Add(se.Percentage)
	}
	if st.TotalAttempts > 0 {
		st.AverageScore = scores.Div(decimal.NewFromInt(int64(st.TotalAttempts))).Round(2)
	}
	if st.TotalExams > 0 {
		n := decimal.NewFromInt(int64(st.TotalExams))
		st.AveragePercentage = percentages.Div(n).Round(2)
		st.PercentageFinished = decimal.NewFromInt(int64(st.TotalFinished)).Mul(hundred).Div(n).Round(2)
	}
	return st
}

// StudentStats aggregates every exam the student has started.
func (e *Engine) StudentStats(ctx context.Context, studentID string) (model.StudentExamStats, error) {
	list, err := e.store.AllStudentExams(ctx, studentID)
	if err != nil {
		return model.StudentExamStats{}, err
	}
	return aggregate(list), nil
}

// LessonExamStats aggregates all students' attempts for each exam of a
// lesson.
func (e *Engine) LessonExamStats(ctx context.Context, lessonID string) ([]model.ExamStats, error) {
	if _, err := e.store.GetLesson(ctx, lessonID); err != nil {
		return nil, err
	}
	exams, err := e.store.ListExamsByLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	out := make([]model.ExamStats, 0, len(exams))
	for _, ex := range exams {
		list, err := e.store.StudentExamsForExam(ctx, ex.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.ExamStats{ExamID: ex.ID, Title: ex.Title, StudentExamStats: aggregate(list)})
	}
	return out, nil
}

// History returns a page of the student's attempt documents, most recently
// started first.
func (e *Engine) History(ctx context.Context, studentID string, page model.Page) ([]model.PublicStudentExam, model.Pagination, error) {
	page = page.Normalize()
	list, total, err := e.store.ListStudentExams(ctx, studentID, page)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	out := make([]model.PublicStudentExam, 0, len(list))
	for _, se := range list {
		out = append(out, model.ToPublicStudentExam(se))
	}
	return out, model.NewPagination(page, total), nil
}

// CouponStats reports a coupon's usage, the commission it earned and the
// students who used it.
func (e *Engine) CouponStats(ctx context.Context, couponID string) (model.CouponStats, error) {
	c, err := e.store.GetCoupon(ctx, couponID)
	if err != nil {
		return model.CouponStats{}, err
	}
	users, err := e.store.CouponUsers(ctx, couponID)
	if err != nil {
		return model.CouponStats{}, err
	}
	if users == nil {
		users = []model.User{}
	}
	return model.CouponStats{
		Coupon:       c,
		TotalRevenue: c.Commission.Mul(decimal.NewFromInt(int64(c.UsageCount))),
		Users:        users,
	}, nil
}
