package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pavelanni/academy/internal/model"
)

// ExportExamResults builds export-ready results for every student who
// started the exam.
func (q *Queries) ExportExamResults(ctx context.Context, examID string) (model.ExamExport, error) {
	exam, err := q.GetExam(ctx, examID)
	if err != nil {
		return model.ExamExport{}, err
	}
	out := model.ExamExport{
		ExamID:       exam.ID,
		Title:        exam.Title,
		NumQuestions: len(exam.Questions),
		MaxScore:     decimal.Zero,
		Results:      []model.StudentResult{},
	}
	for _, qu := range exam.Questions {
		out.MaxScore = out.MaxScore.Add(qu.Score)
	}

	list, err := q.StudentExamsForExam(ctx, examID)
	if err != nil {
		return out, fmt.Errorf("list student exams: %w", err)
	}
	for _, se := range list {
		user, err := q.GetUserByID(ctx, se.StudentID)
		if err != nil {
			return out, fmt.Errorf("get user %s: %w", se.StudentID, err)
		}
		res := model.StudentResult{
			Finished:   se.Finished,
			Attempts:   se.AttemptRecords,
			TotalScore: se.TotalScore,
			Percentage: se.Percentage,
			LastStart:  se.StartTime,
		}
		if user != nil {
			res.PublicID = user.PublicID
			res.Username = user.Username
			res.DisplayName = user.DisplayName
		}

		given := make(map[string]model.Answer, len(se.Answers))
		for _, a := range se.Answers {
			given[a.QuestionID] = a
		}
		for _, qu := range exam.Questions {
			qr := model.QuestionResult{
				Text:          qu.Text,
				CorrectAnswer: qu.CorrectAnswer,
				MaxScore:      qu.Score,
				Score:         decimal.Zero,
			}
			if a, ok := given[qu.ID]; ok {
				qr.Answer = a.Answer
				qr.Score = a.Score
			}
			res.Questions = append(res.Questions, qr)
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}
