package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/events"
	"github.com/pavelanni/academy/internal/model"
)

type attemptEvent struct {
	ExamID        string `json:"exam_id"`
	StudentID     string `json:"student_id"`
	AttemptNumber int    `json:"attempt_number"`
	Score         string `json:"score"`
	Percentage    string `json:"percentage"`
}

func newAttemptEvent(typ string, se model.StudentExam, at time.Time) events.Event {
	return events.New(typ, at, attemptEvent{
		ExamID:        se.ExamID,
		StudentID:     se.StudentID,
		AttemptNumber: se.AttemptCount,
		Score:         se.TotalScore.String(),
		Percentage:    se.Percentage.StringFixed(2),
	})
}

// checkExamAccess walks exam -> lesson -> door and requires a door
// entitlement unless the caller is privileged.
func (e *Engine) checkExamAccess(ctx context.Context, t *txn, caller model.Caller, exam model.Exam) error {
	lesson, err := t.GetLesson(ctx, exam.LessonID)
	if err != nil {
		return err
	}
	if caller.Privileged {
		return nil
	}
	ok, err := t.HasDoor(ctx, caller.StudentID, lesson.DoorID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrAccessDenied.With("no access to door %s of exam %s", lesson.DoorID, exam.ID)
	}
	return nil
}

// StartAttempt opens a new timed attempt for the caller. The first call
// creates the attempt document; later calls start attempt N+1 on top of the
// answers given so far.
func (e *Engine) StartAttempt(ctx context.Context, caller model.Caller, examID string) (model.StudentExam, error) {
	var se model.StudentExam
	err := e.run(ctx, "start_attempt", func(t *txn) error {
		now := e.clock()
		exam, err := t.GetExam(ctx, clean(examID))
		if err != nil {
			return err
		}
		if exam.Duration <= 0 {
			return apperr.ErrMissingDuration.With("exam %s has no duration", exam.ID)
		}
		if err := e.checkExamAccess(ctx, t, caller, exam); err != nil {
			return err
		}

		end := now.Add(time.Duration(exam.Duration) * time.Minute)
		se, err = t.GetStudentExam(ctx, exam.ID, caller.StudentID)
		switch {
		case errors.Is(err, apperr.KindNotFound):
			se = model.StudentExam{
				ExamID:     exam.ID,
				StudentID:  caller.StudentID,
				Answers:    []model.Answer{},
				TotalScore: decimal.Zero,
				Percentage: decimal.Zero,
			}
			startNewAttempt(&se, now, end)
			se, err = t.InsertStudentExam(ctx, se)
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			startNewAttempt(&se, now, end)
			if err := t.UpdateStudentExam(ctx, se); err != nil {
				return err
			}
		}
		t.emit(newAttemptEvent(events.AttemptStarted, se, now))
		return nil
	})
	if err != nil {
		return model.StudentExam{}, err
	}
	e.metrics.Attempt("start")
	slog.Info("attempt started", "exam", se.ExamID, "student", se.StudentID, "attempt", se.AttemptCount, "ends", se.EndTime)
	return se, nil
}

func startNewAttempt(se *model.StudentExam, start, end time.Time) {
	se.AttemptCount++
	se.Finished = false
	se.StartTime = start
	se.EndTime = end
	// Answers and totals carry over into the new attempt.
	se.AttemptRecords = append(se.AttemptRecords, model.AttemptRecord{
		AttemptNumber: se.AttemptCount,
		Score:         se.TotalScore,
		Percentage:    se.Percentage,
		StartTime:     start,
		EndTime:       end,
		Duration:      decimal.Zero,
	})
}

// AnswerQuestion records the caller's answer to one question of the active
// attempt and rescores the attempt. Answering again replaces the earlier
// answer.
func (e *Engine) AnswerQuestion(ctx context.Context, caller model.Caller, examID, questionID, answer string) (model.StudentExam, error) {
	var se model.StudentExam
	var correct bool
	err := e.run(ctx, "answer_question", func(t *txn) error {
		now := e.clock()
		var err error
		se, err = t.GetStudentExam(ctx, clean(examID), caller.StudentID)
		if err != nil {
			return err
		}
		exam, err := t.GetExam(ctx, se.ExamID)
		if err != nil {
			return err
		}
		q, ok := exam.Question(clean(questionID))
		if !ok {
			return apperr.ErrNotFound.With("question %q not found in exam %s", questionID, exam.ID)
		}
		if se.Finished || now.After(se.EndTime) {
			return apperr.ErrExamClosed
		}

		submitted := strings.TrimSpace(answer)
		score := AwardedScore(q, submitted)
		correct = IsCorrect(submitted, q.CorrectAnswer)
		se.Answers = upsertAnswer(se.Answers, model.Answer{QuestionID: q.ID, Answer: submitted, Score: score})
		se.TotalScore, se.Percentage = Totals(exam, se.Answers)
		if rec := se.CurrentAttempt(); rec != nil {
			rec.Score = se.TotalScore
			rec.Percentage = se.Percentage
		}
		if err := t.UpdateStudentExam(ctx, se); err != nil {
			return err
		}
		t.emit(newAttemptEvent(events.QuestionAnswered, se, now))
		return nil
	})
	if err != nil {
		return model.StudentExam{}, err
	}
	e.metrics.Answered(correct)
	return se, nil
}

// FinishAttempt closes the active attempt. Finishing must happen strictly
// before the attempt's end time.
func (e *Engine) FinishAttempt(ctx context.Context, caller model.Caller, examID string) (model.StudentExam, error) {
	var se model.StudentExam
	err := e.run(ctx, "finish_attempt", func(t *txn) error {
		now := e.clock()
		var err error
		se, err = t.GetStudentExam(ctx, clean(examID), caller.StudentID)
		if err != nil {
			return err
		}
		if se.Finished {
			return apperr.ErrAlreadyFinished
		}
		if !now.Before(se.EndTime) {
			return apperr.ErrAlreadyExpired
		}
		se.Finished = true
		if rec := se.CurrentAttempt(); rec != nil {
			rec.EndTime = now
			rec.Duration = elapsedMinutes(rec.StartTime, now)
			rec.Score = se.TotalScore
			rec.Percentage = se.Percentage
		}
		if err := t.UpdateStudentExam(ctx, se); err != nil {
			return err
		}
		t.emit(newAttemptEvent(events.AttemptFinished, se, now))
		return nil
	})
	if err != nil {
		return model.StudentExam{}, err
	}
	e.metrics.Attempt("finish")
	slog.Info("attempt finished", "exam", se.ExamID, "student", se.StudentID, "attempt", se.AttemptCount, "score", se.TotalScore)
	return se, nil
}

// GetExamView returns the exam without correct answers, together with the
// caller's progress if an attempt exists.
func (e *Engine) GetExamView(ctx context.Context, caller model.Caller, examID string) (model.ExamView, error) {
	var view model.ExamView
	err := e.run(ctx, "get_exam", func(t *txn) error {
		exam, err := t.GetExam(ctx, clean(examID))
		if err != nil {
			return err
		}
		if err := e.checkExamAccess(ctx, t, caller, exam); err != nil {
			return err
		}
		view.Exam = model.ToPublicExam(exam, e.baseURL)
		se, err := t.GetStudentExam(ctx, exam.ID, caller.StudentID)
		switch {
		case errors.Is(err, apperr.KindNotFound):
			return nil
		case err != nil:
			return err
		}
		progress := model.ToPublicStudentExam(se)
		view.Progress = &progress
		return nil
	})
	return view, err
}
