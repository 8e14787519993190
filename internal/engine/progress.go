package engine

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/events"
	"github.com/pavelanni/academy/internal/model"
)

type lessonViewEvent struct {
	StudentID string `json:"student_id"`
	LessonID  string `json:"lesson_id"`
	DoorID    string `json:"door_id"`
	Views     int    `json:"views"`
}

// RecordLessonView counts a view of a lesson by the caller, who must hold
// the lesson's door unless privileged.
func (e *Engine) RecordLessonView(ctx context.Context, caller model.Caller, lessonID string) (model.LessonView, error) {
	var view model.LessonView
	err := e.run(ctx, "record_lesson_view", func(t *txn) error {
		now := e.clock()
		lesson, err := t.GetLesson(ctx, clean(lessonID))
		if err != nil {
			return err
		}
		if !caller.Privileged {
			ok, err := t.HasDoor(ctx, caller.StudentID, lesson.DoorID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.ErrAccessDenied.With("no access to door %s of lesson %s", lesson.DoorID, lesson.ID)
			}
		}
		view, err = t.RecordLessonView(ctx, caller.StudentID, lesson.ID, now)
		if err != nil {
			return err
		}
		t.emit(events.New(events.LessonViewed, now, lessonViewEvent{
			StudentID: view.StudentID,
			LessonID:  lesson.ID,
			DoorID:    lesson.DoorID,
			Views:     view.Views,
		}))
		return nil
	})
	if err != nil {
		return model.LessonView{}, err
	}
	e.metrics.LessonViewed()
	slog.Debug("lesson viewed", "lesson", view.LessonID, "student", view.StudentID, "views", view.Views)
	return view, nil
}

// LessonProgress reports how much of the lessons in the student's entitled
// doors the student has viewed. Views of lessons outside those doors do not
// count.
func (e *Engine) LessonProgress(ctx context.Context, studentID string) (model.LessonProgress, error) {
	seen, total, err := e.store.LessonProgressCounts(ctx, studentID)
	if err != nil {
		return model.LessonProgress{}, err
	}
	return model.LessonProgress{
		StudentID:      studentID,
		SeenLessons:    seen,
		TotalLessons:   total,
		PercentageSeen: Percentage(decimal.NewFromInt(int64(seen)), decimal.NewFromInt(int64(total))),
	}, nil
}
