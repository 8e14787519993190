package engine

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/events"
	"github.com/pavelanni/academy/internal/model"
)

func TestRecordLessonView(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()

	_, err := f.eng.RecordLessonView(ctx, student, "lesson-1")
	wantErr(t, err, apperr.KindAccessDenied)
	_, err = f.eng.RecordLessonView(ctx, student, "lesson-9")
	wantErr(t, err, apperr.KindNotFound)

	f.entitle(t)
	if _, err := f.eng.RecordLessonView(ctx, student, "lesson-1"); err != nil {
		t.Fatalf("RecordLessonView: %v", err)
	}
	f.advance(time.Hour)
	view, err := f.eng.RecordLessonView(ctx, student, " lesson-1 ")
	if err != nil {
		t.Fatalf("second RecordLessonView: %v", err)
	}
	if view.Views != 2 {
		t.Errorf("views = %d, want 2", view.Views)
	}
	if !view.FirstViewedAt.Equal(testStart) || !view.LastViewedAt.Equal(f.now) {
		t.Errorf("viewed at [%v, %v], want [%v, %v]", view.FirstViewedAt, view.LastViewedAt, testStart, f.now)
	}

	// Lessons outside the student's doors stay closed.
	_, err = f.eng.RecordLessonView(ctx, student, "lesson-2")
	wantErr(t, err, apperr.ErrAccessDenied)

	admin := model.Caller{StudentID: "admin-1", Privileged: true}
	if _, err := f.eng.RecordLessonView(ctx, admin, "lesson-2"); err != nil {
		t.Errorf("privileged RecordLessonView: %v", err)
	}

	want := []string{events.EntitlementGrant, events.LessonViewed, events.LessonViewed, events.LessonViewed}
	if got := f.rec.Types(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestLessonProgress(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()

	check := func(name string, studentID string, seen, total int, pct string) {
		t.Helper()
		p, err := f.eng.LessonProgress(ctx, studentID)
		if err != nil {
			t.Fatalf("%s: LessonProgress: %v", name, err)
		}
		if p.SeenLessons != seen || p.TotalLessons != total || p.PercentageSeen.StringFixed(2) != pct {
			t.Errorf("%s: progress = %d/%d (%s), want %d/%d (%s)",
				name, p.SeenLessons, p.TotalLessons, p.PercentageSeen.StringFixed(2), seen, total, pct)
		}
	}

	check("no entitlements", student.StudentID, 0, 0, "0.00")

	if _, err := f.eng.GrantEntitlement(ctx, GrantRequest{StudentID: student.StudentID, CourseID: "course-1"}); err != nil {
		t.Fatalf("GrantEntitlement: %v", err)
	}
	check("nothing viewed", student.StudentID, 0, 2, "0.00")

	for n := 0; n < 3; n++ {
		if _, err := f.eng.RecordLessonView(ctx, student, "lesson-1"); err != nil {
			t.Fatalf("RecordLessonView: %v", err)
		}
	}
	check("one lesson viewed repeatedly", student.StudentID, 1, 2, "50.00")

	if _, err := f.eng.RecordLessonView(ctx, student, "lesson-2"); err != nil {
		t.Fatalf("RecordLessonView: %v", err)
	}
	check("all lessons viewed", student.StudentID, 2, 2, "100.00")

	// Another student's views do not leak.
	check("other student", "stu-2", 0, 0, "0.00")
}
