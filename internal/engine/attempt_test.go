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

// entitle gives the test student door-1, which owns lesson-1.
func (f *fixture) entitle(t *testing.T) {
	t.Helper()
	if _, err := f.eng.GrantEntitlement(context.Background(), GrantRequest{StudentID: student.StudentID, DoorID: "door-1"}); err != nil {
		t.Fatalf("GrantEntitlement: %v", err)
	}
}

func TestStartAttemptChecks(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	exam := f.exam(t, 30, 5)
	noDuration := f.exam(t, 0, 5)

	_, err := f.eng.StartAttempt(ctx, student, "missing")
	wantErr(t, err, apperr.KindNotFound)

	_, err = f.eng.StartAttempt(ctx, student, exam.ID)
	wantErr(t, err, apperr.KindAccessDenied)

	_, err = f.eng.StartAttempt(ctx, student, noDuration.ID)
	wantErr(t, err, apperr.ErrMissingDuration)

	// Privileged callers skip the entitlement check.
	admin := model.Caller{StudentID: "admin-1", Privileged: true}
	if _, err := f.eng.StartAttempt(ctx, admin, exam.ID); err != nil {
		t.Errorf("privileged StartAttempt: %v", err)
	}

	// Access through a course grant.
	if _, err := f.eng.GrantEntitlement(ctx, GrantRequest{StudentID: student.StudentID, CourseID: "course-1"}); err != nil {
		t.Fatalf("GrantEntitlement: %v", err)
	}
	se, err := f.eng.StartAttempt(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if se.AttemptCount != 1 || len(se.AttemptRecords) != 1 {
		t.Errorf("attempt count = %d, records = %d, want 1 and 1", se.AttemptCount, len(se.AttemptRecords))
	}
	if !se.StartTime.Equal(testStart) || !se.EndTime.Equal(testStart.Add(30*time.Minute)) {
		t.Errorf("window = [%v, %v)", se.StartTime, se.EndTime)
	}
}

func TestStartTwiceAppendsOneRecord(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	f.entitle(t)
	exam := f.exam(t, 30, 5, 5)

	first, err := f.eng.StartAttempt(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if _, err := f.eng.AnswerQuestion(ctx, student, exam.ID, exam.Questions[0].ID, "right"); err != nil {
		t.Fatalf("AnswerQuestion: %v", err)
	}

	f.advance(5 * time.Minute)
	second, err := f.eng.StartAttempt(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("second StartAttempt: %v", err)
	}
	if second.ID != first.ID {
		t.Error("a student has one attempt document per exam")
	}
	if second.AttemptCount != 2 || len(second.AttemptRecords) != 2 {
		t.Fatalf("attempt count = %d, records = %d, want 2 and 2", second.AttemptCount, len(second.AttemptRecords))
	}
	if second.AttemptRecords[0].AttemptNumber != 1 || second.AttemptRecords[1].AttemptNumber != 2 {
		t.Errorf("attempt numbers = %d, %d", second.AttemptRecords[0].AttemptNumber, second.AttemptRecords[1].AttemptNumber)
	}
	if !second.AttemptRecords[0].StartTime.Equal(testStart) {
		t.Error("first record must be kept unchanged")
	}
	if !second.AttemptRecords[0].Score.Equal(dec(5)) {
		t.Errorf("first record score = %s, want 5", second.AttemptRecords[0].Score)
	}
	if len(second.Answers) != 1 || !second.TotalScore.Equal(dec(5)) || second.Finished {
		t.Errorf("new attempt must carry answers and totals: %+v", second)
	}
	if !second.AttemptRecords[1].Score.Equal(dec(5)) {
		t.Errorf("second record score = %s, want carried 5", second.AttemptRecords[1].Score)
	}
	if !second.StartTime.Equal(f.now) {
		t.Errorf("start time = %v, want %v", second.StartTime, f.now)
	}
}

func TestAnswerScoring(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	f.entitle(t)
	exam := f.exam(t, 30, 5, 5)
	if _, err := f.eng.StartAttempt(ctx, student, exam.ID); err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	q1, q2 := exam.Questions[0].ID, exam.Questions[1].ID

	steps := []struct {
		name       string
		question   string
		answer     string
		wantTotal  int64
		wantPublic string
	}{
		{"first correct", q1, "right", 5, "50.00"},
		{"same answer again", q1, "right", 5, "50.00"},
		{"surrounding whitespace ignored", q1, "  right\n", 5, "50.00"},
		{"case sensitive", q2, "Right", 5, "50.00"},
		{"second correct", q2, "right", 10, "100.00"},
		{"overwrite with wrong", q1, "wrong", 5, "50.00"},
		{"back to correct", q1, "right", 10, "100.00"},
	}
	for _, st := range steps {
		se, err := f.eng.AnswerQuestion(ctx, student, exam.ID, st.question, st.answer)
		if err != nil {
			t.Fatalf("%s: AnswerQuestion: %v", st.name, err)
		}
		if !se.TotalScore.Equal(dec(st.wantTotal)) {
			t.Errorf("%s: total = %s, want %d", st.name, se.TotalScore, st.wantTotal)
		}
		if got := model.ToPublicStudentExam(se).Percentage; got != st.wantPublic {
			t.Errorf("%s: percentage = %s, want %s", st.name, got, st.wantPublic)
		}
		if len(se.Answers) > 2 {
			t.Errorf("%s: answers must be unique per question, got %d", st.name, len(se.Answers))
		}
		rec := se.CurrentAttempt()
		if !rec.Score.Equal(se.TotalScore) || !rec.Percentage.Equal(se.Percentage) {
			t.Errorf("%s: attempt record %+v does not mirror totals", st.name, rec)
		}
	}
}

func TestAnswerRejections(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	f.entitle(t)
	exam := f.exam(t, 10, 5)
	other := f.exam(t, 10, 5)
	qid := exam.Questions[0].ID

	_, err := f.eng.AnswerQuestion(ctx, student, exam.ID, qid, "right")
	wantErr(t, err, apperr.KindNotFound)

	if _, err := f.eng.StartAttempt(ctx, student, exam.ID); err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	_, err = f.eng.AnswerQuestion(ctx, student, exam.ID, other.Questions[0].ID, "right")
	wantErr(t, err, apperr.KindNotFound)

	// Answering exactly at the end time is still accepted.
	f.advance(10 * time.Minute)
	if _, err := f.eng.AnswerQuestion(ctx, student, exam.ID, qid, "right"); err != nil {
		t.Fatalf("answer at end time: %v", err)
	}
	f.advance(time.Millisecond)
	_, err = f.eng.AnswerQuestion(ctx, student, exam.ID, qid, "right")
	wantErr(t, err, apperr.ErrExamClosed)
}

func TestFinishAttempt(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	f.entitle(t)
	exam := f.exam(t, 30, 5, 5)

	_, err := f.eng.FinishAttempt(ctx, student, exam.ID)
	wantErr(t, err, apperr.KindNotFound)

	if _, err := f.eng.StartAttempt(ctx, student, exam.ID); err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	for _, q := range exam.Questions {
		if _, err := f.eng.AnswerQuestion(ctx, student, exam.ID, q.ID, "right"); err != nil {
			t.Fatalf("AnswerQuestion: %v", err)
		}
	}
	f.advance(90 * time.Second)
	se, err := f.eng.FinishAttempt(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("FinishAttempt: %v", err)
	}
	if !se.Finished {
		t.Error("expected finished")
	}
	rec := se.CurrentAttempt()
	pub := model.ToPublicStudentExam(se)
	if !rec.EndTime.Equal(f.now) {
		t.Errorf("record end = %v, want %v", rec.EndTime, f.now)
	}
	if got := pub.AttemptRecords[0].Duration; got != "1.50" {
		t.Errorf("duration = %s, want 1.50", got)
	}
	if !rec.Score.Equal(dec(10)) || pub.Percentage != "100.00" {
		t.Errorf("record score = %s, percentage = %s", rec.Score, pub.Percentage)
	}

	_, err = f.eng.FinishAttempt(ctx, student, exam.ID)
	wantErr(t, err, apperr.ErrAlreadyFinished)
	_, err = f.eng.AnswerQuestion(ctx, student, exam.ID, exam.Questions[0].ID, "right")
	wantErr(t, err, apperr.ErrExamClosed)

	// A finished attempt can be followed by a new one.
	restarted, err := f.eng.StartAttempt(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if restarted.Finished || restarted.AttemptCount != 2 {
		t.Errorf("restart: finished = %v, attempts = %d", restarted.Finished, restarted.AttemptCount)
	}
	// Finishing the new attempt without answering again keeps the earlier score.
	refinished, err := f.eng.FinishAttempt(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("finish restarted: %v", err)
	}
	if got := refinished.CurrentAttempt(); !got.Score.Equal(dec(10)) || !got.Percentage.Equal(dec(100)) {
		t.Errorf("restarted record = %s / %s, want 10 / 100", got.Score, got.Percentage)
	}

	want := []string{
		events.EntitlementGrant,
		events.AttemptStarted, events.QuestionAnswered, events.QuestionAnswered,
		events.AttemptFinished, events.AttemptStarted, events.AttemptFinished,
	}
	if got := f.rec.Types(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestFinishAttemptBoundary(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{"just before end", 10*time.Minute - time.Millisecond, nil},
		{"exactly at end", 10 * time.Minute, apperr.ErrAlreadyExpired},
		{"after end", 11 * time.Minute, apperr.ErrAlreadyExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestEngine(t)
			ctx := context.Background()
			f.entitle(t)
			exam := f.exam(t, 10, 5)
			if _, err := f.eng.StartAttempt(ctx, student, exam.ID); err != nil {
				t.Fatalf("StartAttempt: %v", err)
			}
			f.advance(tt.elapsed)
			se, err := f.eng.FinishAttempt(ctx, student, exam.ID)
			if tt.wantErr != nil {
				wantErr(t, err, tt.wantErr)
				wantErr(t, err, apperr.KindExpiredOrExhausted)
				got, gerr := f.store.GetStudentExam(ctx, exam.ID, student.StudentID)
				if gerr != nil {
					t.Fatalf("GetStudentExam: %v", gerr)
				}
				if got.Finished {
					t.Error("expired finish must not mark the attempt finished")
				}
				return
			}
			if err != nil {
				t.Fatalf("FinishAttempt: %v", err)
			}
			if !se.Finished {
				t.Error("expected finished")
			}
		})
	}
}

func TestGetExamView(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	exam := f.exam(t, 30, 5)

	_, err := f.eng.GetExamView(ctx, student, exam.ID)
	wantErr(t, err, apperr.KindAccessDenied)

	f.entitle(t)
	view, err := f.eng.GetExamView(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("GetExamView: %v", err)
	}
	if view.Progress != nil {
		t.Error("no progress expected before starting")
	}
	if view.Exam.Image != "https://cdn.example.com/uploads/exams/quiz.png" {
		t.Errorf("image = %q", view.Exam.Image)
	}

	if _, err := f.eng.StartAttempt(ctx, student, exam.ID); err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	view, err = f.eng.GetExamView(ctx, student, exam.ID)
	if err != nil {
		t.Fatalf("GetExamView: %v", err)
	}
	if view.Progress == nil || view.Progress.AttemptCount != 1 {
		t.Errorf("progress = %+v", view.Progress)
	}
}
