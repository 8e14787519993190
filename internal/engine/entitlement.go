package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/events"
	"github.com/pavelanni/academy/internal/model"
)

// GrantRequest names the content a student is granted directly.
type GrantRequest struct {
	StudentID string `json:"student_id"`
	DoorID    string `json:"door_id"`
	CourseID  string `json:"course_id"`
}

type grantEvent struct {
	StudentID string   `json:"student_id"`
	CourseID  string   `json:"course_id,omitempty"`
	Doors     []string `json:"doors"`
}

// grant records a course and its doors, or a single door. Doors reached
// through a course are copied at grant time; later changes to the course do
// not alter what the student can open.
func (e *Engine) grant(ctx context.Context, t *txn, studentID, courseID string, courseDoors []string, doorID string, now time.Time) error {
	var added []string
	if courseID != "" {
		if _, err := t.GrantCourse(ctx, studentID, courseID, now); err != nil {
			return err
		}
		for _, d := range courseDoors {
			ok, err := t.GrantDoor(ctx, studentID, d, courseID, now)
			if err != nil {
				return err
			}
			if ok {
				added = append(added, d)
			}
		}
	}
	if doorID != "" {
		ok, err := t.GrantDoor(ctx, studentID, doorID, "", now)
		if err != nil {
			return err
		}
		if ok {
			added = append(added, doorID)
		}
	}
	if added == nil {
		added = []string{}
	}
	t.emit(events.New(events.EntitlementGrant, now, grantEvent{StudentID: studentID, CourseID: courseID, Doors: added}))
	slog.Info("entitlement granted", "student", studentID, "course", courseID, "door", doorID, "new_doors", len(added))
	return nil
}

// grantOrder grants what an approved order bought, using the doors
// snapshotted on the order.
func (e *Engine) grantOrder(ctx context.Context, t *txn, o model.Order, now time.Time) error {
	return e.grant(ctx, t, o.StudentID, o.CourseID, o.Doors, o.DoorID, now)
}

// GrantEntitlement gives a student access to a door or a course without an
// order. Granting the same content twice has no further effect.
func (e *Engine) GrantEntitlement(ctx context.Context, req GrantRequest) (model.Entitlement, error) {
	req.StudentID = clean(req.StudentID)
	req.DoorID = clean(req.DoorID)
	req.CourseID = clean(req.CourseID)
	if req.StudentID == "" {
		return model.Entitlement{}, apperr.ErrValidation.With("student id is required")
	}
	if req.DoorID == "" && req.CourseID == "" {
		return model.Entitlement{}, apperr.ErrMissingTarget
	}

	var ent model.Entitlement
	err := e.run(ctx, "grant_entitlement", func(t *txn) error {
		now := e.clock()
		var doors []string
		if req.CourseID != "" {
			c, err := t.GetCourse(ctx, req.CourseID)
			if err != nil {
				return err
			}
			doors = c.DoorIDs
		}
		if req.DoorID != "" {
			if _, err := t.GetDoor(ctx, req.DoorID); err != nil {
				return err
			}
		}
		if err := e.grant(ctx, t, req.StudentID, req.CourseID, doors, req.DoorID, now); err != nil {
			return err
		}
		var err error
		ent, err = t.GetEntitlement(ctx, req.StudentID)
		return err
	})
	return ent, err
}

// HasAccess reports whether the student may open the door.
func (e *Engine) HasAccess(ctx context.Context, studentID, doorID string) (bool, error) {
	return e.store.HasDoor(ctx, studentID, clean(doorID))
}

// ListEntitlements returns the student's courses and doors.
func (e *Engine) ListEntitlements(ctx context.Context, studentID string) (model.Entitlement, error) {
	return e.store.GetEntitlement(ctx, studentID)
}
