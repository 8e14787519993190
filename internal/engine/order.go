package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/events"
	"github.com/pavelanni/academy/internal/model"
)

// OrderRequest is a purchase request. OrderID is an optional idempotency
// key: repeating a request with the same id returns the original order.
type OrderRequest struct {
	OrderID string `json:"order_id"`
	PriceRequest
}

type orderEvent struct {
	OrderID    string            `json:"order_id"`
	StudentID  string            `json:"student_id"`
	Status     model.OrderStatus `json:"status"`
	DoorID     string            `json:"door_id,omitempty"`
	CourseID   string            `json:"course_id,omitempty"`
	FinalPrice string            `json:"final_price"`
}

func newOrderEvent(typ string, o model.Order, at time.Time) events.Event {
	return events.New(typ, at, orderEvent{
		OrderID:    o.ID,
		StudentID:  o.StudentID,
		Status:     o.Status,
		DoorID:     o.DoorID,
		CourseID:   o.CourseID,
		FinalPrice: o.FinalPrice.String(),
	})
}

// PlaceOrder creates an order for a door or a course. A free order is
// approved and granted at once; anything else waits for an admin.
func (e *Engine) PlaceOrder(ctx context.Context, caller model.Caller, req OrderRequest) (model.Order, error) {
	req.PriceRequest = req.normalize()
	req.OrderID = clean(req.OrderID)
	if req.OrderID != "" {
		if _, err := uuid.Parse(req.OrderID); err != nil {
			return model.Order{}, apperr.ErrValidation.With("order id %q is not a valid uuid", req.OrderID)
		}
	}
	if req.DoorID == "" && req.CourseID == "" {
		return model.Order{}, apperr.ErrMissingTarget
	}

	var order model.Order
	var replayed bool
	err := e.run(ctx, "place_order", func(t *txn) error {
		now := e.clock()
		replayed = false

		if req.OrderID != "" {
			existing, err := t.GetOrder(ctx, req.OrderID)
			switch {
			case err == nil && existing.StudentID == caller.StudentID:
				order = existing
				replayed = true
				return nil
			case err == nil:
				return apperr.ErrAlreadyExists.With("order %s belongs to another student", req.OrderID)
			case !apperr.IsDomain(err):
				return err
			}
		}

		p, err := resolvePurchase(ctx, &t.Queries, req.PriceRequest)
		if err != nil {
			return err
		}
		active, err := t.FindOrderForTarget(ctx, caller.StudentID, p.kind, p.id, model.OrderPending, model.OrderApproved)
		if err != nil {
			return err
		}
		if active != nil {
			return apperr.ErrDuplicateOrder.With("order %s for %s %s is %s", active.ID, p.kind, p.id, active.Status)
		}
		n, err := t.DeleteOrdersForTarget(ctx, caller.StudentID, p.kind, p.id, model.OrderRejected)
		if err != nil {
			return err
		}
		if n > 0 {
			slog.Info("removed rejected orders before re-purchase", "student", caller.StudentID, "target", p.id, "count", n)
		}

		// A price already resolved under this order id has spent its usage.
		var redeemed map[string]bool
		if req.OrderID != "" {
			if redeemed, err = t.RedeemedKinds(ctx, req.OrderID); err != nil {
				return err
			}
		}
		pq, err := quote(ctx, &t.Queries, p, req.PriceRequest, now, redeemed)
		if err != nil {
			return err
		}

		order = model.Order{
			ID:         req.OrderID,
			StudentID:  caller.StudentID,
			Status:     model.OrderPending,
			CouponCode: req.CouponCode,
			AccessCode: req.AccessCode,
			FinalPrice: pq.FinalPrice,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if order.ID == "" {
			order.ID = uuid.NewString()
		}
		if p.kind == model.TargetCourse {
			order.CourseID = p.id
			order.DoorID = p.doorID
			order.Doors = p.doors
		} else {
			order.DoorID = p.id
		}
		if !pq.FinalPrice.IsPositive() {
			order.Status = model.OrderApproved
		}

		if err := t.InsertOrder(ctx, order); err != nil {
			return err
		}
		if err := e.redeem(ctx, t, order.ID, caller.StudentID, pq, now); err != nil {
			return err
		}
		t.emit(newOrderEvent(events.OrderPlaced, order, now))

		if order.Status == model.OrderApproved {
			if err := e.grantOrder(ctx, t, order, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	if replayed {
		return order, nil
	}
	kind, _ := order.Target()
	e.metrics.OrderPlaced(string(order.Status), kind)
	slog.Info("order placed", "id", order.ID, "student", order.StudentID, "status", order.Status, "final_price", order.FinalPrice)
	return order, nil
}

// ApproveOrder approves a pending order and grants its entitlement.
func (e *Engine) ApproveOrder(ctx context.Context, orderID string) (model.Order, error) {
	var order model.Order
	err := e.run(ctx, "approve_order", func(t *txn) error {
		now := e.clock()
		var err error
		order, err = t.GetOrder(ctx, clean(orderID))
		if err != nil {
			return err
		}
		if order.Status != model.OrderPending {
			return apperr.ErrInvalidState.With("order %s is %s, not pending", order.ID, order.Status)
		}
		order.Status = model.OrderApproved
		order.UpdatedAt = now
		if err := t.UpdateOrderStatus(ctx, order); err != nil {
			return err
		}
		t.emit(newOrderEvent(events.OrderApproved, order, now))
		return e.grantOrder(ctx, t, order, now)
	})
	if err != nil {
		return model.Order{}, err
	}
	e.metrics.OrderTransition("approve")
	slog.Info("order approved", "id", order.ID, "student", order.StudentID)
	return order, nil
}

// RejectOrder rejects an order. Entitlements already granted are kept.
func (e *Engine) RejectOrder(ctx context.Context, orderID string) (model.Order, error) {
	var order model.Order
	err := e.run(ctx, "reject_order", func(t *txn) error {
		now := e.clock()
		var err error
		order, err = t.GetOrder(ctx, clean(orderID))
		if err != nil {
			return err
		}
		if order.Status == model.OrderRejected {
			return apperr.ErrAlreadyRejected.With("order %s is already rejected", order.ID)
		}
		order.Status = model.OrderRejected
		order.UpdatedAt = now
		if err := t.UpdateOrderStatus(ctx, order); err != nil {
			return err
		}
		t.emit(newOrderEvent(events.OrderRejected, order, now))
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	e.metrics.OrderTransition("reject")
	slog.Info("order rejected", "id", order.ID, "student", order.StudentID)
	return order, nil
}

// ListOrders returns a page of all orders.
func (e *Engine) ListOrders(ctx context.Context, page model.Page) ([]model.Order, model.Pagination, error) {
	page = page.Normalize()
	list, total, err := e.store.ListOrders(ctx, page)
	return list, model.NewPagination(page, total), err
}

// ListStudentOrders returns a page of the student's orders.
func (e *Engine) ListStudentOrders(ctx context.Context, studentID string, page model.Page) ([]model.Order, model.Pagination, error) {
	page = page.Normalize()
	list, total, err := e.store.ListStudentOrders(ctx, studentID, page)
	return list, model.NewPagination(page, total), err
}

// ListCourseOrders returns every order for a course.
func (e *Engine) ListCourseOrders(ctx context.Context, courseID string) ([]model.Order, error) {
	if _, err := e.store.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return e.store.ListOrdersByCourse(ctx, courseID)
}
