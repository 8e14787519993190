package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/store"
)

// Redemption kinds.
const (
	redeemCoupon     = "coupon"
	redeemAccessCode = "access_code"
)

// PriceRequest names the purchased item and the discounts to apply. When
// both references are set the course is the purchased item.
type PriceRequest struct {
	DoorID     string `json:"door_id"`
	CourseID   string `json:"course_id"`
	CouponCode string `json:"coupon_code"`
	AccessCode string `json:"access_code"`
}

func (r PriceRequest) normalize() PriceRequest {
	return PriceRequest{
		DoorID:     clean(r.DoorID),
		CourseID:   clean(r.CourseID),
		CouponCode: clean(r.CouponCode),
		AccessCode: clean(r.AccessCode),
	}
}

// purchase is a resolved catalog target.
type purchase struct {
	kind     string
	id       string
	courseID string
	doorID   string
	base     decimal.Decimal
	doors    []string
}

func resolvePurchase(ctx context.Context, q *store.Queries, req PriceRequest) (purchase, error) {
	switch {
	case req.CourseID != "":
		c, err := q.GetCourse(ctx, req.CourseID)
		if err != nil {
			return purchase{}, err
		}
		if req.DoorID != "" {
			d, err := q.GetDoor(ctx, req.DoorID)
			if err != nil {
				return purchase{}, err
			}
			if d.CourseID != c.ID {
				return purchase{}, apperr.ErrValidation.With("door %q does not belong to course %q", d.ID, c.ID)
			}
		}
		return purchase{
			kind:     model.TargetCourse,
			id:       c.ID,
			courseID: c.ID,
			doorID:   req.DoorID,
			base:     c.Price,
			doors:    c.DoorIDs,
		}, nil
	case req.DoorID != "":
		d, err := q.GetDoor(ctx, req.DoorID)
		if err != nil {
			return purchase{}, err
		}
		return purchase{
			kind:     model.TargetDoor,
			id:       d.ID,
			courseID: d.CourseID,
			doorID:   d.ID,
			base:     d.Price,
		}, nil
	}
	return purchase{}, apperr.ErrMissingTarget
}

// quote validates the discounts and computes the final price. It has no side
// effects. Kinds in redeemed were already counted for the order being priced,
// so their usage cap is not checked again.
func quote(ctx context.Context, q *store.Queries, p purchase, req PriceRequest, now time.Time, redeemed map[string]bool) (model.PriceQuote, error) {
	pq := model.PriceQuote{
		BasePrice:          p.base,
		CouponDiscount:     decimal.Zero,
		AccessCodeDiscount: decimal.Zero,
	}

	if req.CouponCode != "" {
		c, err := q.GetCouponByName(ctx, req.CouponCode)
		if err != nil {
			return pq, err
		}
		if c == nil {
			return pq, apperr.ErrInvalidCoupon.With("coupon %q does not exist", req.CouponCode)
		}
		if c.CourseID != "" && c.CourseID != p.courseID {
			return pq, apperr.ErrInvalidCoupon.With("coupon %q is not valid for this course", req.CouponCode)
		}
		pq.Coupon = c
		pq.CouponDiscount = c.Discount
	}

	if req.AccessCode != "" {
		a, err := q.GetAccessCode(ctx, req.AccessCode)
		if err != nil {
			return pq, err
		}
		if a == nil {
			return pq, apperr.ErrInvalidAccessCode.With("access code %q does not exist", req.AccessCode)
		}
		if a.CourseID != p.courseID {
			return pq, apperr.ErrCourseMismatch
		}
		if now.Before(a.ValidFrom) {
			return pq, apperr.ErrExpired.With("access code %q is not valid yet", req.AccessCode)
		}
		if !now.Before(a.ValidTo) {
			return pq, apperr.ErrExpired.With("access code %q has expired", req.AccessCode)
		}
		if a.UsageCount >= a.MaxUses && !redeemed[redeemAccessCode] {
			return pq, apperr.ErrUsageLimitReached
		}
		pq.AccessCode = a
		pq.AccessCodeDiscount = a.Discount
	}

	pq.FinalPrice = decimal.Max(p.base.Sub(pq.CouponDiscount).Sub(pq.AccessCodeDiscount), decimal.Zero)
	return pq, nil
}

// redeem applies the usage side effects of a quote once per order.
func (e *Engine) redeem(ctx context.Context, t *txn, orderID, studentID string, pq model.PriceQuote, now time.Time) error {
	if pq.Coupon != nil {
		first, err := t.RecordRedemption(ctx, orderID, redeemCoupon, pq.Coupon.Name, now)
		if err != nil {
			return err
		}
		if first {
			if err := t.UseCoupon(ctx, pq.Coupon.ID, studentID); err != nil {
				return err
			}
			e.metrics.Redeemed(redeemCoupon)
			slog.Info("coupon redeemed", "coupon", pq.Coupon.Name, "order", orderID, "student", studentID)
		}
	}
	if pq.AccessCode != nil {
		first, err := t.RecordRedemption(ctx, orderID, redeemAccessCode, pq.AccessCode.Code, now)
		if err != nil {
			return err
		}
		if first {
			if err := t.UseAccessCode(ctx, pq.AccessCode.ID); err != nil {
				return err
			}
			e.metrics.Redeemed(redeemAccessCode)
			slog.Info("access code redeemed", "code", pq.AccessCode.Code, "order", orderID, "student", studentID)
		}
	}
	return nil
}

// QuotePrice computes the price of an item without redeeming anything.
func (e *Engine) QuotePrice(ctx context.Context, req PriceRequest) (model.PriceQuote, error) {
	req = req.normalize()
	p, err := resolvePurchase(ctx, &e.store.Queries, req)
	if err != nil {
		return model.PriceQuote{}, err
	}
	return quote(ctx, &e.store.Queries, p, req, e.clock(), nil)
}

// ResolvePrice validates the discounts, computes the final price and
// redeems the coupon and access code for orderID. Calling it again for the
// same order returns the same price without counting the discounts twice.
func (e *Engine) ResolvePrice(ctx context.Context, studentID, orderID string, req PriceRequest) (model.PriceQuote, error) {
	req = req.normalize()
	if clean(orderID) == "" {
		return model.PriceQuote{}, apperr.ErrValidation.With("order id is required")
	}
	var pq model.PriceQuote
	err := e.run(ctx, "resolve_price", func(t *txn) error {
		now := e.clock()
		p, err := resolvePurchase(ctx, &t.Queries, req)
		if err != nil {
			return err
		}
		redeemed, err := t.RedeemedKinds(ctx, orderID)
		if err != nil {
			return err
		}
		pq, err = quote(ctx, &t.Queries, p, req, now, redeemed)
		if err != nil {
			return err
		}
		return e.redeem(ctx, t, orderID, studentID, pq, now)
	})
	return pq, err
}
