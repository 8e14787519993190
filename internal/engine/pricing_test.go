package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/academy/internal/apperr"
	"github.com/pavelanni/academy/internal/model"
)

func TestQuotePrice(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	f.coupon(t, "SAVE20", 20, "")
	f.coupon(t, "PHYS30", 30, "course-1")
	f.coupon(t, "CHEM10", 10, "course-2")
	f.coupon(t, "HUGE", 500, "")
	f.accessCode(t, "AC10", "course-1", 10, 5)
	f.accessCode(t, "CHEMAC", "course-2", 10, 5)
	if _, err := f.eng.CreateAccessCode(ctx, AccessCodeRequest{
		Code: "OLD", CourseID: "course-1", Discount: dec(10),
		ValidFrom: testStart.Add(-48 * time.Hour), ValidTo: testStart, MaxUses: 5,
	}); err != nil {
		t.Fatalf("CreateAccessCode: %v", err)
	}
	if _, err := f.eng.CreateAccessCode(ctx, AccessCodeRequest{
		Code: "SOON", CourseID: "course-1", Discount: dec(10),
		ValidFrom: testStart.Add(time.Minute), ValidTo: testStart.Add(time.Hour), MaxUses: 5,
	}); err != nil {
		t.Fatalf("CreateAccessCode: %v", err)
	}

	tests := []struct {
		name    string
		req     PriceRequest
		want    int64
		wantErr error
	}{
		{name: "course base price", req: PriceRequest{CourseID: "course-1"}, want: 100},
		{name: "door base price", req: PriceRequest{DoorID: "door-2"}, want: 30},
		{name: "course wins over door", req: PriceRequest{CourseID: "course-1", DoorID: "door-1"}, want: 100},
		{name: "coupon and access code stack", req: PriceRequest{CourseID: "course-1", CouponCode: "SAVE20", AccessCode: "AC10"}, want: 70},
		{name: "bound coupon on its course", req: PriceRequest{CourseID: "course-1", CouponCode: "PHYS30"}, want: 70},
		{name: "bound coupon on a door of its course", req: PriceRequest{DoorID: "door-1", CouponCode: "PHYS30"}, want: 10},
		{name: "clamped at zero", req: PriceRequest{CourseID: "course-1", CouponCode: "HUGE"}, want: 0},
		{name: "codes are trimmed", req: PriceRequest{CourseID: " course-1 ", CouponCode: " SAVE20 "}, want: 80},
		{name: "missing target", req: PriceRequest{CouponCode: "SAVE20"}, wantErr: apperr.ErrMissingTarget},
		{name: "unknown course", req: PriceRequest{CourseID: "nope"}, wantErr: apperr.KindNotFound},
		{name: "door outside course", req: PriceRequest{CourseID: "course-1", DoorID: "door-3"}, wantErr: apperr.KindValidation},
		{name: "unknown coupon", req: PriceRequest{CourseID: "course-1", CouponCode: "NOPE"}, wantErr: apperr.ErrInvalidCoupon},
		{name: "coupon bound to other course", req: PriceRequest{CourseID: "course-1", CouponCode: "CHEM10"}, wantErr: apperr.ErrInvalidCoupon},
		{name: "unknown access code", req: PriceRequest{CourseID: "course-1", AccessCode: "NOPE"}, wantErr: apperr.ErrInvalidAccessCode},
		{name: "access code for other course", req: PriceRequest{CourseID: "course-1", AccessCode: "CHEMAC"}, wantErr: apperr.ErrCourseMismatch},
		{name: "access code at valid_to", req: PriceRequest{CourseID: "course-1", AccessCode: "OLD"}, wantErr: apperr.KindExpiredOrExhausted},
		{name: "access code not yet valid", req: PriceRequest{CourseID: "course-1", AccessCode: "SOON"}, wantErr: apperr.ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pq, err := f.eng.QuotePrice(ctx, tt.req)
			if tt.wantErr != nil {
				wantErr(t, err, tt.wantErr)
				return
			}
			if err != nil {
				t.Fatalf("QuotePrice: %v", err)
			}
			if !pq.FinalPrice.Equal(dec(tt.want)) {
				t.Errorf("final price = %s, want %d", pq.FinalPrice, tt.want)
			}
		})
	}

	if n := f.couponUsage(t, "SAVE20"); n != 0 {
		t.Errorf("quote must not redeem, coupon usage = %d", n)
	}
	if n := f.accessUsage(t, "AC10"); n != 0 {
		t.Errorf("quote must not redeem, access code usage = %d", n)
	}
}

func TestQuoteReportsDiscountComponents(t *testing.T) {
	f := newTestEngine(t)
	f.coupon(t, "SAVE20", 20, "")
	f.accessCode(t, "AC10", "course-1", 10, 1)

	pq, err := f.eng.QuotePrice(context.Background(), PriceRequest{CourseID: "course-1", CouponCode: "SAVE20", AccessCode: "AC10"})
	if err != nil {
		t.Fatalf("QuotePrice: %v", err)
	}
	if !pq.BasePrice.Equal(dec(100)) || !pq.CouponDiscount.Equal(dec(20)) || !pq.AccessCodeDiscount.Equal(dec(10)) {
		t.Errorf("unexpected components %+v", pq)
	}
	if pq.Coupon == nil || pq.AccessCode == nil {
		t.Error("expected the applied coupon and access code on the quote")
	}
}

func TestResolvePriceRedeemsOncePerOrder(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	f.coupon(t, "SAVE20", 20, "")
	f.accessCode(t, "AC10", "course-1", 10, 1)

	orderID := uuid.NewString()
	req := PriceRequest{CourseID: "course-1", CouponCode: "SAVE20", AccessCode: "AC10"}
	for i := 0; i < 3; i++ {
		pq, err := f.eng.ResolvePrice(ctx, "stu-1", orderID, req)
		if err != nil {
			t.Fatalf("ResolvePrice call %d: %v", i+1, err)
		}
		if !pq.FinalPrice.Equal(dec(70)) {
			t.Errorf("call %d: final price = %s, want 70", i+1, pq.FinalPrice)
		}
	}
	if n := f.couponUsage(t, "SAVE20"); n != 1 {
		t.Errorf("coupon usage = %d, want 1", n)
	}
	if n := f.accessUsage(t, "AC10"); n != 1 {
		t.Errorf("access code usage = %d, want 1", n)
	}

	// The cap is now reached for any other order.
	_, err := f.eng.ResolvePrice(ctx, "stu-2", uuid.NewString(), req)
	wantErr(t, err, apperr.ErrUsageLimitReached)
	if n := f.couponUsage(t, "SAVE20"); n != 1 {
		t.Errorf("failed resolution must not redeem the coupon, usage = %d", n)
	}
}

func TestResolvePriceRequiresOrderID(t *testing.T) {
	f := newTestEngine(t)
	_, err := f.eng.ResolvePrice(context.Background(), "stu-1", " ", PriceRequest{CourseID: "course-1"})
	wantErr(t, err, apperr.KindValidation)
}

func TestCouponUsedBySetIsIdempotent(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()
	c := f.coupon(t, "SAVE20", 20, "")
	u, err := f.store.CreateUser(ctx, model.User{Username: "dina", PasswordHash: "x", Role: model.UserRoleStudent, Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	caller := model.Caller{StudentID: u.ID}

	if _, err := f.eng.PlaceOrder(ctx, caller, OrderRequest{PriceRequest: PriceRequest{DoorID: "door-1", CouponCode: "SAVE20"}}); err != nil {
		t.Fatalf("PlaceOrder door-1: %v", err)
	}
	if _, err := f.eng.PlaceOrder(ctx, caller, OrderRequest{PriceRequest: PriceRequest{DoorID: "door-2", CouponCode: "SAVE20"}}); err != nil {
		t.Fatalf("PlaceOrder door-2: %v", err)
	}

	stats, err := f.eng.CouponStats(ctx, c.ID)
	if err != nil {
		t.Fatalf("CouponStats: %v", err)
	}
	if stats.Coupon.UsageCount != 2 {
		t.Errorf("usage count = %d, want 2", stats.Coupon.UsageCount)
	}
	if len(stats.Users) != 1 || stats.Users[0].ID != u.ID {
		t.Errorf("users = %+v, want only %s", stats.Users, u.ID)
	}
	if !stats.TotalRevenue.Equal(dec(10)) {
		t.Errorf("total revenue = %s, want 10", stats.TotalRevenue)
	}
}
