package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderApproved OrderStatus = "approved"
	OrderRejected OrderStatus = "rejected"
)

// Order is a student's purchase request for a door or a course.
type Order struct {
	ID         string          `json:"id"`
	StudentID  string          `json:"student_id"`
	DoorID     string          `json:"door_id,omitempty"`
	CourseID   string          `json:"course_id,omitempty"`
	Status     OrderStatus     `json:"status"`
	CouponCode string          `json:"coupon_code,omitempty"`
	AccessCode string          `json:"access_code,omitempty"`
	FinalPrice decimal.Decimal `json:"final_price"`
	Doors      []string        `json:"doors,omitempty"` // course doors at purchase time
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Target returns the kind and id of the primary purchased item. A course
// takes precedence when both references are set.
func (o Order) Target() (kind, id string) {
	if o.CourseID != "" {
		return TargetCourse, o.CourseID
	}
	return TargetDoor, o.DoorID
}

// Order target kinds.
const (
	TargetDoor   = "door"
	TargetCourse = "course"
)

// Coupon is a named discount, optionally bound to one course.
type Coupon struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Discount   decimal.Decimal `json:"discount"`
	Commission decimal.Decimal `json:"commission"`
	CourseID   string          `json:"course_id,omitempty"`
	UsageCount int             `json:"usage_count"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CouponStats reports a coupon's usage and the students who used it.
type CouponStats struct {
	Coupon       Coupon          `json:"coupon"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	Users        []User          `json:"users"`
}

// AccessCode is a course-scoped discount code with a validity window and a
// usage cap.
type AccessCode struct {
	ID         string          `json:"id"`
	Code       string          `json:"code"`
	CourseID   string          `json:"course_id"`
	Discount   decimal.Decimal `json:"discount"`
	ValidFrom  time.Time       `json:"valid_from"`
	ValidTo    time.Time       `json:"valid_to"`
	UsageCount int             `json:"usage_count"`
	MaxUses    int             `json:"max_uses"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Entitlement lists what a student may access.
type Entitlement struct {
	StudentID string   `json:"student_id"`
	Courses   []string `json:"courses"`
	Doors     []string `json:"doors"`
}

// PriceQuote is the outcome of price resolution.
type PriceQuote struct {
	BasePrice          decimal.Decimal `json:"base_price"`
	CouponDiscount     decimal.Decimal `json:"coupon_discount"`
	AccessCodeDiscount decimal.Decimal `json:"access_code_discount"`
	FinalPrice         decimal.Decimal `json:"final_price"`
	Coupon             *Coupon         `json:"-"`
	AccessCode         *AccessCode     `json:"-"`
}
