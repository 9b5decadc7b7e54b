package model

import "time"

type PlanStatus string

const (
	PlanStatusNone    PlanStatus = "no_plan"
	PlanStatusActive  PlanStatus = "active"
	PlanStatusExpired PlanStatus = "expired"
)

type Plan struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	PriceCents   int64          `json:"price_cents"`
	Description  string         `json:"description,omitempty"`
	Features     map[string]any `json:"features,omitempty"`
	IsFree       bool           `json:"is_free"`
	ValidityDays *int           `json:"validity_days,omitempty"`
	AuditFields
}

// ExpiresAt returns the end of the validity window for an assignment made at
// assignedAt. ok is false for plans without a window.
func (p Plan) ExpiresAt(assignedAt time.Time) (expiresAt time.Time, ok bool) {
	if p.ValidityDays == nil {
		return time.Time{}, false
	}

	return assignedAt.AddDate(0, 0, *p.ValidityDays), true
}

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

type Order struct {
	ID               int64       `json:"id"`
	UserID           int64       `json:"user_id"`
	PlanID           int64       `json:"plan_id"`
	Status           OrderStatus `json:"status"`
	PaymentReference string      `json:"payment_reference,omitempty"`
	AuditFields
}

type CheckoutSession struct {
	Order Order `json:"order"`
	Plan  Plan  `json:"plan"`
}
