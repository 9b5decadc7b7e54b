package model

import "time"

// Auditable is implemented by every persisted entity that carries audit
// metadata. Entities opt in by embedding AuditFields.
type Auditable interface {
	StampCreated(actorID *int64, at time.Time)
	StampUpdated(actorID *int64, at time.Time)
}

type AuditFields struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	CreatedBy *int64     `json:"created_by,omitempty"`
	UpdatedBy *int64     `json:"updated_by,omitempty"`
}

func (a *AuditFields) StampCreated(actorID *int64, at time.Time) {
	a.CreatedAt = at
	a.CreatedBy = actorID
}

func (a *AuditFields) StampUpdated(actorID *int64, at time.Time) {
	a.UpdatedAt = &at
	a.UpdatedBy = actorID
}

type SecurityEventType string

const (
	EventUnauthorizedAccess SecurityEventType = "unauthorized_access"
	EventCSRFFailed         SecurityEventType = "csrf_failed"
	EventLoginFailed        SecurityEventType = "login_failed"
	EventRecaptchaFailed    SecurityEventType = "recaptcha_failed"
	EventPaymentSignature   SecurityEventType = "payment_signature_failed"
)

// SecurityEvent is one row of the security log.
type SecurityEvent struct {
	ID          int64             `json:"id"`
	UserID      *int64            `json:"user_id,omitempty"`
	IPAddress   string            `json:"ip_address"`
	EventType   SecurityEventType `json:"event_type"`
	Description string            `json:"description,omitempty"`
	AuditFields
}

type SecurityLogQuery struct {
	UserID    *int64
	EventType SecurityEventType
	Since     time.Time
	Limit     int
}

type SecurityEventList struct {
	Items []SecurityEvent `json:"items"`
}
