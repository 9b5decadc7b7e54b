package model

import "time"

type User struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	LastName       string     `json:"last_name,omitempty"`
	PhoneNumber    string     `json:"phone_number,omitempty"`
	Company        string     `json:"company,omitempty"`
	JobTitle       string     `json:"job_title,omitempty"`
	PasswordHash   string     `json:"-"`
	FailedAttempts int        `json:"-"`
	LockUntil      *time.Time `json:"-"`
	PlanID         *int64     `json:"plan_id,omitempty"`
	PlanAssignedAt *time.Time `json:"plan_assigned_at,omitempty"`
	AuditFields
}

// IsLocked reports whether the account is inside a lockout window at now.
func (u User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// Identity is the authenticated caller of a single request.
type Identity struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	User   User   `json:"-"`
}

func NewIdentity(user User) *Identity {
	return &Identity{UserID: user.ID, Email: user.Email, User: user}
}

type AuthUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func (u User) Public() AuthUser {
	return AuthUser{ID: u.ID, Email: u.Email, FullName: u.FullName}
}

// LoginFailure is the counter state after a failed login was recorded.
type LoginFailure struct {
	Attempts  int
	LockUntil *time.Time
}

// ProfileUpdate holds the fields a user may edit on their own profile.
type ProfileUpdate struct {
	FullName    string
	LastName    string
	PhoneNumber string
	Company     string
	JobTitle    string
}

// ProfileExport is the personal data handed out by the export download.
type ProfileExport struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	LastName    string    `json:"last_name"`
	PhoneNumber string    `json:"phone_number"`
	Company     string    `json:"company"`
	JobTitle    string    `json:"job_title"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u User) Export() ProfileExport {
	return ProfileExport{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		Company:     u.Company,
		JobTitle:    u.JobTitle,
		CreatedAt:   u.CreatedAt,
	}
}
