package model

type LoginRequest struct {
	Email         string
	Password      string
	RecaptchaCode string
	ClientIP      string
}

type RegisterRequest struct {
	Email           string
	Password        string
	ConfirmPassword string
	FullName        string
	LastName        string
	PhoneNumber     string
	Company         string
	JobTitle        string
	AcceptDPA       bool
	RecaptchaCode   string
	ClientIP        string
}

// PaymentAnswer is the signed callback body posted by the payment provider.
type PaymentAnswer struct {
	Answer string
	Hash   string
}

type PaymentResult struct {
	OrderStatus string `json:"order_status"`
	OrderID     int64  `json:"order_id,omitempty"`
	Reference   string `json:"payment_reference,omitempty"`
	Applied     bool   `json:"applied"`
}
