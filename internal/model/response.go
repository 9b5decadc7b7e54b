package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// PageModel stands in for a rendered page: the view name plus the values a
// template would receive.
type PageModel struct {
	View             string         `json:"view"`
	RecaptchaSiteKey string         `json:"recaptcha_site_key,omitempty"`
	CSRFToken        string         `json:"csrf_token,omitempty"`
	Values           map[string]any `json:"values,omitempty"`
}

type DashboardView struct {
	User       AuthUser   `json:"user"`
	PlanStatus PlanStatus `json:"plan_status"`
	Items      []Item     `json:"items"`
}
