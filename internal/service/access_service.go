package service

import (
	"context"
	"log/slog"
	"net/http"

	"go-plan-portal/internal/model"
	"go-plan-portal/internal/route"
)

type securityRecorder interface {
	Record(ctx context.Context, event model.SecurityEvent)
}

type planStatusReader interface {
	Status(ctx context.Context, user model.User) (model.PlanStatus, error)
}

type DecisionKind int

const (
	Allow DecisionKind = iota
	Redirect
	Deny
)

func (k DecisionKind) String() string {
	switch k {
	case Redirect:
		return "redirect"
	case Deny:
		return "deny"
	default:
		return "allow"
	}
}

// Decision is the outcome for one request. Target is set for Redirect;
// Status, Code and Message are set for Deny.
type Decision struct {
	Kind    DecisionKind
	Target  string
	Status  int
	Code    string
	Message string
}

func allow() Decision {
	return Decision{Kind: Allow}
}

func redirectTo(target string) Decision {
	return Decision{Kind: Redirect, Target: target}
}

func deny(status int, code string, message string) Decision {
	return Decision{Kind: Deny, Status: status, Code: code, Message: message}
}

type AccessService struct {
	plans    planStatusReader
	recorder securityRecorder
}

func NewAccessService(plans planStatusReader, recorder securityRecorder) *AccessService {
	return &AccessService{plans: plans, recorder: recorder}
}

// Decide applies the route policy to a resolved request. Unclassified paths
// are allowed.
func (s *AccessService) Decide(ctx context.Context, path string, identity *model.Identity, clientIP string) Decision {
	switch route.Classify(path) {
	case route.AuthOnly:
		if identity != nil {
			return redirectTo(route.DashboardPath)
		}
		return allow()

	case route.Public:
		return allow()

	case route.Protected:
		if identity == nil {
			s.recordUnauthorized(ctx, path, clientIP)
			return redirectTo(route.LoginPath)
		}
		return s.decidePlan(ctx, path, identity)

	default:
		return allow()
	}
}

// decidePlan gates an authenticated request on its plan. The payment funnel is
// exempt so a user without a usable plan can still buy one.
func (s *AccessService) decidePlan(ctx context.Context, path string, identity *model.Identity) Decision {
	if !route.ShouldBlockPlanAccess(path) {
		return allow()
	}

	status, err := s.plans.Status(ctx, identity.User)
	if err != nil {
		slog.Error("plan status lookup failed", "user_id", identity.UserID, "path", path, "error", err)
		return deny(http.StatusInternalServerError, "INTERNAL_ERROR", "unable to verify plan")
	}

	switch status {
	case model.PlanStatusNone:
		return redirectTo(route.CheckoutStarterURL)
	case model.PlanStatusExpired:
		return deny(http.StatusForbidden, "PLAN_EXPIRED", "your plan has expired, renew it to continue")
	default:
		return allow()
	}
}

func (s *AccessService) recordUnauthorized(ctx context.Context, path string, clientIP string) {
	if s.recorder == nil {
		return
	}

	s.recorder.Record(ctx, model.SecurityEvent{
		IPAddress:   clientIP,
		EventType:   model.EventUnauthorizedAccess,
		Description: "unauthorized access to " + path,
	})
}
