package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"go-plan-portal/internal/model"
	"go-plan-portal/pkg/apierror"
)

const paidOrderStatus = "PAID"

type orderStore interface {
	FindPendingFor(ctx context.Context, userID int64, planID int64) (model.Order, error)
	Create(ctx context.Context, order model.Order) (model.Order, error)
	Complete(ctx context.Context, orderID int64, reference string, at time.Time) (model.Order, bool, error)
}

type PaymentService struct {
	orders   orderStore
	plans    planByNameFinder
	recorder securityRecorder
	hmacKey  []byte
	ipnKey   []byte
	now      func() time.Time
}

// NewPaymentService verifies browser returns with hmacKey and server to server
// notifications with ipnKey, falling back to hmacKey when ipnKey is empty.
func NewPaymentService(orders orderStore, plans planByNameFinder, recorder securityRecorder, hmacKey string, ipnKey string) *PaymentService {
	if strings.TrimSpace(ipnKey) == "" {
		ipnKey = hmacKey
	}

	return &PaymentService{
		orders:   orders,
		plans:    plans,
		recorder: recorder,
		hmacKey:  []byte(hmacKey),
		ipnKey:   []byte(ipnKey),
		now:      time.Now,
	}
}

// Checkout returns the caller's pending order for planName, creating one when
// none exists yet.
func (s *PaymentService) Checkout(ctx context.Context, user model.User, planName string) (model.CheckoutSession, error) {
	planName = strings.TrimSpace(planName)
	if planName == "" {
		return model.CheckoutSession{}, apierror.BadRequest("plan is required", "")
	}

	plan, err := s.plans.FindByName(ctx, planName)
	if err != nil {
		if errors.Is(err, model.ErrPlanNotFound) {
			return model.CheckoutSession{}, apierror.Wrap(model.ErrPlanNotFound, "PLAN_NOT_FOUND", "plan not found", http.StatusBadRequest)
		}
		return model.CheckoutSession{}, fmt.Errorf("checkout plan lookup: %w", err)
	}

	order, err := s.orders.FindPendingFor(ctx, user.ID, plan.ID)
	if err == nil {
		return model.CheckoutSession{Order: order, Plan: plan}, nil
	}
	if !errors.Is(err, model.ErrOrderNotFound) {
		return model.CheckoutSession{}, fmt.Errorf("checkout order lookup: %w", err)
	}

	order, err = s.orders.Create(ctx, model.Order{UserID: user.ID, PlanID: plan.ID, Status: model.OrderStatusPending})
	if err != nil {
		return model.CheckoutSession{}, fmt.Errorf("create order: %w", err)
	}

	slog.Info("order created", "order_id", order.ID, "user_id", user.ID, "plan", plan.Name)
	return model.CheckoutSession{Order: order, Plan: plan}, nil
}

// HandleReturn processes the answer posted back by the customer's browser.
func (s *PaymentService) HandleReturn(ctx context.Context, answer model.PaymentAnswer) (model.PaymentResult, error) {
	return s.handle(ctx, answer, s.hmacKey)
}

// HandleIPN processes the provider's instant payment notification.
func (s *PaymentService) HandleIPN(ctx context.Context, answer model.PaymentAnswer) (model.PaymentResult, error) {
	return s.handle(ctx, answer, s.ipnKey)
}

func (s *PaymentService) handle(ctx context.Context, answer model.PaymentAnswer, key []byte) (model.PaymentResult, error) {
	if !VerifyAnswerSignature(key, answer.Answer, answer.Hash) {
		if s.recorder != nil {
			s.recorder.Record(ctx, model.SecurityEvent{
				EventType:   model.EventPaymentSignature,
				Description: "payment answer with invalid signature",
			})
		}
		return model.PaymentResult{}, apierror.Wrap(model.ErrInvalidSignature, "INVALID_SIGNATURE", "invalid payment signature", http.StatusBadRequest)
	}

	if !gjson.Valid(answer.Answer) {
		return model.PaymentResult{}, apierror.BadRequest("payment answer is not valid JSON", "")
	}

	parsed := gjson.Parse(answer.Answer)
	result := model.PaymentResult{
		OrderStatus: parsed.Get("orderStatus").String(),
		OrderID:     parsed.Get("orderDetails.orderId").Int(),
		Reference:   parsed.Get("transactions.0.uuid").String(),
	}

	if result.OrderStatus != paidOrderStatus || result.OrderID <= 0 {
		slog.Info("payment answer not applied", "order_status", result.OrderStatus, "order_id", result.OrderID)
		return result, nil
	}

	order, applied, err := s.orders.Complete(ctx, result.OrderID, result.Reference, s.now().UTC())
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			slog.Warn("payment for unknown order", "order_id", result.OrderID)
			return result, nil
		}
		return model.PaymentResult{}, fmt.Errorf("complete order %d: %w", result.OrderID, err)
	}

	result.Applied = applied
	if applied {
		slog.Info("order paid", "order_id", order.ID, "user_id", order.UserID, "plan_id", order.PlanID)
	}

	return result, nil
}

// VerifyAnswerSignature checks hash against the hex HMAC-SHA256 of answer in
// constant time.
func VerifyAnswerSignature(key []byte, answer string, hash string) bool {
	if len(key) == 0 || answer == "" || hash == "" {
		return false
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(answer))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(hash))))
}
