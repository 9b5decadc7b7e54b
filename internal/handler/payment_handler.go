package handler

import (
	"context"
	"net/http"
	"strings"

	"go-plan-portal/internal/model"
	"go-plan-portal/pkg/apierror"
)

type paymentProcessor interface {
	Checkout(ctx context.Context, user model.User, planName string) (model.CheckoutSession, error)
	HandleReturn(ctx context.Context, answer model.PaymentAnswer) (model.PaymentResult, error)
	HandleIPN(ctx context.Context, answer model.PaymentAnswer) (model.PaymentResult, error)
}

type PaymentHandler struct {
	payments paymentProcessor
}

func NewPaymentHandler(payments paymentProcessor) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, err := currentIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := h.payments.Checkout(r.Context(), identity.User, strings.TrimSpace(r.URL.Query().Get("plan")))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, session)
}

// Paid receives the browser return from the payment form.
func (h *PaymentHandler) Paid(w http.ResponseWriter, r *http.Request) {
	answer, err := readAnswer(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.payments.HandleReturn(r.Context(), answer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

// IPN receives the server-to-server notification. The provider only looks at
// the status code.
func (h *PaymentHandler) IPN(w http.ResponseWriter, r *http.Request) {
	answer, err := readAnswer(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.payments.HandleIPN(r.Context(), answer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

func readAnswer(r *http.Request) (model.PaymentAnswer, error) {
	if err := r.ParseForm(); err != nil {
		return model.PaymentAnswer{}, apierror.BadRequest("invalid form body", "")
	}

	answer := model.PaymentAnswer{
		Answer: r.PostFormValue("kr-answer"),
		Hash:   r.PostFormValue("kr-hash"),
	}
	if answer.Answer == "" || answer.Hash == "" {
		return model.PaymentAnswer{}, apierror.BadRequest("kr-answer and kr-hash are required", "")
	}

	return answer, nil
}
