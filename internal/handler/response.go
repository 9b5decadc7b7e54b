package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-plan-portal/internal/model"
	"go-plan-portal/pkg/apierror"
)

type sentinelMapping struct {
	err     error
	status  int
	code    string
	message string
}

// First match wins. Errors built with apierror never reach this table.
var sentinelMappings = []sentinelMapping{
	{model.ErrTokenMissing, http.StatusUnauthorized, "TOKEN_MISSING", "Refresh token is missing"},
	{model.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED", "Refresh token has expired"},
	{model.ErrTokenInvalid, http.StatusUnauthorized, "TOKEN_INVALID", "Refresh token is invalid"},
	{model.ErrUserAlreadyExists, http.StatusConflict, "ALREADY_EXISTS", "User already exists"},
	{model.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials"},
	{model.ErrAccountLocked, http.StatusLocked, "ACCOUNT_LOCKED", "Account temporarily locked"},
	{model.ErrWeakPassword, http.StatusBadRequest, "WEAK_PASSWORD", "Password is too weak"},
	{model.ErrRecaptchaFailed, http.StatusBadRequest, "RECAPTCHA_FAILED", "reCAPTCHA verification failed"},
	{model.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required"},
	{model.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "Access denied"},
	{model.ErrPlanNotFound, http.StatusNotFound, "PLAN_NOT_FOUND", "Plan not found"},
	{model.ErrOrderNotFound, http.StatusNotFound, "NOT_FOUND", "Order not found"},
	{model.ErrItemNotFound, http.StatusNotFound, "NOT_FOUND", "Item not found"},
	{model.ErrInvalidSignature, http.StatusBadRequest, "INVALID_SIGNATURE", "Invalid payment signature"},
	{model.ErrInvalidInput, http.StatusBadRequest, "BAD_REQUEST", "Invalid input"},
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, model.APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classifyError(err)
	writeEnvelope(w, status, model.APIResponse{Success: false, Error: body})
}

func classifyError(err error) (int, *model.APIError) {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus, &model.APIError{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details}
	}

	for _, m := range sentinelMappings {
		if errors.Is(err, m.err) {
			return m.status, &model.APIError{Code: m.code, Message: m.message}
		}
	}

	slog.Error("unhandled error in writeError", "error", err)
	return http.StatusInternalServerError, &model.APIError{Code: "INTERNAL_ERROR", Message: "Unexpected server error"}
}

func writeEnvelope(w http.ResponseWriter, status int, body model.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
