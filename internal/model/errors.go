package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrWeakPassword       = errors.New("weak password")

	// Token related errors
	ErrTokenMissing = errors.New("token missing")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")

	// Plan and payment errors
	ErrPlanNotFound     = errors.New("plan not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrItemNotFound     = errors.New("item not found")

	// Permission/Access related errors
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrRecaptchaFailed = errors.New("recaptcha verification failed")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
