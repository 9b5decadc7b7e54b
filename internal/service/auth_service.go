package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"go-plan-portal/internal/model"
	"go-plan-portal/pkg/apierror"
)

const (
	recaptchaActionLogin    = "login"
	recaptchaActionRegister = "register"

	passwordSymbols = "!@#$%^&*(),.?\":{}|<>"
)

type userStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, user model.User) (model.User, error)
	RecordFailedLogin(ctx context.Context, userID int64, maxAttempts int, lockFor time.Duration, now time.Time) (model.LoginFailure, error)
	ResetFailedAttempts(ctx context.Context, userID int64) error
}

type planByNameFinder interface {
	FindByName(ctx context.Context, name string) (model.Plan, error)
}

type humanVerifier interface {
	Verify(ctx context.Context, token string, action string) (bool, error)
}

type AuthOptions struct {
	MaxFailedAttempts int
	LockTime          time.Duration
	FreePlanName      string
	BcryptCost        int
}

type AuthService struct {
	users    userStore
	plans    planByNameFinder
	tokens   *TokenService
	human    humanVerifier
	recorder securityRecorder
	opts     AuthOptions
	now      func() time.Time

	// checked against when the e-mail is unknown
	dummyHash []byte
}

func NewAuthService(users userStore, plans planByNameFinder, tokens *TokenService, human humanVerifier, recorder securityRecorder, opts AuthOptions) *AuthService {
	if opts.MaxFailedAttempts <= 0 {
		opts.MaxFailedAttempts = 5
	}
	if opts.LockTime <= 0 {
		opts.LockTime = 30 * time.Minute
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 12
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("unused-password"), opts.BcryptCost)
	if err != nil {
		slog.Warn("failed to prepare dummy password hash", "error", err)
	}

	return &AuthService{
		users:     users,
		plans:     plans,
		tokens:    tokens,
		human:     human,
		recorder:  recorder,
		opts:      opts,
		now:       time.Now,
		dummyHash: dummy,
	}
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthUser, model.TokenPair, error) {
	email := normalizeEmail(req.Email)

	if !s.verifyHuman(ctx, req.RecaptchaCode, recaptchaActionLogin) {
		s.record(ctx, nil, req.ClientIP, model.EventRecaptchaFailed, "recaptcha failed during login")
		return model.AuthUser{}, model.TokenPair{}, apierror.Wrap(model.ErrRecaptchaFailed, "RECAPTCHA_FAILED", "recaptcha verification failed", http.StatusBadRequest)
	}

	user, err := s.users.FindByEmail(ctx, email)
	found := err == nil
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return model.AuthUser{}, model.TokenPair{}, fmt.Errorf("login lookup: %w", err)
	}

	now := s.now().UTC()
	if found && user.IsLocked(now) {
		minutes := int(user.LockUntil.Sub(now)/time.Minute) + 1
		lockErr := apierror.Wrap(model.ErrAccountLocked, "ACCOUNT_LOCKED", "account temporarily locked", http.StatusLocked)
		lockErr.Details = "try again in " + strconv.Itoa(minutes) + " minutes"
		return model.AuthUser{}, model.TokenPair{}, lockErr
	}

	if !found || !s.passwordMatches(user.PasswordHash, req.Password) {
		var userID *int64
		if found {
			userID = &user.ID
			if _, err := s.users.RecordFailedLogin(ctx, user.ID, s.opts.MaxFailedAttempts, s.opts.LockTime, now); err != nil {
				slog.Error("failed to record login failure", "user_id", user.ID, "error", err)
			}
		} else {
			s.passwordMatches(string(s.dummyHash), req.Password)
		}

		s.record(ctx, userID, req.ClientIP, model.EventLoginFailed, "failed login for "+email)
		return model.AuthUser{}, model.TokenPair{}, apierror.Wrap(model.ErrInvalidCredentials, "INVALID_CREDENTIALS", "invalid credentials", http.StatusUnauthorized)
	}

	if user.FailedAttempts > 0 || user.LockUntil != nil {
		if err := s.users.ResetFailedAttempts(ctx, user.ID); err != nil {
			slog.Error("failed to reset login attempts", "user_id", user.ID, "error", err)
		}
	}

	pair, err := s.tokens.IssuePair(user.Email)
	if err != nil {
		return model.AuthUser{}, model.TokenPair{}, err
	}

	return user.Public(), pair, nil
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthUser, model.TokenPair, error) {
	if !s.verifyHuman(ctx, req.RecaptchaCode, recaptchaActionRegister) {
		s.record(ctx, nil, req.ClientIP, model.EventRecaptchaFailed, "recaptcha failed during registration")
		return model.AuthUser{}, model.TokenPair{}, apierror.Wrap(model.ErrRecaptchaFailed, "RECAPTCHA_FAILED", "recaptcha verification failed", http.StatusBadRequest)
	}

	email := normalizeEmail(req.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return model.AuthUser{}, model.TokenPair{}, apierror.BadRequest("a valid email is required", req.Email)
	}
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.PhoneNumber) == "" {
		return model.AuthUser{}, model.TokenPair{}, apierror.BadRequest("full name and phone number are required", "")
	}
	if !req.AcceptDPA {
		return model.AuthUser{}, model.TokenPair{}, apierror.BadRequest("the data processing agreement must be accepted", "")
	}
	if req.Password != req.ConfirmPassword {
		return model.AuthUser{}, model.TokenPair{}, apierror.BadRequest("passwords do not match", "")
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return model.AuthUser{}, model.TokenPair{}, apierror.Wrap(model.ErrUserAlreadyExists, "ALREADY_EXISTS", "email already registered", http.StatusConflict)
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return model.AuthUser{}, model.TokenPair{}, fmt.Errorf("register lookup: %w", err)
	}

	if err := ValidatePasswordStrength(req.Password); err != nil {
		return model.AuthUser{}, model.TokenPair{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.BcryptCost)
	if err != nil {
		return model.AuthUser{}, model.TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	user := model.User{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		LastName:     strings.TrimSpace(req.LastName),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		Company:      strings.TrimSpace(req.Company),
		JobTitle:     strings.TrimSpace(req.JobTitle),
		PasswordHash: string(hash),
	}
	s.assignFreePlan(ctx, &user)

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return model.AuthUser{}, model.TokenPair{}, apierror.Wrap(model.ErrUserAlreadyExists, "ALREADY_EXISTS", "email already registered", http.StatusConflict)
		}
		return model.AuthUser{}, model.TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.tokens.IssuePair(created.Email)
	if err != nil {
		return model.AuthUser{}, model.TokenPair{}, err
	}

	return created.Public(), pair, nil
}

// ValidatePasswordStrength requires at least 8 characters with an upper case
// letter, a lower case letter, a digit and a symbol.
func ValidatePasswordStrength(password string) error {
	weak := func(details string) error {
		e := apierror.Wrap(model.ErrWeakPassword, "WEAK_PASSWORD", "password is too weak", http.StatusBadRequest)
		e.Details = details
		return e
	}

	if len([]rune(password)) < 8 {
		return weak("password must be at least 8 characters long")
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}

	switch {
	case !upper:
		return weak("password must contain an upper case letter")
	case !lower:
		return weak("password must contain a lower case letter")
	case !digit:
		return weak("password must contain a digit")
	case !symbol:
		return weak("password must contain a symbol")
	}

	return nil
}

func (s *AuthService) assignFreePlan(ctx context.Context, user *model.User) {
	if s.plans == nil || strings.TrimSpace(s.opts.FreePlanName) == "" {
		return
	}

	plan, err := s.plans.FindByName(ctx, s.opts.FreePlanName)
	if err != nil {
		slog.Warn("free plan unavailable", "name", s.opts.FreePlanName, "error", err)
		return
	}
	if !plan.IsFree {
		slog.Warn("configured free plan is not marked free", "name", plan.Name)
		return
	}

	assignedAt := s.now().UTC()
	user.PlanID = &plan.ID
	user.PlanAssignedAt = &assignedAt
}

func (s *AuthService) verifyHuman(ctx context.Context, token string, action string) bool {
	if s.human == nil {
		return true
	}

	ok, err := s.human.Verify(ctx, token, action)
	if err != nil {
		slog.Warn("recaptcha verification error", "action", action, "error", err)
		return false
	}
	return ok
}

func (s *AuthService) passwordMatches(hash string, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *AuthService) record(ctx context.Context, userID *int64, ip string, eventType model.SecurityEventType, description string) {
	if s.recorder == nil {
		return
	}

	s.recorder.Record(ctx, model.SecurityEvent{
		UserID:      userID,
		IPAddress:   ip,
		EventType:   eventType,
		Description: description,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
