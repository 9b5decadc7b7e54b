package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const recaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

type RecaptchaVerifier struct {
	secret   string
	minScore float64
	endpoint string
	client   *http.Client
}

func NewRecaptchaVerifier(secret string, minScore float64) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		secret:   strings.TrimSpace(secret),
		minScore: minScore,
		endpoint: recaptchaVerifyURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *RecaptchaVerifier) Enabled() bool {
	return v != nil && v.secret != ""
}

// Verify reports whether a v3 token was accepted for action with at least the
// configured score. Verification is skipped when no secret is configured.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token string, action string) (bool, error) {
	if !v.Enabled() {
		return true, nil
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}

	form := url.Values{"secret": {v.secret}, "response": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("build recaptcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("call recaptcha: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return false, fmt.Errorf("read recaptcha response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !gjson.ValidBytes(body) {
		return false, fmt.Errorf("recaptcha responded with status %d", resp.StatusCode)
	}

	result := gjson.ParseBytes(body)
	if !result.Get("success").Bool() {
		slog.Debug("recaptcha rejected token", "errors", result.Get("error-codes").String())
		return false, nil
	}

	return result.Get("action").String() == action && result.Get("score").Float() >= v.minScore, nil
}
