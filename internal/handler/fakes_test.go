package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"go-plan-portal/internal/model"
	"go-plan-portal/internal/requestctx"
)

var caller = model.User{ID: 21, Email: "caller@example.com", FullName: "Caller"}

func withCaller(ctx context.Context) context.Context {
	return requestctx.WithIdentity(ctx, model.NewIdentity(caller))
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

type fakeAuth struct {
	loginReq    model.LoginRequest
	registerReq model.RegisterRequest
	err         error
}

func (f *fakeAuth) Login(_ context.Context, req model.LoginRequest) (model.AuthUser, model.TokenPair, error) {
	f.loginReq = req
	if f.err != nil {
		return model.AuthUser{}, model.TokenPair{}, f.err
	}
	return caller.Public(), model.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}, nil
}

func (f *fakeAuth) Register(_ context.Context, req model.RegisterRequest) (model.AuthUser, model.TokenPair, error) {
	f.registerReq = req
	if f.err != nil {
		return model.AuthUser{}, model.TokenPair{}, f.err
	}
	return caller.Public(), model.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

type fakeRefresher struct {
	got string
	err error
}

func (f *fakeRefresher) Refresh(_ context.Context, refreshToken string) (string, error) {
	f.got = refreshToken
	if f.err != nil {
		return "", f.err
	}
	return "renewed-access", nil
}

type fakeStatus struct {
	status model.PlanStatus
	err    error
}

func (f fakeStatus) Status(context.Context, model.User) (model.PlanStatus, error) {
	return f.status, f.err
}

type fakeItemManager struct {
	items   []model.Item
	created string
	deleted int64
	err     error
}

func (f *fakeItemManager) List(context.Context, int64) ([]model.Item, error) {
	return f.items, f.err
}

func (f *fakeItemManager) Create(_ context.Context, ownerID int64, name string) (model.Item, error) {
	f.created = name
	if f.err != nil {
		return model.Item{}, f.err
	}
	return model.Item{ID: 5, Name: name, OwnerID: ownerID}, nil
}

func (f *fakeItemManager) Delete(_ context.Context, _ int64, itemID int64) error {
	f.deleted = itemID
	return f.err
}

type fakePayments struct {
	plan     string
	returned model.PaymentAnswer
	notified model.PaymentAnswer
	result   model.PaymentResult
	err      error
}

func (f *fakePayments) Checkout(_ context.Context, user model.User, planName string) (model.CheckoutSession, error) {
	f.plan = planName
	if f.err != nil {
		return model.CheckoutSession{}, f.err
	}
	return model.CheckoutSession{Order: model.Order{ID: 9, UserID: user.ID}, Plan: model.Plan{Name: planName}}, nil
}

func (f *fakePayments) HandleReturn(_ context.Context, answer model.PaymentAnswer) (model.PaymentResult, error) {
	f.returned = answer
	return f.result, f.err
}

func (f *fakePayments) HandleIPN(_ context.Context, answer model.PaymentAnswer) (model.PaymentResult, error) {
	f.notified = answer
	return f.result, f.err
}

type fakeHealth struct {
	err error
}

func (f fakeHealth) Health(context.Context) error {
	return f.err
}
