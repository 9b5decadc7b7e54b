package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go-plan-portal/internal/model"
)

var errStoreDown = errors.New("store unavailable")

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]model.User
	nextID  int64
	err     error
	lookups int
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{byEmail: map[string]model.User{}, nextID: 100}
	for _, u := range users {
		f.byEmail[strings.ToLower(u.Email)] = u
	}
	return f
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lookups++
	if f.err != nil {
		return model.User{}, f.err
	}
	u, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) Create(_ context.Context, user model.User) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, ok := f.byEmail[key]; ok {
		return model.User{}, model.ErrUserAlreadyExists
	}
	f.nextID++
	user.ID = f.nextID
	f.byEmail[key] = user
	return user, nil
}

func (f *fakeUsers) RecordFailedLogin(_ context.Context, userID int64, maxAttempts int, lockFor time.Duration, now time.Time) (model.LoginFailure, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for key, u := range f.byEmail {
		if u.ID != userID {
			continue
		}
		u.FailedAttempts++
		failure := model.LoginFailure{Attempts: u.FailedAttempts}
		if u.FailedAttempts >= maxAttempts {
			until := now.Add(lockFor)
			u.LockUntil = &until
			u.FailedAttempts = 0
			failure.Attempts = maxAttempts
			failure.LockUntil = &until
		}
		f.byEmail[key] = u
		return failure, nil
	}
	return model.LoginFailure{}, model.ErrUserNotFound
}

func (f *fakeUsers) ResetFailedAttempts(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for key, u := range f.byEmail {
		if u.ID == userID {
			u.FailedAttempts = 0
			u.LockUntil = nil
			f.byEmail[key] = u
			return nil
		}
	}
	return model.ErrUserNotFound
}

func (f *fakeUsers) AssignPlan(_ context.Context, userID int64, planID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for key, u := range f.byEmail {
		if u.ID == userID {
			u.PlanID = &planID
			assigned := at
			u.PlanAssignedAt = &assigned
			f.byEmail[key] = u
			return nil
		}
	}
	return model.ErrUserNotFound
}

func (f *fakeUsers) UpdateProfile(_ context.Context, userID int64, update model.ProfileUpdate) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return model.User{}, f.err
	}
	for key, u := range f.byEmail {
		if u.ID == userID {
			u.FullName = update.FullName
			u.LastName = update.LastName
			u.PhoneNumber = update.PhoneNumber
			u.Company = update.Company
			u.JobTitle = update.JobTitle
			f.byEmail[key] = u
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (f *fakeUsers) Delete(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	for key, u := range f.byEmail {
		if u.ID == userID {
			delete(f.byEmail, key)
			return nil
		}
	}
	return model.ErrUserNotFound
}

func (f *fakeUsers) get(email string) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byEmail[strings.ToLower(email)]
}

type fakePlans struct {
	byID   map[int64]model.Plan
	byName map[string]model.Plan
	err    error
}

func newFakePlans(plans ...model.Plan) *fakePlans {
	f := &fakePlans{byID: map[int64]model.Plan{}, byName: map[string]model.Plan{}}
	for _, p := range plans {
		f.byID[p.ID] = p
		f.byName[p.Name] = p
	}
	return f
}

func (f *fakePlans) FindByID(_ context.Context, id int64) (model.Plan, error) {
	if f.err != nil {
		return model.Plan{}, f.err
	}
	p, ok := f.byID[id]
	if !ok {
		return model.Plan{}, model.ErrPlanNotFound
	}
	return p, nil
}

func (f *fakePlans) FindByName(_ context.Context, name string) (model.Plan, error) {
	if f.err != nil {
		return model.Plan{}, f.err
	}
	p, ok := f.byName[name]
	if !ok {
		return model.Plan{}, model.ErrPlanNotFound
	}
	return p, nil
}

func (f *fakePlans) EnsureFreePlan(_ context.Context, name string, validityDays *int) (model.Plan, error) {
	if p, ok := f.byName[name]; ok {
		return p, nil
	}
	p := model.Plan{ID: int64(len(f.byID) + 1), Name: name, IsFree: true, ValidityDays: validityDays}
	f.byID[p.ID] = p
	f.byName[name] = p
	return p, nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []model.SecurityEvent
}

func (f *fakeRecorder) Record(_ context.Context, event model.SecurityEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeRecorder) types() []model.SecurityEventType {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.SecurityEventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakePlanStatus struct {
	status model.PlanStatus
	err    error
	calls  int
}

func (f *fakePlanStatus) Status(context.Context, model.User) (model.PlanStatus, error) {
	f.calls++
	return f.status, f.err
}

func intPtr(v int) *int {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}

func timePtr(v time.Time) *time.Time {
	return &v
}
