package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPurger struct {
	cutoffs []time.Time
	err     error
}

func (p *recordingPurger) DeleteStalePending(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return 2, p.err
}

func (p *recordingPurger) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return 5, p.err
}

func TestRunOnceUsesRetentionWindows(t *testing.T) {
	t.Parallel()

	orders := &recordingPurger{}
	logs := &recordingPurger{}
	s, err := New(orders, logs, Options{PendingOrderMaxAge: time.Hour, SecurityLogRetention: 90 * 24 * time.Hour})
	require.NoError(t, err)

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.RunOnce(context.Background())

	assert.Equal(t, []time.Time{now.Add(-time.Hour)}, orders.cutoffs)
	assert.Equal(t, []time.Time{now.Add(-90 * 24 * time.Hour)}, logs.cutoffs)
}

func TestRunOnceSkipsDisabledTasks(t *testing.T) {
	t.Parallel()

	orders := &recordingPurger{}
	logs := &recordingPurger{err: errors.New("db down")}
	s, err := New(orders, logs, Options{SecurityLogRetention: time.Hour})
	require.NoError(t, err)

	s.RunOnce(context.Background())

	assert.Empty(t, orders.cutoffs)
	assert.Len(t, logs.cutoffs, 1)
}

func TestNewRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil, Options{Schedule: "not a schedule"})
	require.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	t.Parallel()

	orders := &recordingPurger{}
	s, err := New(orders, nil, Options{Schedule: "@every 1h", PendingOrderMaxAge: time.Minute})
	require.NoError(t, err)

	s.Start(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	assert.Len(t, orders.cutoffs, 1)
}
